package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// LoginRateLimit limits login attempts per client IP. A limiter error lets the
// request through.
func LoginRateLimit(limiter service.RateLimitService, metrics service.Metrics, cfg *config.RateLimitConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		ip := c.ClientIP()
		allowed, remaining, resetAt, err := limiter.Allow(c.Request.Context(), constants.RateLimitScopeLoginIP, ip)
		if err != nil {
			log.Error(c.Request.Context(), "Rate limiter failed", err, logger.String("client_ip", ip))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(cfg.LoginLimit, 10))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			metrics.RecordRateLimitHit(constants.RateLimitScopeLoginIP)
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			log.Warn(c.Request.Context(), "Login rate limit exceeded", logger.String("client_ip", ip))
			dto.SendError(c, errors.ErrRateLimitExceeded(constants.RateLimitScopeLoginIP, int(cfg.LoginLimit)))
			return
		}

		c.Next()
	}
}

//Personal.AI order the ending
