// Package ratelimit provides distributed rate limiting using Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// RedisRateLimiter implements distributed rate limiting using Redis.
type RedisRateLimiter struct {
	client       redis.UniversalClient
	logger       logger.Logger
	config       *RateLimiterConfig
	localBuckets *TokenBucketPool // Fallback for Redis failures
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	// Limit is the bucket capacity, i.e. the burst allowed per key
	Limit int64
	// Window is the time it takes to refill an empty bucket
	Window time.Duration
	// EnableLocalFallback answers from in-process buckets while Redis is unreachable
	EnableLocalFallback bool
	// KeyPrefix is the Redis key prefix
	KeyPrefix string
}

// NewRateLimiterConfig derives the limiter settings from the rate_limit section.
func NewRateLimiterConfig(cfg *config.RateLimitConfig) *RateLimiterConfig {
	rc := DefaultRateLimiterConfig()
	if cfg.LoginLimit > 0 {
		rc.Limit = cfg.LoginLimit
	}
	if cfg.Window > 0 {
		rc.Window = cfg.Window
	}
	rc.EnableLocalFallback = cfg.LocalFallback
	return rc
}

// DefaultRateLimiterConfig returns default rate limiter configuration.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Limit:               constants.DefaultLoginRateLimitPerMinute,
		Window:              time.Minute,
		EnableLocalFallback: true,
		KeyPrefix:           constants.RateLimitKeyPrefix,
	}
}

func (c *RateLimiterConfig) rate() float64 {
	return float64(c.Limit) / c.Window.Seconds()
}

// Lua script for atomic token bucket operations
const tokenBucketLuaScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local requested = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
local tokens = tonumber(bucket[1]) or capacity
local last_refill = tonumber(bucket[2]) or now

-- rate is per second, elapsed in ms
local elapsed = math.max(0, now - last_refill)
tokens = math.min(tokens + elapsed * rate / 1000, capacity)

local allowed = 0
if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
end

local reset_ms = 0
if tokens < capacity then
    reset_ms = math.ceil((capacity - tokens) / rate * 1000)
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last_refill', tostring(now))
redis.call('PEXPIRE', key, reset_ms + 60000)

return {allowed, math.floor(tokens), reset_ms}
`

var tokenBucketScript = redis.NewScript(tokenBucketLuaScript)

// NewRedisRateLimiter creates a new Redis-based rate limiter.
func NewRedisRateLimiter(client redis.UniversalClient, cfg *RateLimiterConfig, log logger.Logger) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, errors.ErrInvalidRequest("redis client is required")
	}
	if cfg == nil {
		cfg = DefaultRateLimiterConfig()
	}

	rl := &RedisRateLimiter{
		client: client,
		logger: log.WithComponent("RedisRateLimiter"),
		config: cfg,
	}
	if cfg.EnableLocalFallback {
		rl.localBuckets = NewTokenBucketPool(TokenBucketConfig{
			Capacity: float64(cfg.Limit),
			Rate:     cfg.rate(),
		})
	}

	rl.logger.Info(context.Background(), "Redis rate limiter initialized",
		logger.Int64("limit", cfg.Limit),
		logger.Duration("window", cfg.Window),
		logger.Bool("local_fallback", cfg.EnableLocalFallback),
	)
	return rl, nil
}

// Allow takes one token from the bucket of (scope, key).
func (rl *RedisRateLimiter) Allow(ctx context.Context, scope constants.RateLimitScope, key string) (bool, int, time.Time, error) {
	redisKey := rl.buildKey(scope, key)
	now := time.Now()

	res, err := tokenBucketScript.Run(ctx, rl.client, []string{redisKey},
		rl.config.Limit, rl.config.rate(), 1, now.UnixMilli()).Int64Slice()
	if err == nil && len(res) != 3 {
		err = fmt.Errorf("unexpected token bucket result: %v", res)
	}
	if err != nil {
		if rl.localBuckets != nil {
			rl.logger.Warn(ctx, "Rate limiter falling back to local bucket", logger.Err(err))
			return allowLocal(rl.localBuckets.GetOrCreate(redisKey))
		}
		rl.logger.Error(ctx, "Rate limit check failed", err, logger.String("scope", string(scope)))
		return false, 0, time.Time{}, errors.WrapError(err, constants.ErrCodeServerError, "rate limit check failed")
	}

	return res[0] == 1, int(res[1]), now.Add(time.Duration(res[2]) * time.Millisecond), nil
}

// ResetLimit clears the bucket of (scope, key), for instance after a successful login.
func (rl *RedisRateLimiter) ResetLimit(ctx context.Context, scope constants.RateLimitScope, key string) error {
	redisKey := rl.buildKey(scope, key)
	if err := rl.client.Del(ctx, redisKey).Err(); err != nil && err != redis.Nil {
		return errors.WrapError(err, constants.ErrCodeServerError, "rate limit reset failed")
	}
	if rl.localBuckets != nil {
		rl.localBuckets.Remove(redisKey)
	}
	return nil
}

// CleanupLocalBuckets drops fallback buckets idle for longer than maxIdle.
func (rl *RedisRateLimiter) CleanupLocalBuckets(maxIdle time.Duration) int {
	if rl.localBuckets == nil {
		return 0
	}
	removed := rl.localBuckets.Cleanup(maxIdle)
	if removed > 0 {
		rl.logger.Debug(context.Background(), "Cleaned up idle buckets", logger.Int("count", removed))
	}
	return removed
}

func (rl *RedisRateLimiter) buildKey(scope constants.RateLimitScope, key string) string {
	return fmt.Sprintf("%s:%s:%s", rl.config.KeyPrefix, scope, key)
}

var _ service.RateLimitService = (*RedisRateLimiter)(nil)

//Personal.AI order the ending
