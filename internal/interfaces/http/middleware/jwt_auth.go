package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/tokenlife/internal/application/dto"
	appService "github.com/turtacn/tokenlife/internal/application/service"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
	"github.com/turtacn/tokenlife/pkg/utils"
)

// RequireAccessToken protects routes that need a valid, non-denylisted access token
// in the Authorization header. The verified claims are stored on the context.
func RequireAccessToken(verifier appService.AccessTokenVerifier, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.ExtractBearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			dto.SendError(c, errors.ErrMissingCredential("access token"))
			return
		}

		claims, err := verifier.DecodeAccessToken(c.Request.Context(), token)
		if err != nil {
			log.Debug(c.Request.Context(), "Access token rejected", logger.Err(err))
			dto.SendError(c, err)
			return
		}

		c.Set(string(constants.ContextKeyClaims), claims)
		c.Set(string(constants.ContextKeyRawToken), token)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), constants.ContextKeyClaims, claims))
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by RequireAccessToken.
func ClaimsFrom(c *gin.Context) (*models.TokenClaims, bool) {
	v, ok := c.Get(string(constants.ContextKeyClaims))
	if !ok {
		return nil, false
	}
	claims, ok := v.(*models.TokenClaims)
	return claims, ok && claims.User != nil
}

//Personal.AI order the ending
