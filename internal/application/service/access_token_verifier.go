package service

import (
	"context"

	"github.com/turtacn/tokenlife/internal/domain/models"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
	"github.com/turtacn/tokenlife/pkg/logger"
)

// AccessTokenVerifier decodes access tokens for protected endpoints.
// The HTTP middleware and the gRPC introspection service share it.
type AccessTokenVerifier interface {
	DecodeAccessToken(ctx context.Context, token string) (*models.TokenClaims, error)
}

type accessTokenVerifier struct {
	codec    domainService.TokenCodec
	denylist domainService.AccessTokenDenylist
	logger   logger.Logger
}

// NewAccessTokenVerifier creates a verifier over codec and denylist.
func NewAccessTokenVerifier(codec domainService.TokenCodec, denylist domainService.AccessTokenDenylist, log logger.Logger) AccessTokenVerifier {
	return &accessTokenVerifier{
		codec:    codec,
		denylist: denylist,
		logger:   log.WithComponent("AccessTokenVerifier"),
	}
}

// DecodeAccessToken verifies token, rejects refresh tokens and denylisted
// jtis. A denylist that cannot be reached rejects the token with a server error.
func (v *accessTokenVerifier) DecodeAccessToken(ctx context.Context, token string) (*models.TokenClaims, error) {
	claims, err := v.codec.Verify(token)
	if err != nil {
		return nil, err
	}
	if claims.IsRefresh() {
		return nil, errors.ErrWrongTokenType(constants.TokenTypeAccess)
	}

	revoked, err := v.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		v.logger.Error(ctx, "Denylist lookup failed", err, logger.String("jti", claims.ID))
		return nil, errors.WrapError(err, constants.ErrCodeServerError, "access token denylist unavailable")
	}
	if revoked {
		return nil, errors.ErrAccessTokenRevoked()
	}
	return claims, nil
}

//Personal.AI order the ending
