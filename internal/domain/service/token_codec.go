// Package service defines the domain services of the tokenlife service.
package service

import (
	stderrors "errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
)

// TokenCodec signs claims into compact JWTs and verifies them back.
type TokenCodec interface {
	// Mint signs claims with the configured key and algorithm.
	Mint(claims *models.TokenClaims) (string, error)
	// Verify checks the signature first and expiry second. It returns
	// InvalidSignature, ExpiredToken or MalformedToken errors.
	Verify(token string) (*models.TokenClaims, error)
}

// CodecOption customises a JWTCodec.
type CodecOption func(*JWTCodec)

// WithTimeFunc replaces the clock used for expiry checks.
func WithTimeFunc(now func() time.Time) CodecOption {
	return func(c *JWTCodec) {
		c.now = now
	}
}

// JWTCodec is the HMAC implementation of TokenCodec.
type JWTCodec struct {
	key    []byte
	method jwt.SigningMethod
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWTCodec binds the signing key and algorithm. An empty key or an
// algorithm outside HS256/HS384/HS512 is a configuration error.
func NewJWTCodec(key []byte, algorithm constants.JWTAlgorithm, opts ...CodecOption) (*JWTCodec, error) {
	if len(key) == 0 {
		return nil, errors.ErrConfiguration("signing key is empty")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case constants.AlgorithmHS256:
		method = jwt.SigningMethodHS256
	case constants.AlgorithmHS384:
		method = jwt.SigningMethodHS384
	case constants.AlgorithmHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.ErrConfiguration("unsupported signing algorithm " + string(algorithm))
	}

	c := &JWTCodec{key: key, method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	return c, nil
}

// NewClaims builds the claims of a fresh token for identity with a random jti.
// exp is truncated to whole seconds, the precision carried on the wire.
func NewClaims(identity models.Identity, refresh bool, exp time.Time) *models.TokenClaims {
	id := identity
	return &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.Username,
			ExpiresAt: jwt.NewNumericDate(exp.Truncate(time.Second)),
		},
		Refresh: refresh,
		User:    &id,
	}
}

func (c *JWTCodec) Mint(claims *models.TokenClaims) (string, error) {
	if claims.ExpiresAt == nil || claims.ID == "" || claims.User == nil {
		return "", errors.ErrServerError("refusing to mint incomplete claims")
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", errors.ErrServerError("failed to sign token").WithCause(err)
	}
	return signed, nil
}

func (c *JWTCodec) Verify(token string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, mapJWTError(err)
	}

	if claims.ID == "" {
		return nil, errors.ErrMalformedToken("missing jti")
	}
	if claims.User == nil {
		return nil, errors.ErrMalformedToken("missing user")
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case stderrors.Is(err, jwt.ErrTokenSignatureInvalid), stderrors.Is(err, jwt.ErrTokenUnverifiable):
		return errors.ErrInvalidSignature().WithCause(err)
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return errors.ErrExpiredToken().WithCause(err)
	case stderrors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return errors.ErrMalformedToken("missing exp").WithCause(err)
	default:
		return errors.ErrMalformedToken("token could not be parsed").WithCause(err)
	}
}

var _ TokenCodec = (*JWTCodec)(nil)

//Personal.AI order the ending
