// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/tokenlife/internal/config"
	"github.com/turtacn/tokenlife/internal/domain/models"
	domainService "github.com/turtacn/tokenlife/internal/domain/service"
)

const tracerName = "tokenlife/application"

var tracer = otel.Tracer(tracerName)

// TokenSettings holds the lifetimes of newly minted tokens.
type TokenSettings struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenSettingsFromConfig reads the lifetimes from the jwt section.
func TokenSettingsFromConfig(cfg *config.JWTConfig) TokenSettings {
	return TokenSettings{AccessTTL: cfg.AccessTokenTTL, RefreshTTL: cfg.RefreshTokenTTL}
}

// Option customises an application service.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for expiry computations.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// issuedPair is a minted access/refresh pair plus the jtis for the audit trail.
type issuedPair struct {
	pair       *models.TokenPair
	accessJTI  string
	refreshJTI string
}

// tokenIssuer mints the two tokens of a pair. The refresh expiry is decided
// by the caller: now + RefreshTTL at login, the consumed record's expiry on rotation.
type tokenIssuer struct {
	codec    domainService.TokenCodec
	settings TokenSettings
}

func (i *tokenIssuer) mintPair(identity models.Identity, now, refreshExp time.Time) (*issuedPair, error) {
	accessClaims := domainService.NewClaims(identity, false, now.Add(i.settings.AccessTTL))
	access, err := i.codec.Mint(accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := domainService.NewClaims(identity, true, refreshExp)
	refresh, err := i.codec.Mint(refreshClaims)
	if err != nil {
		return nil, err
	}

	return &issuedPair{
		pair: &models.TokenPair{
			AccessToken:      access,
			RefreshToken:     refresh,
			AccessExpiresAt:  accessClaims.ExpiresAt.Time,
			RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
		},
		accessJTI:  accessClaims.ID,
		refreshJTI: refreshClaims.ID,
	}, nil
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func traceUser(id int64) trace.SpanStartOption {
	return trace.WithAttributes(attribute.Int64("user.id", id))
}

//Personal.AI order the ending
