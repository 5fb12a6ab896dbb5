// Package introspect is a client for the token service's internal gRPC
// introspection endpoint, for services that accept tokenlife access tokens.
package introspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Method is the full gRPC method the client invokes.
const Method = "/tokenlife.v1.TokenIntrospection/Introspect"

var (
	// ErrInactiveToken is returned when the service reports the token as unusable.
	ErrInactiveToken = errors.New("token is not active")
)

// Result describes an active access token.
type Result struct {
	JTI       string
	Subject   string
	UserID    int64
	Username  string
	Role      string
	ExpiresAt time.Time
}

// Client introspects tokens over an existing gRPC connection. Active
// results are cached for at most MaxCacheTTL and never past the token's
// expiry; inactive results are not cached, so a revocation is seen on the
// next call after the cached entry lapses.
type Client struct {
	conn    grpc.ClientConnInterface
	l1Cache *cache.Cache
	sf      singleflight.Group
	maxTTL  time.Duration
	nowFunc func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithMaxCacheTTL bounds how long an active result is reused. Zero disables caching.
func WithMaxCacheTTL(d time.Duration) Option {
	return func(c *Client) { c.maxTTL = d }
}

// NewClient creates a client over conn.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	c := &Client{
		conn:    conn,
		maxTTL:  5 * time.Second,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.l1Cache = cache.New(c.maxTTL, time.Minute)
	return c
}

// Introspect returns the token's claims, or ErrInactiveToken.
func (c *Client) Introspect(ctx context.Context, token string) (*Result, error) {
	if token == "" {
		return nil, ErrInactiveToken
	}
	if v, ok := c.l1Cache.Get(token); ok {
		return v.(*Result), nil
	}

	v, err, _ := c.sf.Do(token, func() (interface{}, error) {
		out := new(structpb.Struct)
		if err := c.conn.Invoke(ctx, Method, wrapperspb.String(token), out); err != nil {
			return nil, fmt.Errorf("introspect: %w", err)
		}
		res, err := parseResult(out)
		if err != nil {
			return nil, err
		}
		if ttl := c.cacheTTL(res); ttl > 0 {
			c.l1Cache.Set(token, res, ttl)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (c *Client) cacheTTL(res *Result) time.Duration {
	ttl := c.maxTTL
	if remaining := res.ExpiresAt.Sub(c.nowFunc()); remaining < ttl {
		ttl = remaining
	}
	return ttl
}

func parseResult(s *structpb.Struct) (*Result, error) {
	fields := s.GetFields()
	if !fields["active"].GetBoolValue() {
		return nil, ErrInactiveToken
	}
	return &Result{
		JTI:       fields["jti"].GetStringValue(),
		Subject:   fields["sub"].GetStringValue(),
		UserID:    int64(fields["user_id"].GetNumberValue()),
		Username:  fields["username"].GetStringValue(),
		Role:      fields["role"].GetStringValue(),
		ExpiresAt: time.Unix(int64(fields["exp"].GetNumberValue()), 0),
	}, nil
}
