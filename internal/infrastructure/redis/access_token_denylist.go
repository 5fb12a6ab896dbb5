package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
)

const (
	sourceLocal = "local"
	sourceRedis = "redis"
)

func denylistKey(jti string) string { return fmt.Sprintf("%s:%s", constants.DenylistKeyPrefix, jti) }

// accessTokenDenylist keeps revoked jtis in Redis with a TTL equal to the
// token's remaining lifetime. Positive answers are cached in process until
// the entry would expire anyway; negatives always go to Redis, so a
// revocation made by another replica is seen on the next lookup.
type accessTokenDenylist struct {
	rdb     redis.UniversalClient
	l1      *cache.Cache
	sf      singleflight.Group
	metrics service.Metrics
	logger  logger.Logger
}

// NewAccessTokenDenylist creates a Redis-backed denylist.
func NewAccessTokenDenylist(rdb redis.UniversalClient, metrics service.Metrics, log logger.Logger) service.AccessTokenDenylist {
	return &accessTokenDenylist{
		rdb:     rdb,
		l1:      cache.New(cache.NoExpiration, time.Minute),
		metrics: metrics,
		logger:  log.WithComponent("AccessTokenDenylist"),
	}
}

func (d *accessTokenDenylist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, denylistKey(jti), "1", ttl).Err(); err != nil {
		d.logger.Error(ctx, "Failed to add jti to denylist", err, logger.String("jti", jti))
		return err
	}
	d.l1.Set(jti, struct{}{}, ttl)
	return nil
}

func (d *accessTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if _, ok := d.l1.Get(jti); ok {
		d.metrics.RecordDenylistCheck(sourceLocal, true)
		return true, nil
	}

	// Concurrent lookups of one jti share a single PTTL round trip.
	v, err, _ := d.sf.Do(jti, func() (interface{}, error) {
		ttl, err := d.rdb.PTTL(ctx, denylistKey(jti)).Result()
		if err != nil {
			return false, err
		}
		switch {
		case ttl > 0:
			d.l1.Set(jti, struct{}{}, ttl)
			return true, nil
		case ttl == -1:
			// present without expiry; only happens if written by hand
			return true, nil
		default:
			return false, nil
		}
	})
	if err != nil {
		d.logger.Error(ctx, "Denylist lookup failed", err, logger.String("jti", jti))
		return false, err
	}

	revoked := v.(bool)
	d.metrics.RecordDenylistCheck(sourceRedis, revoked)
	return revoked, nil
}

// localAccessTokenDenylist is the single-process denylist used when Redis is
// disabled. Entries expire with the token.
type localAccessTokenDenylist struct {
	entries *cache.Cache
	metrics service.Metrics
}

// NewLocalAccessTokenDenylist creates an in-process denylist.
func NewLocalAccessTokenDenylist(metrics service.Metrics) service.AccessTokenDenylist {
	return &localAccessTokenDenylist{
		entries: cache.New(cache.NoExpiration, time.Minute),
		metrics: metrics,
	}
}

func (d *localAccessTokenDenylist) Revoke(_ context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}
	d.entries.Set(jti, struct{}{}, ttl)
	return nil
}

func (d *localAccessTokenDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := d.entries.Get(jti)
	d.metrics.RecordDenylistCheck(sourceLocal, ok)
	return ok, nil
}

//Personal.AI order the ending
