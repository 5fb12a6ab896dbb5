package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenlife/internal/infrastructure/monitoring"
	"github.com/turtacn/tokenlife/internal/infrastructure/redis"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/logger"
)

func newClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, s
}

func TestAccessTokenDenylist_RevokeAndCheck(t *testing.T) {
	client, s := newClient(t)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	denylist := redis.NewAccessTokenDenylist(client, monitoring.NewMetricsAdapter(metrics), logger.NewNoopLogger())
	ctx := context.Background()

	revoked, err := denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, denylist.Revoke(ctx, "jti-1", time.Now().Add(5*time.Minute)))

	key := constants.DenylistKeyPrefix + ":jti-1"
	assert.True(t, s.Exists(key))
	ttl := s.TTL(key)
	assert.True(t, ttl > 4*time.Minute && ttl <= 5*time.Minute, "ttl %s", ttl)

	// the revoking replica answers from its local cache
	revoked, err = denylist.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DenylistChecks.WithLabelValues("local", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DenylistChecks.WithLabelValues("redis", "false")))
}

func TestAccessTokenDenylist_SharedAcrossReplicas(t *testing.T) {
	client, _ := newClient(t)
	metrics := monitoring.NewMetricsAdapter(monitoring.NewMetrics(prometheus.NewRegistry()))
	a := redis.NewAccessTokenDenylist(client, metrics, logger.NewNoopLogger())
	b := redis.NewAccessTokenDenylist(client, metrics, logger.NewNoopLogger())
	ctx := context.Background()

	// b looks first and caches nothing for a negative answer
	revoked, err := b.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, a.Revoke(ctx, "jti-2", time.Now().Add(time.Minute)))

	revoked, err = b.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestAccessTokenDenylist_ExpiredTokenNotStored(t *testing.T) {
	client, s := newClient(t)
	denylist := redis.NewAccessTokenDenylist(client,
		monitoring.NewMetricsAdapter(monitoring.NewMetrics(prometheus.NewRegistry())), logger.NewNoopLogger())

	require.NoError(t, denylist.Revoke(context.Background(), "old", time.Now().Add(-time.Second)))
	assert.Empty(t, s.Keys())
}

func TestAccessTokenDenylist_EntryExpires(t *testing.T) {
	client, s := newClient(t)
	metrics := monitoring.NewMetricsAdapter(monitoring.NewMetrics(prometheus.NewRegistry()))
	writer := redis.NewAccessTokenDenylist(client, metrics, logger.NewNoopLogger())
	reader := redis.NewAccessTokenDenylist(client, metrics, logger.NewNoopLogger())
	ctx := context.Background()

	require.NoError(t, writer.Revoke(ctx, "short", time.Now().Add(2*time.Second)))
	s.FastForward(3 * time.Second)

	revoked, err := reader.IsRevoked(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestAccessTokenDenylist_ConcurrentLookups(t *testing.T) {
	client, _ := newClient(t)
	metrics := monitoring.NewMetricsAdapter(monitoring.NewMetrics(prometheus.NewRegistry()))
	writer := redis.NewAccessTokenDenylist(client, metrics, logger.NewNoopLogger())
	reader := redis.NewAccessTokenDenylist(client, metrics, logger.NewNoopLogger())
	ctx := context.Background()
	require.NoError(t, writer.Revoke(ctx, "hot", time.Now().Add(time.Minute)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			revoked, err := reader.IsRevoked(ctx, "hot")
			assert.NoError(t, err)
			assert.True(t, revoked)
		}()
	}
	wg.Wait()
}

func TestAccessTokenDenylist_RedisDown(t *testing.T) {
	client, s := newClient(t)
	denylist := redis.NewAccessTokenDenylist(client,
		monitoring.NewMetricsAdapter(monitoring.NewMetrics(prometheus.NewRegistry())), logger.NewNoopLogger())
	s.Close()

	_, err := denylist.IsRevoked(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, denylist.Revoke(context.Background(), "x", time.Now().Add(time.Minute)))
}

func TestLocalAccessTokenDenylist(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	denylist := redis.NewLocalAccessTokenDenylist(monitoring.NewMetricsAdapter(metrics))
	ctx := context.Background()

	require.NoError(t, denylist.Revoke(ctx, "a", time.Now().Add(time.Minute)))
	require.NoError(t, denylist.Revoke(ctx, "gone", time.Now().Add(-time.Minute)))

	revoked, err := denylist.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = denylist.IsRevoked(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DenylistChecks.WithLabelValues("local", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DenylistChecks.WithLabelValues("local", "false")))
}

//Personal.AI order the ending
