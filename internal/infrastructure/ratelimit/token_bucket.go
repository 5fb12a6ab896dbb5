// Package ratelimit provides rate limiting implementations.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
)

// TokenBucket implements the token bucket algorithm for rate limiting.
// It is safe for concurrent use.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64   // Maximum number of tokens
	tokens     float64   // Current number of tokens
	rate       float64   // Tokens added per second
	lastRefill time.Time // Last time tokens were refilled
}

// TokenBucketConfig holds configuration for creating a token bucket.
type TokenBucketConfig struct {
	// Capacity is the maximum number of tokens the bucket can hold
	Capacity float64
	// Rate is the number of tokens added per second
	Rate float64
}

// NewTokenBucket creates a full token bucket.
func NewTokenBucket(capacity, rate float64) *TokenBucket {
	if capacity <= 0 {
		capacity = float64(constants.DefaultLoginRateLimitPerMinute)
	}
	if rate <= 0 {
		rate = capacity / 60.0
	}

	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		rate:       rate,
		lastRefill: time.Now(),
	}
}

// Allow attempts to consume one token from the bucket.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1.0)
}

// AllowN attempts to consume n tokens from the bucket.
func (tb *TokenBucket) AllowN(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// refill must be called with the lock held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Available returns the current number of tokens available.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

// TimeUntilFull returns how long until the bucket is back at capacity.
func (tb *TokenBucket) TimeUntilFull() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	missing := tb.capacity - tb.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / tb.rate * float64(time.Second))
}

// TokenBucketPool manages multiple token buckets keyed by string.
type TokenBucketPool struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucketEntry
	config  TokenBucketConfig
}

type tokenBucketEntry struct {
	bucket   *TokenBucket
	lastUsed time.Time
}

// NewTokenBucketPool creates a new token bucket pool.
func NewTokenBucketPool(config TokenBucketConfig) *TokenBucketPool {
	return &TokenBucketPool{
		buckets: make(map[string]*tokenBucketEntry),
		config:  config,
	}
}

// GetOrCreate gets an existing bucket or creates a new one.
func (p *TokenBucketPool) GetOrCreate(key string) *TokenBucket {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, exists := p.buckets[key]; exists {
		entry.lastUsed = time.Now()
		return entry.bucket
	}

	bucket := NewTokenBucket(p.config.Capacity, p.config.Rate)
	p.buckets[key] = &tokenBucketEntry{bucket: bucket, lastUsed: time.Now()}
	return bucket
}

// Remove removes a bucket from the pool.
func (p *TokenBucketPool) Remove(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.buckets, key)
}

// Cleanup removes buckets that haven't been used for maxIdle and returns
// how many were removed.
func (p *TokenBucketPool) Cleanup(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range p.buckets {
		if now.Sub(entry.lastUsed) > maxIdle {
			delete(p.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of buckets in the pool.
func (p *TokenBucketPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}

func allowLocal(bucket *TokenBucket) (bool, int, time.Time, error) {
	allowed := bucket.Allow()
	return allowed, int(bucket.Available()), time.Now().Add(bucket.TimeUntilFull()), nil
}

// LocalRateLimiter is the single-process limiter used when Redis is disabled.
type LocalRateLimiter struct {
	pool *TokenBucketPool
}

// NewLocalRateLimiter creates an in-process limiter with the same bucket
// parameters as the Redis one.
func NewLocalRateLimiter(cfg *RateLimiterConfig) *LocalRateLimiter {
	if cfg == nil {
		cfg = DefaultRateLimiterConfig()
	}
	return &LocalRateLimiter{
		pool: NewTokenBucketPool(TokenBucketConfig{Capacity: float64(cfg.Limit), Rate: cfg.rate()}),
	}
}

func (l *LocalRateLimiter) Allow(_ context.Context, scope constants.RateLimitScope, key string) (bool, int, time.Time, error) {
	return allowLocal(l.pool.GetOrCreate(fmt.Sprintf("%s:%s", scope, key)))
}

// Cleanup drops buckets idle for longer than maxIdle.
func (l *LocalRateLimiter) Cleanup(maxIdle time.Duration) int {
	return l.pool.Cleanup(maxIdle)
}

var _ service.RateLimitService = (*LocalRateLimiter)(nil)

//Personal.AI order the ending
