package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/tokenlife/internal/domain/service"
)

// InMemoryDenylist provides an in-memory AccessTokenDenylist for testing.
type InMemoryDenylist struct {
	mu      sync.RWMutex
	storage map[string]time.Time
}

// NewInMemoryDenylist creates a new instance of InMemoryDenylist.
func NewInMemoryDenylist() *InMemoryDenylist {
	return &InMemoryDenylist{
		storage: make(map[string]time.Time),
	}
}

// Revoke adds a JTI to the denylist until exp.
func (s *InMemoryDenylist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clean up expired entries to prevent memory growth in long-running tests
	for k, expiry := range s.storage {
		if time.Now().After(expiry) {
			delete(s.storage, k)
		}
	}

	if time.Now().Before(exp) {
		s.storage[jti] = exp
	}
	return nil
}

// IsRevoked checks if a JTI is on the denylist and not expired.
func (s *InMemoryDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, exists := s.storage[jti]
	return exists && time.Now().Before(exp), nil
}

// Len returns the number of stored entries.
func (s *InMemoryDenylist) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.storage)
}

var _ service.AccessTokenDenylist = (*InMemoryDenylist)(nil)
