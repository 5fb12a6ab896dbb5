package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// MockRateLimitService is a mock implementation of RateLimitService
type MockRateLimitService struct {
	mock.Mock
}

func (m *MockRateLimitService) Allow(ctx context.Context, scope constants.RateLimitScope, key string) (bool, int, time.Time, error) {
	args := m.Called(ctx, scope, key)
	return args.Bool(0), args.Int(1), args.Get(2).(time.Time), args.Error(3)
}
