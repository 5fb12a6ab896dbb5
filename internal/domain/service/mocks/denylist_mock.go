package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockAccessTokenDenylist is a mock implementation of AccessTokenDenylist
type MockAccessTokenDenylist struct {
	mock.Mock
}

func (m *MockAccessTokenDenylist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	args := m.Called(ctx, jti, exp)
	return args.Error(0)
}

func (m *MockAccessTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}
