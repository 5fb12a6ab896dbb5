package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/domain/models"
)

// MockAuthAppService is a mock implementation of service.AuthAppService
type MockAuthAppService struct {
	mock.Mock
}

func (m *MockAuthAppService) Login(ctx context.Context, username, password string, client models.ClientInfo) (*models.TokenPair, error) {
	args := m.Called(ctx, username, password, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

func (m *MockAuthAppService) Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthAppService) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthAppService) ChangePassword(ctx context.Context, identity models.Identity, req *dto.ChangePasswordRequest) error {
	args := m.Called(ctx, identity, req)
	return args.Error(0)
}

// MockSessionAppService is a mock implementation of service.SessionAppService
type MockSessionAppService struct {
	mock.Mock
}

func (m *MockSessionAppService) Rotate(ctx context.Context, presented string, client models.ClientInfo) (*models.TokenPair, error) {
	args := m.Called(ctx, presented, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

func (m *MockSessionAppService) Logout(ctx context.Context, presented, accessToken string) error {
	args := m.Called(ctx, presented, accessToken)
	return args.Error(0)
}

func (m *MockSessionAppService) ListSessions(ctx context.Context, userID int64) ([]*models.RefreshToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RefreshToken), args.Error(1)
}

func (m *MockSessionAppService) RevokeAllSessions(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionAppService) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockAccessTokenVerifier is a mock implementation of service.AccessTokenVerifier
type MockAccessTokenVerifier struct {
	mock.Mock
}

func (m *MockAccessTokenVerifier) DecodeAccessToken(ctx context.Context, token string) (*models.TokenClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenClaims), args.Error(1)
}
