package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/tokenlife/internal/application/dto"
	"github.com/turtacn/tokenlife/internal/domain/models"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
)

func TestAuthAppService_Login(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, testUsername, testPassword)
	ctx := context.Background()

	pair := h.login(t)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType())

	wantRefreshExp := h.clock.Now().Add(testSettings.RefreshTTL)
	assert.True(t, pair.RefreshExpiresAt.Equal(wantRefreshExp), "refresh exp %s", pair.RefreshExpiresAt)
	assert.True(t, pair.AccessExpiresAt.Equal(h.clock.Now().Add(testSettings.AccessTTL)))

	claims, err := h.verifier.DecodeAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, claims.IsRefresh())
	assert.Equal(t, user.ID, claims.UserID())
	assert.Equal(t, testUsername, claims.User.Username)

	sessions, err := h.sessions.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, pair.RefreshToken, sessions[0].Token)
	assert.True(t, sessions[0].ExpiresAt.Equal(wantRefreshExp))
	assert.Equal(t, "10.0.0.1", sessions[0].ClientIP)

	assert.True(t, h.audit.HasEvent(string(constants.AuditEventLoginSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.LoginRequests.WithLabelValues("success", "")))
}

func TestAuthAppService_Login_CredentialOpacity(t *testing.T) {
	h := newHarness(t)
	h.seedUser(t, testUsername, testPassword)
	inactive := h.seedUser(t, "dormant", testPassword)
	require.NoError(t, h.conn.DB().Model(&models.User{}).Where("id = ?", inactive.ID).Update("is_active", false).Error)
	ctx := context.Background()

	cases := map[string][2]string{
		"unknown user":   {"nobody", testPassword},
		"wrong password": {testUsername, "wrong-password"},
		"inactive user":  {"dormant", testPassword},
	}

	var messages []string
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			pair, err := h.auth.Login(ctx, creds[0], creds[1], models.ClientInfo{})
			require.Error(t, err)
			assert.Nil(t, pair)
			assert.True(t, errors.HasCode(err, constants.ErrCodeAuthenticationFailed))
			messages = append(messages, err.Error())
		})
	}

	require.Len(t, messages, 3)
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
	assert.Equal(t, 0, h.sessionCount(t, inactive.ID))
	assert.True(t, h.audit.HasEvent(string(constants.AuditEventLoginFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.LoginRequests.WithLabelValues("failure", string(constants.ErrCodeAuthenticationFailed))))
}

func TestAuthAppService_Register(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	req := &dto.RegisterRequest{
		Email:     "evasquez@example.com",
		Username:  testUsername,
		FirstName: "Elena",
		Password:  testPassword,
	}
	user, err := h.auth.Register(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, constants.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, testPassword, user.HashedPassword)
	assert.True(t, h.audit.HasEvent(string(constants.AuditEventUserRegistered)))

	// registered users can log in right away
	h.login(t)

	_, err = h.auth.Register(ctx, req)
	assert.True(t, errors.HasCode(err, constants.ErrCodeUserExists))

	_, err = h.auth.Register(ctx, &dto.RegisterRequest{Email: "not-an-email", Username: "someone", Password: testPassword})
	assert.True(t, errors.HasCode(err, constants.ErrCodeInvalidRequest))
}

func TestAuthAppService_CurrentUser(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, testUsername, testPassword)

	got, err := h.auth.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, testUsername, got.Username)

	_, err = h.auth.CurrentUser(context.Background(), user.ID+100)
	assert.True(t, errors.HasCode(err, constants.ErrCodeNotFound))
}

func TestAuthAppService_ChangePassword_RevokesSessions(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, testUsername, testPassword)
	ctx := context.Background()

	first := h.login(t)
	h.clock.Advance(time.Second)
	h.login(t)
	require.Equal(t, 2, h.sessionCount(t, user.ID))

	err := h.auth.ChangePassword(ctx, user.Identity(), &dto.ChangePasswordRequest{OldPassword: "wrong-password", NewPassword: "n3w-password"})
	assert.True(t, errors.HasCode(err, constants.ErrCodeAuthenticationFailed))
	assert.Equal(t, 2, h.sessionCount(t, user.ID))

	err = h.auth.ChangePassword(ctx, user.Identity(), &dto.ChangePasswordRequest{OldPassword: testPassword, NewPassword: "n3w-password"})
	require.NoError(t, err)
	assert.Equal(t, 0, h.sessionCount(t, user.ID))
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.SessionsRevoked))

	_, err = h.sessions.Rotate(ctx, first.RefreshToken, models.ClientInfo{})
	assert.True(t, errors.HasCode(err, constants.ErrCodeRefreshTokenRevoked))

	_, err = h.auth.Login(ctx, testUsername, testPassword, models.ClientInfo{})
	assert.True(t, errors.HasCode(err, constants.ErrCodeAuthenticationFailed))
	_, err = h.auth.Login(ctx, testUsername, "n3w-password", models.ClientInfo{})
	assert.NoError(t, err)
}

func TestAuthAppService_ChangePassword_Validation(t *testing.T) {
	h := newHarness(t)
	user := h.seedUser(t, testUsername, testPassword)

	err := h.auth.ChangePassword(context.Background(), user.Identity(), &dto.ChangePasswordRequest{OldPassword: testPassword, NewPassword: testPassword})
	assert.True(t, errors.HasCode(err, constants.ErrCodeInvalidRequest))
}
