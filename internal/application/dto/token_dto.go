// Package dto provides data transfer objects for the application layer.
package dto

import (
	"time"

	"github.com/turtacn/tokenlife/internal/domain/models"
)

// LoginRequest 登录请求 DTO（表单提交）
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResponse 令牌响应 DTO。刷新令牌只通过 Cookie 下发，不出现在响应体中。
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// NewTokenResponse builds the response body of a login or a rotation.
func NewTokenResponse(pair *models.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken: pair.AccessToken,
		TokenType:   pair.TokenType(),
	}
}

// DetailResponse 通用消息响应
type DetailResponse struct {
	Detail string `json:"detail"`
}

// RevokeSessionsResponse 批量吊销会话响应
type RevokeSessionsResponse struct {
	Detail  string `json:"detail"`
	Revoked int    `json:"revoked"`
}

// SessionDTO describes one live refresh session. The token itself is never exposed.
type SessionDTO struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// FromRefreshTokens converts stored records to session DTOs.
func FromRefreshTokens(records []*models.RefreshToken) []SessionDTO {
	sessions := make([]SessionDTO, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, SessionDTO{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			ExpiresAt: r.ExpiresAt,
			ClientIP:  r.ClientIP,
			UserAgent: r.UserAgent,
		})
	}
	return sessions
}

// IntrospectionResult is what the gRPC introspection service reports.
type IntrospectionResult struct {
	Active   bool
	JTI      string
	Subject  string
	Exp      int64
	UserID   int64
	Username string
	Role     string
}
