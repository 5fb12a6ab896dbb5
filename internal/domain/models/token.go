// Package models defines the domain models of the tokenlife service.
// This file contains the refresh token record and the issued token pair.
package models

import (
	"time"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// RefreshToken is the server-side record of one issued refresh token.
// The row existing is what makes the token usable; consuming it deletes it.
// RefreshToken 是已签发刷新令牌的服务端记录，记录存在即令牌有效。
type RefreshToken struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"type:text;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// ClientIP and UserAgent describe the session; they never take part in validation.
	ClientIP  string `gorm:"type:varchar(64)" json:"client_ip,omitempty"`
	UserAgent string `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
}

func (RefreshToken) TableName() string {
	return constants.TableRefreshTokens
}

// NewRefreshToken creates a record for token expiring at expiresAt.
func NewRefreshToken(userID int64, token string, expiresAt time.Time, client ClientInfo) *RefreshToken {
	return &RefreshToken{
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
	}
}

// IsExpired reports whether the record's expiry is at or before now.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TimeUntilExpiry returns the remaining lifetime, or 0 once expired.
func (t *RefreshToken) TimeUntilExpiry(now time.Time) time.Duration {
	if t.IsExpired(now) {
		return 0
	}
	return t.ExpiresAt.Sub(now)
}

// ClientInfo is descriptive metadata about the caller of a session operation.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// TokenPair is the result of a login or a rotation.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenType is what clients see as token_type.
func (p *TokenPair) TokenType() string {
	return constants.TokenTypeBearer
}

//Personal.AI order the ending
