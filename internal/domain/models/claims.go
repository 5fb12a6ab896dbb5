package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the payload of every token the service mints.
// ID carries the jti and ExpiresAt the exp; iat is deliberately absent.
// TokenClaims 是服务签发的所有令牌的载荷。
type TokenClaims struct {
	jwt.RegisteredClaims
	// Refresh separates refresh tokens from access tokens.
	Refresh bool `json:"refresh"`
	// User is the identity the token was issued to. A pointer so a payload
	// without it can be told apart from a zero identity.
	User *Identity `json:"user"`
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *TokenClaims) IsRefresh() bool {
	return c.Refresh
}

// UserID returns the identity id, or 0 when the payload carried no user.
func (c *TokenClaims) UserID() int64 {
	if c.User == nil {
		return 0
	}
	return c.User.ID
}
