package service

import (
	"context"
	"time"

	"github.com/turtacn/tokenlife/internal/domain/models"
)

// AccessTokenDenylist stores the jtis of access tokens revoked before their expiry.
// AccessTokenDenylist 存储在过期前被吊销的访问令牌 JTI。
type AccessTokenDenylist interface {
	// Revoke adds jti to the denylist until exp. A jti that has already
	// expired is not stored.
	Revoke(ctx context.Context, jti string, exp time.Time) error
	// IsRevoked checks if jti is on the denylist.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuditService defines the interface for logging security-sensitive audit events.
// AuditService 定义了用于记录安全敏感审计事件的接口。
type AuditService interface {
	// LogEvent records an audit event.
	// LogEvent 记录审计事件。
	LogEvent(ctx context.Context, event *models.AuthEvent) error
}

// SecretSource yields the symmetric signing secret.
type SecretSource interface {
	SigningSecret(ctx context.Context) ([]byte, error)
}

// StaticSecret is a SecretSource over a configured value.
type StaticSecret []byte

func (s StaticSecret) SigningSecret(context.Context) ([]byte, error) {
	return s, nil
}

//Personal.AI order the ending
