package models

import (
	"time"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// AuthEvent represents a single audit trail event.
type AuthEvent struct {
	ID         int64                    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventType  constants.AuditEventType `gorm:"type:varchar(64);not null;index" json:"event_type"`
	UserID     int64                    `gorm:"index" json:"user_id,omitempty"`
	Username   string                   `gorm:"type:varchar(64)" json:"username,omitempty"`
	JTI        string                   `gorm:"column:jti;type:varchar(64)" json:"jti,omitempty"`
	ClientIP   string                   `gorm:"type:varchar(64)" json:"client_ip,omitempty"`
	UserAgent  string                   `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
	Success    bool                     `gorm:"not null" json:"success"`
	Reason     string                   `gorm:"type:varchar(64)" json:"reason,omitempty"`
	OccurredAt time.Time                `gorm:"not null;index" json:"occurred_at"`
}

func (AuthEvent) TableName() string {
	return constants.TableAuthEvents
}

// NewAuthEvent creates a new audit event stamped with the current time.
func NewAuthEvent(eventType constants.AuditEventType, success bool) *AuthEvent {
	return &AuthEvent{
		EventType:  eventType,
		Success:    success,
		OccurredAt: time.Now().UTC(),
	}
}

// WithIdentity sets the user the event is about.
func (e *AuthEvent) WithIdentity(id Identity) *AuthEvent {
	e.UserID = id.ID
	e.Username = id.Username
	return e
}

// WithUsername sets only the username, for events before a user is resolved.
func (e *AuthEvent) WithUsername(username string) *AuthEvent {
	e.Username = username
	return e
}

// WithJTI sets the token id involved.
func (e *AuthEvent) WithJTI(jti string) *AuthEvent {
	e.JTI = jti
	return e
}

// WithClient sets context-related information.
func (e *AuthEvent) WithClient(client ClientInfo) *AuthEvent {
	e.ClientIP = client.IP
	e.UserAgent = client.UserAgent
	return e
}

// WithReason sets the error code of a failed event.
func (e *AuthEvent) WithReason(code constants.ErrorCode) *AuthEvent {
	e.Reason = string(code)
	return e
}

//Personal.AI order the ending
