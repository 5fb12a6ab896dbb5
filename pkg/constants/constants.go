// Package constants defines system-wide constants for the tokenlife service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Token Type Constants
// ================================================================================

// TokenType represents the type of authentication token
type TokenType string

const (
	// TokenTypeAccess represents a short-lived access token
	TokenTypeAccess TokenType = "access"

	// TokenTypeRefresh represents a single-use refresh token
	TokenTypeRefresh TokenType = "refresh"

	// TokenTypeBearer is the token_type reported to clients
	TokenTypeBearer = "bearer"
)

// ================================================================================
// JWT Algorithm Constants
// ================================================================================

// JWTAlgorithm represents the signing algorithm for JWT tokens
type JWTAlgorithm string

const (
	AlgorithmHS256 JWTAlgorithm = "HS256"
	AlgorithmHS384 JWTAlgorithm = "HS384"
	AlgorithmHS512 JWTAlgorithm = "HS512"
)

// DefaultJWTAlgorithm is the default algorithm used for token signing
const DefaultJWTAlgorithm = AlgorithmHS256

// ================================================================================
// Token Lifetime Constants
// ================================================================================

const (
	// AccessTokenDefaultTTL is the default lifetime for access tokens (10 minutes)
	AccessTokenDefaultTTL = 10 * time.Minute

	// RefreshTokenDefaultTTL is the default lifetime for refresh tokens (2 days)
	RefreshTokenDefaultTTL = 48 * time.Hour
)

// ================================================================================
// Transport Constants
// ================================================================================

const (
	// AuthPrefix is the route group for authentication endpoints
	AuthPrefix = "/auth"

	// LoginPath is the login endpoint relative to AuthPrefix
	LoginPath = "/login"

	// RefreshPath is the refresh/logout endpoint relative to AuthPrefix
	RefreshPath = "/refresh"

	// SessionsPath lists and revokes the caller's sessions
	SessionsPath = "/sessions"

	// UserPrefix is the route group for the current user's profile
	UserPrefix = "/user"

	// RefreshTokenCookie is the cookie carrying the refresh token
	RefreshTokenCookie = "refresh_token"

	// HeaderAuthorization carries the access token
	HeaderAuthorization = "Authorization"

	// HeaderRequestID is propagated in requests and responses
	HeaderRequestID = "X-Request-ID"

	// LogoutMessage is the detail returned on a successful logout
	LogoutMessage = "Logged out"
)

// ================================================================================
// Role Constants
// ================================================================================

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	ErrCodeMalformedToken       ErrorCode = "malformed_token"
	ErrCodeInvalidSignature     ErrorCode = "invalid_signature"
	ErrCodeExpiredToken         ErrorCode = "expired_token"
	ErrCodeRefreshTokenExpired  ErrorCode = "refresh_token_expired"
	ErrCodeWrongTokenType       ErrorCode = "wrong_token_type"
	ErrCodeRefreshTokenRevoked  ErrorCode = "refresh_token_revoked"
	ErrCodeAccessTokenRevoked   ErrorCode = "access_token_revoked"
	ErrCodeAuthenticationFailed ErrorCode = "authentication_failed"
	ErrCodeMissingCredential    ErrorCode = "missing_credential"
	ErrCodeStorageConflict      ErrorCode = "storage_conflict"
	ErrCodeConfiguration        ErrorCode = "configuration_error"
	ErrCodeInvalidRequest       ErrorCode = "invalid_request"
	ErrCodeUserExists           ErrorCode = "user_exists"
	ErrCodeNotFound             ErrorCode = "not_found"
	ErrCodeRateLimitExceeded    ErrorCode = "rate_limit_exceeded"
	ErrCodeServerError          ErrorCode = "server_error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type for values stored in request contexts
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeyClaims    ContextKey = "claims"
	ContextKeyRawToken  ContextKey = "raw_access_token"
)

// ================================================================================
// Audit Event Types
// ================================================================================

// AuditEventType classifies entries in the audit trail
type AuditEventType string

const (
	AuditEventLoginSucceeded        AuditEventType = "login_succeeded"
	AuditEventLoginFailed           AuditEventType = "login_failed"
	AuditEventTokenRotated          AuditEventType = "token_rotated"
	AuditEventRefreshReplayDetected AuditEventType = "refresh_replay_detected"
	AuditEventLogout                AuditEventType = "logout"
	AuditEventSessionsRevoked       AuditEventType = "sessions_revoked"
	AuditEventUserRegistered        AuditEventType = "user_registered"
	AuditEventPasswordChanged       AuditEventType = "password_changed"
)

// ================================================================================
// Rate Limiting Constants
// ================================================================================

// RateLimitScope names the dimension a limit is applied to
type RateLimitScope string

const (
	RateLimitScopeLoginIP RateLimitScope = "login_ip"
)

const (
	// DefaultLoginRateLimitPerMinute bounds login attempts per client IP
	DefaultLoginRateLimitPerMinute = 20
)

// ================================================================================
// Cache / Storage Constants
// ================================================================================

const (
	// DenylistKeyPrefix prefixes Redis keys of revoked access-token jtis
	DenylistKeyPrefix = "tokenlife:denylist"

	// RateLimitKeyPrefix prefixes Redis keys of rate limit buckets
	RateLimitKeyPrefix = "tokenlife:ratelimit"

	TableUsers         = "users"
	TableRefreshTokens = "refresh_tokens"
	TableAuthEvents    = "auth_events"
)

// ================================================================================
// Audit Sinks
// ================================================================================

const (
	AuditSinkLog      = "log"
	AuditSinkDatabase = "database"
	AuditSinkKafka    = "kafka"
)

// ================================================================================
// Environments
// ================================================================================

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ================================================================================
// Database Drivers
// ================================================================================

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//Personal.AI order the ending
