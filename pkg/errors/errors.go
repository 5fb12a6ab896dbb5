// Package errors defines the error taxonomy of the tokenlife service.
// Every error carries a machine-readable code and the HTTP status it maps to.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// AuthError represents a structured error with additional metadata
type AuthError interface {
	error

	// Code returns the machine-readable error code
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code
	HTTPStatus() int

	// Description returns a human-readable description safe to show clients
	Description() string

	// Unwrap returns the underlying error for error chain support
	Unwrap() error

	// WithCause adds a cause error to the error chain
	WithCause(cause error) AuthError

	// WithMetadata adds additional context metadata
	WithMetadata(key string, value interface{}) AuthError

	// Metadata returns all metadata
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

func (e *baseError) Error() string {
	msg := e.description
	if e.message != "" {
		msg = e.message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Code() constants.ErrorCode {
	return e.code
}

func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

func (e *baseError) Description() string {
	return e.description
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) WithCause(cause error) AuthError {
	e.cause = cause
	return e
}

func (e *baseError) WithMetadata(key string, value interface{}) AuthError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new AuthError with the specified parameters
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) AuthError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Token Errors
// ================================================================================

// ErrMalformedToken is returned when a token cannot be parsed or lacks required claims.
func ErrMalformedToken(reason string) AuthError {
	return NewError(
		constants.ErrCodeMalformedToken,
		http.StatusUnauthorized,
		"Could not validate token.",
		fmt.Sprintf("token is malformed: %s", reason),
	).WithMetadata("reason", reason)
}

// ErrInvalidSignature is returned when the token signature does not verify.
func ErrInvalidSignature() AuthError {
	return NewError(
		constants.ErrCodeInvalidSignature,
		http.StatusUnauthorized,
		"Could not validate token.",
		"token signature verification failed",
	)
}

// ErrExpiredToken is returned when the embedded expiry is in the past.
func ErrExpiredToken() AuthError {
	return NewError(
		constants.ErrCodeExpiredToken,
		http.StatusUnauthorized,
		"Token has expired.",
		"token has expired",
	)
}

// ErrRefreshTokenExpired wraps ErrExpiredToken for the rotation path.
func ErrRefreshTokenExpired() AuthError {
	return NewError(
		constants.ErrCodeRefreshTokenExpired,
		http.StatusUnauthorized,
		"Refresh token has expired, please log in again.",
		"refresh token has expired",
	).WithCause(ErrExpiredToken())
}

// ErrWrongTokenType is returned when an access token is presented where a refresh
// token is required, or the other way round.
func ErrWrongTokenType(expected constants.TokenType) AuthError {
	return NewError(
		constants.ErrCodeWrongTokenType,
		http.StatusUnauthorized,
		fmt.Sprintf("Provide a valid %s token.", expected),
		fmt.Sprintf("expected a %s token", expected),
	).WithMetadata("expected_token_type", string(expected))
}

// ErrRefreshTokenRevoked is returned when a refresh token is absent from the store.
func ErrRefreshTokenRevoked() AuthError {
	return NewError(
		constants.ErrCodeRefreshTokenRevoked,
		http.StatusUnauthorized,
		"An invalid refresh token was provided.",
		"refresh token is not live in the revocation store",
	)
}

// ErrAccessTokenRevoked is returned for access tokens placed on the denylist.
func ErrAccessTokenRevoked() AuthError {
	return NewError(
		constants.ErrCodeAccessTokenRevoked,
		http.StatusUnauthorized,
		"Access token has been revoked.",
		"access token is on the denylist",
	)
}

// ================================================================================
// Credential Errors
// ================================================================================

// ErrAuthenticationFailed is the single outward signal for bad credentials.
func ErrAuthenticationFailed() AuthError {
	return NewError(
		constants.ErrCodeAuthenticationFailed,
		http.StatusUnauthorized,
		"Failed authentication",
		"authentication failed",
	)
}

// ErrMissingCredential is returned when no cookie or header was presented.
func ErrMissingCredential(name string) AuthError {
	return NewError(
		constants.ErrCodeMissingCredential,
		http.StatusUnauthorized,
		"Not authenticated",
		fmt.Sprintf("missing credential: %s", name),
	).WithMetadata("credential", name)
}

// ================================================================================
// Infrastructure Errors
// ================================================================================

// ErrStorageConflict signals a uniqueness violation that should never happen
// during normal operation.
func ErrStorageConflict(what string) AuthError {
	return NewError(
		constants.ErrCodeStorageConflict,
		http.StatusInternalServerError,
		"The server encountered an unexpected condition.",
		fmt.Sprintf("storage conflict: %s already exists", what),
	).WithMetadata("entity", what)
}

// ErrConfiguration is fatal at startup.
func ErrConfiguration(reason string) AuthError {
	return NewError(
		constants.ErrCodeConfiguration,
		http.StatusInternalServerError,
		"Service is misconfigured.",
		fmt.Sprintf("configuration error: %s", reason),
	).WithMetadata("reason", reason)
}

// ErrServerError creates a generic internal error
func ErrServerError(message string) AuthError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"The server encountered an unexpected condition.",
		message,
	)
}

// ================================================================================
// Request Errors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error
func ErrInvalidRequest(message string) AuthError {
	return NewError(
		constants.ErrCodeInvalidRequest,
		http.StatusBadRequest,
		message,
		message,
	)
}

// ErrUserExists is returned when registration collides with an existing user.
func ErrUserExists() AuthError {
	return NewError(
		constants.ErrCodeUserExists,
		http.StatusConflict,
		"User already exists!",
		"user already exists",
	)
}

// ErrNotFound creates a not_found error
func ErrNotFound(resource string) AuthError {
	return NewError(
		constants.ErrCodeNotFound,
		http.StatusNotFound,
		fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("%s not found", resource),
	).WithMetadata("resource", resource)
}

// ErrRateLimitExceeded creates a rate limit exceeded error
func ErrRateLimitExceeded(scope constants.RateLimitScope, limit int) AuthError {
	return NewError(
		constants.ErrCodeRateLimitExceeded,
		http.StatusTooManyRequests,
		"Rate limit exceeded. Please try again later.",
		fmt.Sprintf("rate limit exceeded for scope '%s': %d requests", scope, limit),
	).WithMetadata("scope", string(scope)).
		WithMetadata("limit", limit)
}

// ================================================================================
// Error Utilities
// ================================================================================

// AsAuthError finds the first AuthError in err's chain.
func AsAuthError(err error) (AuthError, bool) {
	var authErr AuthError
	if stderrors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// HasCode reports whether any AuthError in err's chain carries code.
func HasCode(err error, code constants.ErrorCode) bool {
	for err != nil {
		if authErr, ok := err.(AuthError); ok && authErr.Code() == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// WrapError wraps a generic error into an AuthError
func WrapError(err error, code constants.ErrorCode, message string) AuthError {
	var httpStatus int

	switch code {
	case constants.ErrCodeInvalidRequest:
		httpStatus = http.StatusBadRequest
	case constants.ErrCodeMalformedToken, constants.ErrCodeInvalidSignature,
		constants.ErrCodeExpiredToken, constants.ErrCodeWrongTokenType,
		constants.ErrCodeRefreshTokenRevoked, constants.ErrCodeAuthenticationFailed,
		constants.ErrCodeMissingCredential:
		httpStatus = http.StatusUnauthorized
	case constants.ErrCodeNotFound:
		httpStatus = http.StatusNotFound
	case constants.ErrCodeUserExists:
		httpStatus = http.StatusConflict
	default:
		httpStatus = http.StatusInternalServerError
	}

	return NewError(code, httpStatus, message, message).WithCause(err)
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ToErrorResponse converts an AuthError to an ErrorResponse
func ToErrorResponse(err AuthError) *ErrorResponse {
	return &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
	}
}

// ToGenericErrorResponse converts any error to an ErrorResponse and its status.
func ToGenericErrorResponse(err error) (int, *ErrorResponse) {
	if authErr, ok := AsAuthError(err); ok {
		return authErr.HTTPStatus(), ToErrorResponse(authErr)
	}

	return http.StatusInternalServerError, &ErrorResponse{
		Error:            string(constants.ErrCodeServerError),
		ErrorDescription: "An unexpected error occurred",
	}
}

// ShouldLogError determines if an error should be logged at error level
func ShouldLogError(err error) bool {
	if authErr, ok := AsAuthError(err); ok {
		return authErr.HTTPStatus() >= http.StatusInternalServerError
	}
	return true
}

//Personal.AI order the ending
