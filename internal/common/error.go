// Package common defines shared constants and sentinel errors used across
// client and server layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("authentication failed")

	// Registration errors.
	ErrValidation    = errors.New("validation error")
	ErrUsernameTaken = errors.New("that username is already taken")

	// Session errors.
	ErrUnauthenticated = errors.New("not authenticated")

	// Token errors. All of them mean "not authenticated" to a caller, but they
	// stay distinct so that a bad secret or audience is visible in tests and logs.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongAudience  = errors.New("token audience mismatch")
	ErrMalformedToken = errors.New("malformed token")

	// Emoticon fetch errors.
	ErrInvalidKey          = errors.New("invalid emoticon key")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStorageWriteFailed  = errors.New("storage write failed")
)

// ValidationError reports a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
