package xerrors

import (
	"errors"
	"fmt"
	"time"
)

// Common reusable application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict: resource already exists")
	ErrInternal     = errors.New("internal server error")
	ErrBadRequest   = errors.New("bad request")
)

// Authentication and authorization failures. Each verification failure is a
// distinct sentinel so callers can assert on cause rather than a generic
// "unauthorized".
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")

	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenTypeMismatch     = errors.New("token type mismatch")
	ErrTokenRevoked          = errors.New("token revoked")

	ErrSessionNotFound        = errors.New("session not found or no longer active")
	ErrInsufficientPermission = errors.New("insufficient permission")
	ErrRateLimited            = errors.New("too many requests")
)

// LockoutError carries the remaining lock duration for an AccountLocked
// failure. Unwraps to ErrAccountLocked.
type LockoutError struct {
	RetryAfter time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *LockoutError) Unwrap() error { return ErrAccountLocked }

// PermissionError names the permission the caller is missing. Unwraps to
// ErrInsufficientPermission. The message names the permission only, never the
// role logic behind it.
type PermissionError struct {
	Permission string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("missing required permission: %s", e.Permission)
}

func (e *PermissionError) Unwrap() error { return ErrInsufficientPermission }

// RateLimitError carries a retry-after hint. Unwraps to ErrRateLimited.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
