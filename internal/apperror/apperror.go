// Package apperror defines the application's error taxonomy.
//
// Services return these typed errors; the HTTP layer maps them to status
// codes in one place. errors.Is works against the sentinels because
// AppError implements Unwrap.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrPaymentRequired = errors.New("payment required")
	ErrStorage         = errors.New("storage failure")
	ErrDecode          = errors.New("decode failure")
)

type AppError struct {
	Err     error  // sentinel classifying the error
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation, e.g. a duplicate email at
// registration.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden reports that the caller lacks permission for the operation,
// including self-modification attempts by admins.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports a failed credential check. No detail about which
// part of the credential was wrong is ever included.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// PaymentRequired reports that the operation is gated behind a paid plan.
func PaymentRequired(message string) *AppError {
	return &AppError{
		Err:     ErrPaymentRequired,
		Message: message,
	}
}

// Storage wraps a persistence failure. The underlying error is kept for
// logging; the message shown to callers stays generic.
func Storage(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrStorage, err),
		Message: "failed to persist changes",
	}
}

// Decode wraps a malformed-stored-data failure. Callers treat the affected
// collection as absent rather than failing the session.
func Decode(key string, err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrDecode, err),
		Message: fmt.Sprintf("stored data for %q is malformed", key),
	}
}
