// Package apperror defines the error taxonomy shared by every layer.
//
// Each AppError wraps one sentinel (ErrValidation, ErrIdentity, ...) so callers
// classify with errors.Is, and carries a Message that is safe to show a user.
// The underlying remote failure, when there is one, is kept in Cause for logs.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrIdentity        = errors.New("identity service error")
	ErrRecordStore     = errors.New("record store error")
)

type AppError struct {
	Err     error  // sentinel kind
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: remote failure behind the error, never shown to users
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// UserMessager is implemented by remote errors whose text was written for
// end users (e.g. "Invalid login credentials" from the identity service).
type UserMessager interface {
	UserMessage() string
}

// UserMessage extracts the user-facing text from err, or returns fallback
// when err carries none.
func UserMessage(err error, fallback string) string {
	var um UserMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when an operation needs a session and there is none.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Identity classifies a failure reported by (or while talking to) the
// identity service. The message is the service's own text when it has one.
func Identity(cause error, fallback string) *AppError {
	return &AppError{
		Err:     ErrIdentity,
		Message: UserMessage(cause, fallback),
		Cause:   cause,
	}
}

// RecordStore classifies a failure of the remote record store.
func RecordStore(cause error, fallback string) *AppError {
	return &AppError{
		Err:     ErrRecordStore,
		Message: UserMessage(cause, fallback),
		Cause:   cause,
	}
}

// Kind returns a short machine-readable name for err's sentinel, used as a
// metric label and in JSON error bodies.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrIdentity):
		return "identity_error"
	case errors.Is(err, ErrRecordStore):
		return "record_store_error"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal_error"
	}
}
