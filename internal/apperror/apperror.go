// Package apperror defines the application's error taxonomy.
//
// Services raise these at the point of detection; the HTTP layer translates
// them into status codes at the boundary (see handler/response.go). Nothing
// below the handler layer knows about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors — one per taxonomy class. Check with errors.Is.
var (
	ErrNotFound     = errors.New("not found")        // → 404
	ErrValidation   = errors.New("validation error") // → 400
	ErrUnauthorized = errors.New("unauthorized")     // → 401
	ErrForbidden    = errors.New("forbidden")        // → 403
)

// AppError carries a sentinel (for classification) plus a human-readable
// message (for the response envelope). Unwrap makes errors.Is work through
// any number of fmt.Errorf("%w") wrappings above it.
type AppError struct {
	Err     error  // taxonomy sentinel
	Message string // human-readable error message
	Field   string // optional: field causing a validation error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError for the given taxonomy sentinel with a custom message.
func New(sentinel error, message string) *AppError {
	return &AppError{Err: sentinel, Message: message}
}

// NotFound reports a missing resource by id.
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %v", resource, id),
	}
}

// ValidationFailed reports a bad input value. The field name is surfaced so
// clients can attach the message to the offending input.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Unauthorized reports a missing, invalid, or expired credential.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Forbidden reports that the caller lacks permission.
// HTTP handlers map this to 403.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
