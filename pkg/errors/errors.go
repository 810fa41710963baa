package custom_error

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input is rejected before anything is persisted.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthorizationError means the actor's role does not allow the operation.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return e.Message
}

func Forbidden(format string, args ...any) *AuthorizationError {
	return &AuthorizationError{Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func NotFound(resource string, id any) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError means the request is well formed but the current state forbids it.
type ConflictError struct {
	Message string
	code    string // PostgreSQL error code when raised from a constraint
}

func (e *ConflictError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("%s (code: %s)", e.Message, e.code)
	}
	return e.Message
}

func Conflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// RateLimitError means the caller has used up its request window.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

// WrapDBError maps PostgreSQL constraint codes onto the domain taxonomy.
func WrapDBError(message, code string) error {
	switch code {
	case "23505":
		return &ConflictError{Message: "Duplicate value: " + message, code: code}
	case "23503":
		return &ConflictError{Message: "Value is already used by other resources " + message, code: code}
	case "23514":
		return &ValidationError{Fields: []FieldError{{Field: "record", Message: message}}}
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s", code, message)
	}
}

// StatusCode picks the HTTP status for err.
func StatusCode(err error) int {
	var (
		validationErr *ValidationError
		authErr       *AuthorizationError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
		rateLimitErr  *RateLimitError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusForbidden
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Details returns the field list for validation errors, nil otherwise.
func Details(err error) []FieldError {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}
