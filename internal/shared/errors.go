package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrForbidden indicates the actor lacks a required role.
	ErrForbidden = httpx.ErrForbidden
	// ErrInvalidState indicates a status transition that is not allowed.
	ErrInvalidState = fmt.Errorf("invalid state transition: %w", httpx.ErrConflict)
)

// ValidationError aborts a record save and is shown to the caller. It carries
// one message per offending field.
type ValidationError struct {
	fields map[string]string
}

// NewValidationError builds an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{fields: map[string]string{}}
}

// Add records a failing field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if _, ok := e.fields[field]; ok {
		return
	}
	e.fields[field] = message
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if e == nil || len(e.fields) == 0 {
		return nil
	}
	return e
}

// Fields exposes the failing fields.
func (e *ValidationError) Fields() map[string]string { return e.fields }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.fields[k])
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return httpx.ErrValidation }

// Invalid is a shorthand for a single-field validation error.
func Invalid(field, message string) error {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

// UserSafeMessage returns the message to show for err. Internal failures are
// masked.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, httpx.ErrValidation), errors.Is(err, httpx.ErrNotFound), errors.Is(err, ErrInvalidState):
		return err.Error()
	default:
		return "An unexpected error occurred. Please try again."
	}
}
