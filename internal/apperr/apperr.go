// Package apperr defines the error taxonomy shared across Switchboard
// services. Callers classify failures with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks a request that is structurally or semantically invalid.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden marks a mutation attempted without edit access.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict marks a lost-update detected by serialization checks.
	ErrConflict = errors.New("conflict")

	// ErrNoMatch is the defined non-match outcome of rule evaluation. It is
	// not a failure: callers treat it as a no-op, distinct from validation.
	ErrNoMatch = errors.New("no routing match")
)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return wrap(ErrValidation, format, args...)
}

// Forbidden wraps ErrForbidden with a formatted message.
func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

// NoMatch wraps ErrNoMatch with a formatted message.
func NoMatch(format string, args ...any) error {
	return wrap(ErrNoMatch, format, args...)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
