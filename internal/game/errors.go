package game

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing game, player, realm, timeline, rift or quest.
	ErrNotFound = errors.New("not found")

	// ErrStore marks a persistence failure. Callers may retry.
	ErrStore = errors.New("store failure")

	// ErrOracleParse marks generated text without usable structured output.
	// It is logged and counted but never returned from generation paths.
	ErrOracleParse = errors.New("oracle parse")
)

// ValidationError reports a malformed input record or a broken invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFound wraps ErrNotFound with the kind and id that were missing.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// StoreFailure wraps a driver error as a retryable store failure.
func StoreFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
