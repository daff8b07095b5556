package broker

import (
	"errors"
	"fmt"
)

// ValidationError reports missing or malformed input to spec generation.
// It is fatal to the failing call only.
type ValidationError struct {
	// Field names the offending argument or "tool" for registry misses.
	Field string
	// Reason explains what was wrong.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown or already swept execution identifier.
type NotFoundError struct {
	// ID is the identifier that was looked up.
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("execution spec not found: %s", e.ID)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
