package promptlet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a promptlet reference no longer resolves.
	ErrNotFound = errors.New("promptlet not found")

	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid promptlet")
)

// ValidationError describes a rejected promptlet or import entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid promptlet: " + e.Reason
	}
	return fmt.Sprintf("invalid promptlet %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
