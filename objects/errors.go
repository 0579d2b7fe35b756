package objects

import (
	"errors"
	"fmt"
)

// Error taxonomy for the matching core. Callers are expected to branch with
// errors.Is / errors.As rather than string comparison.
var (
	// ErrStateConflict is returned when an operation hits a record that is
	// not in the state the operation requires (double-accept, decline of an
	// already accepted request, completing a retired exchange, ...).
	// No partial writes happen when this is returned.
	ErrStateConflict = errors.New("state conflict")

	// ErrNotFound is returned when the target record does not exist. For
	// idempotent operations (e.g. a second completion racing the cascade
	// delete) callers should treat it as a benign no-op.
	ErrNotFound = errors.New("not found")
)

// ValidationError rejects bad input before any write happens. Fully
// recoverable by the caller correcting the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransientStoreError wraps network/backend failures from the store. This is
// the only retryable error class.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store error during %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error {
	return e.Err
}
