/*
errors.go - Centralized error taxonomy for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The four categories mirror what callers need to distinguish:

  1. Validation errors - malformed caller input (bad amount, same-account transfer)
  2. Not-found errors  - referenced entity is absent (contributing to a deleted goal)
  3. Backend errors    - storage-layer failure (network, constraint violation)
  4. Partial failure   - a multi-row operation stopped part-way (transfer credit leg)

USAGE:
  if errors.Is(err, ledger.ErrValidation) { ... }

  var nf *ledger.NotFoundError
  if errors.As(err, &nf) { log.Printf("missing %s %s", nf.Kind, nf.ID) }

SEE ALSO:
  - transfer.go: TransferError, the structured partial-failure error
  - engine.go: How mutations surface these to callers
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing caller input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrBackend is returned when the storage backend fails (network,
	// constraint violation, corrupt local document).
	ErrBackend = errors.New("storage backend failure")

	// ErrPartialFailure is returned when a multi-row operation completed some
	// writes but not all. The transfer credit-leg failure wraps this even
	// after successful compensation.
	ErrPartialFailure = errors.New("partial failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes which input field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// BackendError wraps a storage-layer failure with the operation that hit it.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return ErrBackend }

// Cause returns the underlying storage error.
func (e *BackendError) Cause() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound)
}

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
