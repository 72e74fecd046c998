/*
errors.go - Centralized error types for the reservation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on the sentinels with errors.Is and read details from
  the structured errors with errors.As.

ERROR CATEGORIES:
  1. Validation errors - Missing or malformed input
  2. Lifecycle errors - Disallowed status edges
  3. Concurrency errors - Version mismatch on write
  4. Store errors - Collaborator failures (permission, integrity)

USAGE:
  if errors.Is(err, reservation.ErrInvalidTransition) {
      var te *reservation.TransitionError
      errors.As(err, &te)
      ...
  }

SEE ALSO:
  - lifecycle.go: Raises these errors
  - store/sqlite/sqlite.go: Classifies driver errors into StorageError
*/
package reservation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a reservation or client id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a status edge is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrConflict is returned when the stored version moved since it was read.
	// The read-modify-write should be retried from a fresh read.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrStorage is returned when the persistence collaborator fails.
	ErrStorage = errors.New("storage failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// TransitionError describes a rejected status edge.
type TransitionError struct {
	From Status
	To   Status
	Mode TransitionMode
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s (%s)", e.From, e.To, e.Mode)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "reservation", "client", "notice"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports a version mismatch on a reservation write.
type ConflictError struct {
	ID       string
	Expected int
	Actual   int // 0 when the store could not tell
}

func (e *ConflictError) Error() string {
	if e.Actual == 0 {
		return fmt.Sprintf("concurrent modification detected: reservation %s changed since version %d", e.ID, e.Expected)
	}
	return fmt.Sprintf("concurrent modification detected: reservation %s is at version %d, expected %d", e.ID, e.Actual, e.Expected)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// StorageKind classifies a collaborator failure.
type StorageKind string

const (
	// KindPermission: the store refused the write (read-only, access denied).
	KindPermission StorageKind = "permission"
	// KindIntegrity: a constraint was violated (e.g. a client still referenced).
	KindIntegrity StorageKind = "integrity"
	// KindUnavailable: anything else (I/O, closed connection).
	KindUnavailable StorageKind = "unavailable"
)

// StorageError wraps a collaborator failure with the operation that hit it.
type StorageError struct {
	Op   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the sentinel and the underlying driver error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StorageKindOf returns the kind of a wrapped StorageError, or "" if none.
func StorageKindOf(err error) StorageKind {
	var se *StorageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
