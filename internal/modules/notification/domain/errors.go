package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrValidation           = errors.New("validation failed")
	ErrRecipientNotFound    = errors.New("recipient not found")
	ErrLockHeld             = errors.New("maintenance lock held by another worker")
)

// ValidationError describes malformed caller input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RetryableStoreError marks a transient contention failure reported by the
// persistence engine (lock timeout, busy database, serialization conflict).
type RetryableStoreError struct {
	Err error
}

func (e *RetryableStoreError) Error() string {
	return fmt.Sprintf("transient store contention: %v", e.Err)
}

func (e *RetryableStoreError) Unwrap() error { return e.Err }

func IsRetryable(err error) bool {
	var rse *RetryableStoreError
	return errors.As(err, &rse)
}

// PersistenceError is returned when retries are exhausted or the engine
// fails with a non-retryable error.
type PersistenceError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

const (
	PhaseSoftDelete = "soft_delete"
	PhasePurge      = "purge"
)

// MaintenanceError names the sweeper phase that failed.
type MaintenanceError struct {
	Phase string
	Err   error
}

func (e *MaintenanceError) Error() string {
	return fmt.Sprintf("maintenance phase %s failed: %v", e.Phase, e.Err)
}

func (e *MaintenanceError) Unwrap() error { return e.Err }
