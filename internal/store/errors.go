package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in
	// the store. This is a generic version of the entity-specific not
	// found errors (e.g., ErrTaskNotFound, ErrResultNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a
	// duplicate of a unique entity (e.g., a second task for an
	// in-flight fingerprint).
	ErrDuplicate = errors.New("entity already exists")

	// ErrStateConflict is returned when a conditional state transition
	// fails because the task is no longer in the expected state. Racing
	// workers rely on this to detect that another worker already claimed
	// or finished the task.
	ErrStateConflict = errors.New("task state conflict")

	// ErrInvalidEntity is returned when an entity fails validation
	// before being stored.
	ErrInvalidEntity = errors.New("invalid entity")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist
	// in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrResultNotFound indicates that no unexpired result exists for
	// the requested fingerprint. A cache miss and an expired entry are
	// indistinguishable to callers.
	ErrResultNotFound = fmt.Errorf("%w: result", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStateConflictError checks if the error indicates a lost
// compare-and-set race on a task state transition.
func IsStateConflictError(err error) bool {
	return errors.Is(err, ErrStateConflict)
}
