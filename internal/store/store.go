package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coursepulse/classifier-api/internal/domain"
)

// TaskStore defines the interface for persisting classification tasks.
// The store is the single source of truth for task state; every
// transition method is a conditional compare-and-set on the state
// column so that racing workers and the maintenance scheduler cannot
// both win the same transition. A lost race yields ErrStateConflict.
type TaskStore interface {
	// Create persists a new task. Returns ErrDuplicate if another
	// non-terminal task already exists for the same fingerprint.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// FindInFlightByFingerprint returns the pending or running task for
	// the given fingerprint, if one exists. Returns ErrTaskNotFound when
	// no task is in flight for the fingerprint.
	FindInFlightByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Task, error)

	// Claim transitions a task from pending to running and increments
	// its attempt count, returning the updated task. Returns
	// ErrStateConflict if the task is not pending (another worker
	// claimed it, or it already completed).
	Claim(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Complete transitions a task from running to success.
	// Returns ErrStateConflict if the task is not running.
	Complete(ctx context.Context, id uuid.UUID) error

	// Fail transitions a task from pending or running to failure,
	// recording the final error message. Returns ErrStateConflict if
	// the task is already terminal.
	Fail(ctx context.Context, id uuid.UUID, errMsg string) error

	// ReleaseForRetry transitions a task from running back to pending,
	// recording the error that caused the retry. Returns
	// ErrStateConflict if the task is not running.
	ReleaseForRetry(ctx context.Context, id uuid.UUID, errMsg string) error

	// ReapStale returns non-terminal tasks untouched for longer than the
	// staleness threshold so the caller can re-enqueue them: running
	// tasks (presumed dead worker) are reset to pending, and pending
	// tasks are returned as-is since a stale pending task means its
	// queue message was lost. Every returned task gets a fresh
	// updated_at, so it is handed to at most one concurrent caller and
	// not returned again until stale anew.
	ReapStale(ctx context.Context, olderThan time.Duration) ([]*domain.Task, error)

	// PurgeTerminalBefore deletes terminal tasks whose last update is
	// older than the cutoff, returning the number removed.
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ResultCache defines the interface for the fingerprint-keyed result
// cache. Writes are idempotent: rewriting a fingerprint's result with an
// equivalent value is harmless.
type ResultCache interface {
	// Get returns the unexpired result for the fingerprint.
	// Returns ErrResultNotFound on a miss or when the entry has expired.
	Get(ctx context.Context, fp domain.Fingerprint) (*domain.Result, error)

	// Put stores the result keyed by its fingerprint, replacing any
	// existing entry.
	Put(ctx context.Context, result *domain.Result) error

	// EvictExpired removes entries whose expiry is at or before now,
	// returning the number evicted. Idempotent, so concurrent scheduler
	// instances can run it safely.
	EvictExpired(ctx context.Context, now time.Time) (int, error)
}
