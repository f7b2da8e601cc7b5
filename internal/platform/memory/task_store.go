package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/store"
)

// TaskStore implements store.TaskStore with a mutex-guarded map. All
// compare-and-set semantics the postgres store gets from conditional
// UPDATEs are reproduced here under the lock.
type TaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task
}

// NewTaskStore creates an empty in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Create persists a new task. Returns store.ErrDuplicate if a
// non-terminal task already exists for the same fingerprint.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.ErrInvalidEntity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.tasks {
		if existing.Fingerprint == task.Fingerprint && !existing.IsTerminal() {
			return store.ErrDuplicate
		}
	}

	s.tasks[task.ID] = copyTask(task)
	return nil
}

// GetByID retrieves a task by its unique ID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return copyTask(task), nil
}

// FindInFlightByFingerprint returns the pending or running task for the
// fingerprint, if any.
func (s *TaskStore) FindInFlightByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks {
		if task.Fingerprint == fp && !task.IsTerminal() {
			return copyTask(task), nil
		}
	}
	return nil, store.ErrTaskNotFound
}

// Claim transitions pending → running and increments the attempt count.
func (s *TaskStore) Claim(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if task.State != domain.TaskStatePending {
		return nil, store.ErrStateConflict
	}

	task.State = domain.TaskStateRunning
	task.AttemptCount++
	task.UpdatedAt = time.Now().UTC()
	return copyTask(task), nil
}

// Complete transitions running → success.
func (s *TaskStore) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(id, domain.TaskStateRunning, domain.TaskStateSuccess, "")
}

// Fail transitions pending or running → failure, recording the error.
func (s *TaskStore) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.IsTerminal() {
		return store.ErrStateConflict
	}

	task.State = domain.TaskStateFailure
	task.LastError = errMsg
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// ReleaseForRetry transitions running → pending, recording the error
// that caused the retry.
func (s *TaskStore) ReleaseForRetry(ctx context.Context, id uuid.UUID, errMsg string) error {
	return s.transition(id, domain.TaskStateRunning, domain.TaskStatePending, errMsg)
}

// ReapStale returns non-terminal tasks older than the threshold:
// running tasks are reset to pending, stale pending tasks (whose queue
// message was lost) are returned unchanged except for the refreshed
// timestamp.
func (s *TaskStore) ReapStale(ctx context.Context, olderThan time.Duration) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	var reaped []*domain.Task

	for _, task := range s.tasks {
		if task.IsTerminal() || !task.UpdatedAt.Before(cutoff) {
			continue
		}

		if task.State == domain.TaskStateRunning {
			task.State = domain.TaskStatePending
			task.LastError = "reset after staleness reaping"
		}
		task.UpdatedAt = time.Now().UTC()
		reaped = append(reaped, copyTask(task))
	}

	return reaped, nil
}

// PurgeTerminalBefore deletes terminal tasks last updated before cutoff.
func (s *TaskStore) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, task := range s.tasks {
		if task.IsTerminal() && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			purged++
		}
	}
	return purged, nil
}

// transition is the shared conditional state change: from → to, with an
// optional error message recorded on the task.
func (s *TaskStore) transition(id uuid.UUID, from, to domain.TaskState, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if task.State != from {
		return store.ErrStateConflict
	}

	task.State = to
	if errMsg != "" {
		task.LastError = errMsg
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// copyTask returns a defensive copy so callers never alias store state.
func copyTask(task *domain.Task) *domain.Task {
	c := *task
	return &c
}
