package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle state of a classification task.
type TaskState string

// Possible task state values.
const (
	TaskStatePending TaskState = "pending"
	TaskStateRunning TaskState = "running"
	TaskStateSuccess TaskState = "success"
	TaskStateFailure TaskState = "failure"
)

// Common validation errors for Task.
var (
	ErrEmptyTaskID          = errors.New("task ID cannot be empty")
	ErrEmptyTaskFingerprint = errors.New("task fingerprint cannot be empty")
	ErrEmptyTaskText        = errors.New("task text cannot be empty")
	ErrInvalidTaskState     = errors.New("invalid task state")
)

// Task is the durable record of one classification job's lifecycle.
// It is created in state pending by the dispatcher on a cache miss;
// after creation only the worker pool and the maintenance scheduler
// transition it. The original submitted text is carried on the task so
// workers can feed it to the classifier without a second lookup.
type Task struct {
	ID           uuid.UUID   `json:"id"`
	Fingerprint  Fingerprint `json:"fingerprint"`
	Text         string      `json:"text"`
	State        TaskState   `json:"state"`
	AttemptCount int         `json:"attempt_count"`
	LastError    string      `json:"last_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewTask creates a pending Task for the given fingerprint and text.
// It generates a new UUID for the task ID and sets both timestamps.
// Returns an error if validation fails.
func NewTask(fingerprint Fingerprint, text string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:           uuid.New(),
		Fingerprint:  fingerprint,
		Text:         text,
		State:        TaskStatePending,
		AttemptCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Fingerprint == "" {
		return ErrEmptyTaskFingerprint
	}

	if t.Text == "" {
		return ErrEmptyTaskText
	}

	if !isValidTaskState(t.State) {
		return ErrInvalidTaskState
	}

	return nil
}

// IsTerminal reports whether the task has reached a state that permits
// no further transitions.
func (t *Task) IsTerminal() bool {
	return t.State == TaskStateSuccess || t.State == TaskStateFailure
}

// CanTransitionTo reports whether the state machine permits moving from
// the task's current state to the target state:
//
//	pending → running            (worker claims)
//	running → success | failure  (terminal)
//	running → pending            (recoverable failure or staleness reaping)
func (t *Task) CanTransitionTo(target TaskState) bool {
	switch t.State {
	case TaskStatePending:
		return target == TaskStateRunning
	case TaskStateRunning:
		return target == TaskStateSuccess ||
			target == TaskStateFailure ||
			target == TaskStatePending
	default:
		// Terminal states permit nothing.
		return false
	}
}

// TransitionTo applies a state transition, updating UpdatedAt.
// Returns ErrInvalidTransition if the state machine forbids it.
func (t *Task) TransitionTo(target TaskState) error {
	if !isValidTaskState(target) {
		return ErrInvalidTaskState
	}

	if !t.CanTransitionTo(target) {
		return ErrInvalidTransition
	}

	t.State = target
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTaskState checks if the given state is a valid TaskState.
func isValidTaskState(state TaskState) bool {
	switch state {
	case TaskStatePending, TaskStateRunning, TaskStateSuccess, TaskStateFailure:
		return true
	default:
		return false
	}
}
