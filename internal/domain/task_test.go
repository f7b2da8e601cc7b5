package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(t *testing.T) *Task {
	t.Helper()

	fp, err := NewFingerprint("great course, loved it", 0)
	require.NoError(t, err)

	task, err := NewTask(fp, "great course, loved it")
	require.NoError(t, err)

	return task
}

func TestNewTask(t *testing.T) {
	task := newTestTask(t)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, TaskStatePending, task.State)
	assert.Equal(t, 0, task.AttemptCount)
	assert.Empty(t, task.LastError)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Task)
		expectedErr error
	}{
		{
			name:        "valid task",
			mutate:      func(task *Task) {},
			expectedErr: nil,
		},
		{
			name:        "empty ID",
			mutate:      func(task *Task) { task.ID = uuid.Nil },
			expectedErr: ErrEmptyTaskID,
		},
		{
			name:        "empty fingerprint",
			mutate:      func(task *Task) { task.Fingerprint = "" },
			expectedErr: ErrEmptyTaskFingerprint,
		},
		{
			name:        "empty text",
			mutate:      func(task *Task) { task.Text = "" },
			expectedErr: ErrEmptyTaskText,
		},
		{
			name:        "invalid state",
			mutate:      func(task *Task) { task.State = "sleeping" },
			expectedErr: ErrInvalidTaskState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTestTask(t)
			tt.mutate(task)

			err := task.Validate()
			if tt.expectedErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.expectedErr)
			}
		})
	}
}

func TestTaskStateMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskState
		to      TaskState
		allowed bool
	}{
		{"pending to running", TaskStatePending, TaskStateRunning, true},
		{"pending to success skips running", TaskStatePending, TaskStateSuccess, false},
		{"pending to failure skips running", TaskStatePending, TaskStateFailure, false},
		{"running to success", TaskStateRunning, TaskStateSuccess, true},
		{"running to failure", TaskStateRunning, TaskStateFailure, true},
		{"running back to pending for retry", TaskStateRunning, TaskStatePending, true},
		{"success is terminal", TaskStateSuccess, TaskStatePending, false},
		{"success cannot rerun", TaskStateSuccess, TaskStateRunning, false},
		{"failure is terminal", TaskStateFailure, TaskStatePending, false},
		{"failure cannot succeed later", TaskStateFailure, TaskStateSuccess, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := newTestTask(t)
			task.State = tt.from

			err := task.TransitionTo(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, task.State)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, task.State)
			}
		})
	}
}

func TestTaskIsTerminal(t *testing.T) {
	task := newTestTask(t)

	assert.False(t, task.IsTerminal())

	task.State = TaskStateRunning
	assert.False(t, task.IsTerminal())

	task.State = TaskStateSuccess
	assert.True(t, task.IsTerminal())

	task.State = TaskStateFailure
	assert.True(t, task.IsTerminal())
}
