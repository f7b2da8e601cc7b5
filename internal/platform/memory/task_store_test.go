package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/store"
)

func createTestTask(t *testing.T, s *TaskStore, text string) *domain.Task {
	t.Helper()

	fp, err := domain.NewFingerprint(text, 0)
	require.NoError(t, err)

	task, err := domain.NewTask(fp, text)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), task))
	return task
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course, loved it")

	got, err := s.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.TaskStatePending, got.State)
}

func TestTaskStoreGetUnknownID(t *testing.T) {
	s := NewTaskStore()

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreDuplicateInFlightFingerprint(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	dup, err := domain.NewTask(task.Fingerprint, task.Text)
	require.NoError(t, err)

	err = s.Create(context.Background(), dup)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	// Once the first task is terminal, a new one is allowed.
	_, err = s.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	require.NoError(t, s.Complete(context.Background(), task.ID))

	assert.NoError(t, s.Create(context.Background(), dup))
}

func TestTaskStoreFindInFlightByFingerprint(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	found, err := s.FindInFlightByFingerprint(context.Background(), task.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, task.ID, found.ID)

	_, err = s.FindInFlightByFingerprint(context.Background(), "unknown")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	// Terminal tasks are not in flight.
	_, err = s.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	require.NoError(t, s.Complete(context.Background(), task.ID))

	_, err = s.FindInFlightByFingerprint(context.Background(), task.Fingerprint)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskStoreClaim(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	claimed, err := s.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateRunning, claimed.State)
	assert.Equal(t, 1, claimed.AttemptCount)

	// A second claim loses the race.
	_, err = s.Claim(context.Background(), task.ID)
	assert.ErrorIs(t, err, store.ErrStateConflict)
}

func TestTaskStoreClaimRaceSingleWinner(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Claim(context.Background(), task.ID); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)

	got, err := s.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AttemptCount)
}

func TestTaskStoreCompleteRequiresRunning(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	err := s.Complete(context.Background(), task.ID)
	assert.ErrorIs(t, err, store.ErrStateConflict)

	_, err = s.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	require.NoError(t, s.Complete(context.Background(), task.ID))

	got, err := s.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateSuccess, got.State)
}

func TestTaskStoreFail(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	_, err := s.Claim(context.Background(), task.ID)
	require.NoError(t, err)

	require.NoError(t, s.Fail(context.Background(), task.ID, "inference exploded"))

	got, err := s.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateFailure, got.State)
	assert.Equal(t, "inference exploded", got.LastError)

	// Terminal tasks cannot fail again.
	err = s.Fail(context.Background(), task.ID, "again")
	assert.ErrorIs(t, err, store.ErrStateConflict)
}

func TestTaskStoreReleaseForRetry(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	_, err := s.Claim(context.Background(), task.ID)
	require.NoError(t, err)

	require.NoError(t, s.ReleaseForRetry(context.Background(), task.ID, "timeout"))

	got, err := s.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatePending, got.State)
	assert.Equal(t, "timeout", got.LastError)
	assert.Equal(t, 1, got.AttemptCount, "attempt count never resets")

	// Claiming again increments attempts.
	claimed, err := s.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, claimed.AttemptCount)
}

func TestTaskStoreReapStale(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	_, err := s.Claim(context.Background(), task.ID)
	require.NoError(t, err)

	// Backdate the running task past the threshold.
	s.mu.Lock()
	s.tasks[task.ID].UpdatedAt = time.Now().UTC().Add(-time.Hour)
	s.mu.Unlock()

	reaped, err := s.ReapStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, task.ID, reaped[0].ID)
	assert.Equal(t, domain.TaskStatePending, reaped[0].State)

	// A second pass finds nothing: reaping is idempotent.
	reaped, err = s.ReapStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, reaped)
}

func TestTaskStoreReapStalePending(t *testing.T) {
	s := NewTaskStore()
	task := createTestTask(t, s, "great course")

	// Backdate the pending task: its queue message is presumed lost.
	s.mu.Lock()
	s.tasks[task.ID].UpdatedAt = time.Now().UTC().Add(-time.Hour)
	s.mu.Unlock()

	reaped, err := s.ReapStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, reaped, 1)
	assert.Equal(t, task.ID, reaped[0].ID)
	assert.Equal(t, domain.TaskStatePending, reaped[0].State)
	assert.Empty(t, reaped[0].LastError, "pending reaps keep the task record untouched")
	assert.Equal(t, 0, reaped[0].AttemptCount)

	// The refreshed timestamp keeps it out of the next pass.
	reaped, err = s.ReapStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, reaped)
}

func TestTaskStorePurgeTerminalBefore(t *testing.T) {
	s := NewTaskStore()

	done := createTestTask(t, s, "first review")
	_, err := s.Claim(context.Background(), done.ID)
	require.NoError(t, err)
	require.NoError(t, s.Complete(context.Background(), done.ID))

	pending := createTestTask(t, s, "second review")

	// Backdate the terminal task past retention.
	s.mu.Lock()
	s.tasks[done.ID].UpdatedAt = time.Now().UTC().Add(-48 * time.Hour)
	s.mu.Unlock()

	purged, err := s.PurgeTerminalBefore(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = s.GetByID(context.Background(), done.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	// Non-terminal tasks survive regardless of age.
	_, err = s.GetByID(context.Background(), pending.ID)
	assert.NoError(t, err)
}
