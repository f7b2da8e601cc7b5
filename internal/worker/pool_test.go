package worker

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/inference"
	"github.com/coursepulse/classifier-api/internal/platform/memory"
	"github.com/coursepulse/classifier-api/internal/queue"
)

// countingClassifier counts invocations and delegates to a behavior
// function, letting tests verify execution-at-most-once properties.
type countingClassifier struct {
	calls    atomic.Int64
	classify func(ctx context.Context, text string) (*inference.Prediction, error)
}

func (c *countingClassifier) Classify(ctx context.Context, text string) (*inference.Prediction, error) {
	c.calls.Add(1)
	return c.classify(ctx, text)
}

func positiveStub(ctx context.Context, text string) (*inference.Prediction, error) {
	return &inference.Prediction{Label: inference.LabelPositive, Score: 0.9}, nil
}

type poolFixture struct {
	tasks      *memory.TaskStore
	results    *memory.ResultCache
	broker     *queue.MemoryQueue
	classifier *countingClassifier
	pool       *Pool
}

func newPoolFixture(t *testing.T, workers int, maxAttempts int, classify func(context.Context, string) (*inference.Prediction, error)) *poolFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := &poolFixture{
		tasks:      memory.NewTaskStore(),
		results:    memory.NewResultCache(),
		broker:     queue.NewMemoryQueue(64, time.Minute, logger),
		classifier: &countingClassifier{classify: classify},
	}

	config := Config{
		Count:            workers,
		MaxAttempts:      maxAttempts,
		InferenceTimeout: 100 * time.Millisecond,
		BackoffInitial:   time.Millisecond,
		BackoffMax:       5 * time.Millisecond,
		ResultTTL:        time.Hour,
	}

	f.pool = NewPool(f.broker, f.tasks, f.results, f.classifier, config, logger)
	f.pool.Start()
	t.Cleanup(func() {
		f.pool.Stop()
		f.broker.Close()
	})

	return f
}

// dispatch persists a pending task and enqueues its message, the way
// the dispatcher does.
func (f *poolFixture) dispatch(t *testing.T, text string) *domain.Task {
	t.Helper()

	fp, err := domain.NewFingerprint(text, 0)
	require.NoError(t, err)

	task, err := domain.NewTask(fp, text)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))

	require.NoError(t, f.broker.Enqueue(context.Background(), queue.Message{
		TaskID:      task.ID,
		Fingerprint: fp,
	}))

	return task
}

// waitForState polls until the task reaches the expected state.
func (f *poolFixture) waitForState(t *testing.T, task *domain.Task, state domain.TaskState) *domain.Task {
	t.Helper()

	var got *domain.Task
	require.Eventually(t, func() bool {
		current, err := f.tasks.GetByID(context.Background(), task.ID)
		if err != nil {
			return false
		}
		got = current
		return current.State == state
	}, 5*time.Second, 5*time.Millisecond, "task never reached state %s", state)

	return got
}

func TestPoolProcessesTaskToSuccess(t *testing.T) {
	f := newPoolFixture(t, 2, 3, positiveStub)

	task := f.dispatch(t, "Great course, loved it")
	final := f.waitForState(t, task, domain.TaskStateSuccess)

	assert.Equal(t, 1, final.AttemptCount)
	assert.EqualValues(t, 1, f.classifier.calls.Load())

	result, err := f.results.Get(context.Background(), task.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, inference.LabelPositive, result.Label)
	assert.Equal(t, 0.9, result.Score)
}

func TestPoolPermanentErrorFailsImmediately(t *testing.T) {
	f := newPoolFixture(t, 1, 3, func(ctx context.Context, text string) (*inference.Prediction, error) {
		return nil, inference.Permanent(assert.AnError)
	})

	task := f.dispatch(t, "some review")
	final := f.waitForState(t, task, domain.TaskStateFailure)

	// No retries for permanent failures.
	assert.Equal(t, 1, final.AttemptCount)
	assert.EqualValues(t, 1, f.classifier.calls.Load())
	assert.Contains(t, final.LastError, "permanent inference error")
}

func TestPoolRetryBoundIsExact(t *testing.T) {
	const maxAttempts = 3

	f := newPoolFixture(t, 1, maxAttempts, func(ctx context.Context, text string) (*inference.Prediction, error) {
		return nil, inference.Transient(assert.AnError)
	})

	task := f.dispatch(t, "some review")
	final := f.waitForState(t, task, domain.TaskStateFailure)

	assert.Equal(t, maxAttempts, final.AttemptCount)
	assert.Contains(t, final.LastError, "attempts exhausted")

	// Exactly maxAttempts inference calls, then never again.
	assert.EqualValues(t, maxAttempts, f.classifier.calls.Load())
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, maxAttempts, f.classifier.calls.Load())
}

func TestPoolTimeoutIsRecoverable(t *testing.T) {
	f := newPoolFixture(t, 1, 2, func(ctx context.Context, text string) (*inference.Prediction, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	task := f.dispatch(t, "some review")
	final := f.waitForState(t, task, domain.TaskStateFailure)

	assert.Equal(t, 2, final.AttemptCount)
	assert.Contains(t, final.LastError, "inference timed out")
}

func TestPoolDuplicateDeliveryExecutesOnce(t *testing.T) {
	f := newPoolFixture(t, 4, 3, positiveStub)

	task := f.dispatch(t, "Great course, loved it")

	// Simulate the broker redelivering the same message several times.
	msg := queue.Message{TaskID: task.ID, Fingerprint: task.Fingerprint}
	for i := 0; i < 3; i++ {
		require.NoError(t, f.broker.Enqueue(context.Background(), msg))
	}

	final := f.waitForState(t, task, domain.TaskStateSuccess)

	// The racing workers collapsed onto one attempt: the claim CAS let
	// exactly one execute inference for the attempt slot.
	assert.Equal(t, 1, final.AttemptCount)

	require.Eventually(t, func() bool {
		return f.classifier.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, f.classifier.calls.Load())
}

func TestPoolSkipsTerminalTask(t *testing.T) {
	f := newPoolFixture(t, 1, 3, positiveStub)

	fp, err := domain.NewFingerprint("already done", 0)
	require.NoError(t, err)

	task, err := domain.NewTask(fp, "already done")
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))

	_, err = f.tasks.Claim(context.Background(), task.ID)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Complete(context.Background(), task.ID))

	// A duplicate delivery for finished work is acked and skipped.
	require.NoError(t, f.broker.Enqueue(context.Background(), queue.Message{
		TaskID:      task.ID,
		Fingerprint: fp,
	}))

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, f.classifier.calls.Load())
}

func TestPoolDropsMessageForUnknownTask(t *testing.T) {
	f := newPoolFixture(t, 1, 3, positiveStub)

	require.NoError(t, f.broker.Enqueue(context.Background(), queue.Message{
		TaskID:      uuid.New(),
		Fingerprint: "orphan",
	}))

	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 0, f.classifier.calls.Load())
}
