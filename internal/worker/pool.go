// Package worker runs the pool of goroutines that pull classification
// jobs off the broker queue, invoke the inference black box under a
// hard timeout, and write results back through the task store's
// conditional state transitions. Duplicate and out-of-order deliveries
// are resolved by the store, not the queue: a worker that loses the
// claim race acks the message as a no-op.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/inference"
	"github.com/coursepulse/classifier-api/internal/queue"
	"github.com/coursepulse/classifier-api/internal/store"
)

// Config holds configuration for the worker pool.
type Config struct {
	// Count determines how many concurrent workers process tasks.
	Count int

	// MaxAttempts bounds how many times a task is attempted before it
	// fails terminally.
	MaxAttempts int

	// InferenceTimeout is the hard per-attempt bound on the classifier
	// call, enforced here rather than by the classifier.
	InferenceTimeout time.Duration

	// BackoffInitial and BackoffMax bound the exponential retry delay.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// ResultTTL is how long computed results stay cached.
	ResultTTL time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Count:            4,
		MaxAttempts:      3,
		InferenceTimeout: 10 * time.Second,
		BackoffInitial:   500 * time.Millisecond,
		BackoffMax:       30 * time.Second,
		ResultTTL:        24 * time.Hour,
	}
}

// Pool manages the worker goroutines.
type Pool struct {
	broker     queue.Queue
	tasks      store.TaskStore
	results    store.ResultCache
	classifier inference.Classifier
	config     Config
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a worker pool with the given dependencies.
func NewPool(
	broker queue.Queue,
	tasks store.TaskStore,
	results store.ResultCache,
	classifier inference.Classifier,
	config Config,
	logger *slog.Logger,
) *Pool {
	if config.Count <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.Count,
			"default_count", 1)
		config.Count = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		broker:     broker,
		tasks:      tasks,
		results:    results,
		classifier: classifier,
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.config.Count; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop signals the workers and waits for them to drain.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

// worker is the dequeue loop for one goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Debug("starting worker")

	for {
		delivery, err := p.broker.Dequeue(p.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				logger.Debug("stopping worker")
				return
			}
			logger.Error("dequeue failed", "error", err)
			continue
		}

		p.process(delivery, logger)
	}
}

// process handles one leased message end to end.
func (p *Pool) process(delivery queue.Delivery, logger *slog.Logger) {
	// Settlement must not be interrupted by pool shutdown mid-task.
	ctx := context.Background()

	msg := delivery.Message()
	logger = logger.With("task_id", msg.TaskID)

	task, err := p.tasks.GetByID(ctx, msg.TaskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			// The task was purged; the message is garbage.
			logger.Warn("message references unknown task, dropping")
			p.settle(delivery.Ack, logger)
			return
		}
		logger.Error("failed to load task, redelivering", "error", err)
		p.settle(delivery.Nack, logger)
		return
	}

	if task.IsTerminal() {
		// Duplicate delivery of finished work.
		logger.Debug("task already terminal, skipping", "state", task.State)
		p.settle(delivery.Ack, logger)
		return
	}

	claimed, err := p.tasks.Claim(ctx, msg.TaskID)
	if err != nil {
		if store.IsStateConflictError(err) {
			// Another worker holds this task; our delivery is a
			// duplicate and acking it is a no-op.
			logger.Debug("lost claim race, skipping")
			p.settle(delivery.Ack, logger)
			return
		}
		logger.Error("failed to claim task, redelivering", "error", err)
		p.settle(delivery.Nack, logger)
		return
	}

	logger.Info("processing task", "attempt", claimed.AttemptCount)

	prediction, err := p.classify(claimed.Text)
	if err != nil {
		p.handleFailure(ctx, claimed, err, delivery, logger)
		return
	}

	result, err := domain.NewResult(claimed.Fingerprint, prediction.Label, prediction.Score, p.config.ResultTTL)
	if err != nil {
		// The classifier produced an unusable prediction; retrying the
		// same input is pointless.
		p.failTask(ctx, claimed, fmt.Sprintf("invalid prediction: %v", err), logger)
		p.settle(delivery.Ack, logger)
		return
	}

	if err := p.results.Put(ctx, result); err != nil {
		// The result is computed but not persisted; release for retry
		// so another attempt can rewrite it (writes are idempotent).
		logger.Error("failed to cache result", "error", err)
		p.retryOrFail(ctx, claimed, fmt.Sprintf("result write failed: %v", err), delivery, logger)
		return
	}

	if err := p.tasks.Complete(ctx, claimed.ID); err != nil {
		// Lost the transition (reaper or crash recovery intervened).
		// The result is cached, so whoever retries will hit it.
		logger.Warn("failed to complete task", "error", err)
	} else {
		logger.Info("task completed",
			"label", prediction.Label,
			"score", prediction.Score)
	}

	p.settle(delivery.Ack, logger)
}

// classify invokes the inference black box under the hard timeout.
func (p *Pool) classify(text string) (*inference.Prediction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.InferenceTimeout)
	defer cancel()

	prediction, err := p.classifier.Classify(ctx, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("inference timed out after %s: %w", p.config.InferenceTimeout, err)
		}
		return nil, err
	}
	return prediction, nil
}

// handleFailure routes an inference error to retry or terminal failure
// according to the taxonomy and the attempt bound.
func (p *Pool) handleFailure(
	ctx context.Context,
	task *domain.Task,
	inferErr error,
	delivery queue.Delivery,
	logger *slog.Logger,
) {
	logger.Error("inference failed",
		"attempt", task.AttemptCount,
		"error", inferErr)

	if !inference.IsTransient(inferErr) {
		p.failTask(ctx, task, inferErr.Error(), logger)
		p.settle(delivery.Ack, logger)
		return
	}

	p.retryOrFail(ctx, task, inferErr.Error(), delivery, logger)
}

// retryOrFail releases the task for another attempt with backoff, or
// fails it terminally once attempts are exhausted.
func (p *Pool) retryOrFail(
	ctx context.Context,
	task *domain.Task,
	errMsg string,
	delivery queue.Delivery,
	logger *slog.Logger,
) {
	if task.AttemptCount >= p.config.MaxAttempts {
		p.failTask(ctx, task, fmt.Sprintf("attempts exhausted (%d): %s", task.AttemptCount, errMsg), logger)
		p.settle(delivery.Ack, logger)
		return
	}

	if err := p.tasks.ReleaseForRetry(ctx, task.ID, errMsg); err != nil {
		logger.Error("failed to release task for retry", "error", err)
		p.settle(delivery.Nack, logger)
		return
	}

	delay := backoffDelay(task.AttemptCount, p.config.BackoffInitial, p.config.BackoffMax)
	msg := queue.Message{TaskID: task.ID, Fingerprint: task.Fingerprint}

	if err := p.broker.EnqueueAfter(ctx, msg, delay); err != nil {
		// Could not schedule the retry; nack so the original message
		// comes back instead.
		logger.Error("failed to schedule retry", "error", err)
		p.settle(delivery.Nack, logger)
		return
	}

	logger.Info("task released for retry",
		"attempt", task.AttemptCount,
		"max_attempts", p.config.MaxAttempts,
		"retry_delay", delay)

	p.settle(delivery.Ack, logger)
}

// failTask transitions the task to terminal failure, recording errMsg.
func (p *Pool) failTask(ctx context.Context, task *domain.Task, errMsg string, logger *slog.Logger) {
	if err := p.tasks.Fail(ctx, task.ID, errMsg); err != nil {
		logger.Error("failed to mark task failed", "error", err)
		return
	}
	logger.Warn("task failed terminally", "last_error", errMsg)
}

// settle applies an ack or nack, tolerating expired leases: an expired
// lease means the message was already redelivered and the store's state
// checks will sort out the duplicate.
func (p *Pool) settle(fn func() error, logger *slog.Logger) {
	if err := fn(); err != nil && !errors.Is(err, queue.ErrLeaseExpired) {
		logger.Error("failed to settle delivery", "error", err)
	}
}
