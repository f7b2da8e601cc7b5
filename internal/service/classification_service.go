package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/platform/logger"
	"github.com/coursepulse/classifier-api/internal/queue"
	"github.com/coursepulse/classifier-api/internal/store"
)

// Submission is the dispatcher's answer to a classification request.
// On a cache hit TaskID is uuid.Nil and Result carries the cached
// classification; otherwise TaskID identifies the task to poll.
type Submission struct {
	TaskID uuid.UUID
	State  domain.TaskState
	Result *domain.Result
}

// Status is the status service's answer to a polling read.
type Status struct {
	TaskID    uuid.UUID
	State     domain.TaskState
	Result    *domain.Result
	LastError string
}

// ClassificationService is the core's interface to the request-handling
// layer: fire-and-forget submission plus non-blocking status polling.
type ClassificationService interface {
	// Submit accepts review text and returns either a cached result or
	// the ID of the (possibly pre-existing) in-flight task.
	// Fails with ErrInvalidInput for empty/oversized text and
	// ErrUnavailable when the store or queue cannot take the job.
	Submit(ctx context.Context, text string) (*Submission, error)

	// GetStatus reports the task's state, joined with its result once
	// successful. Fails with ErrTaskNotFound for unknown IDs.
	// Never mutates.
	GetStatus(ctx context.Context, taskID uuid.UUID) (*Status, error)
}

// classificationService is the default ClassificationService
// implementation over a task store, result cache and broker queue.
type classificationService struct {
	tasks         store.TaskStore
	results       store.ResultCache
	broker        queue.Queue
	maxTextLength int
}

// NewClassificationService creates the dispatcher/status service.
// maxTextLength bounds submitted text; zero applies the domain default.
func NewClassificationService(
	tasks store.TaskStore,
	results store.ResultCache,
	broker queue.Queue,
	maxTextLength int,
) ClassificationService {
	return &classificationService{
		tasks:         tasks,
		results:       results,
		broker:        broker,
		maxTextLength: maxTextLength,
	}
}

// Submit implements the dispatch path: fingerprint, cache lookup, dedup
// check, then create-and-enqueue. Exactly one enqueue happens per
// distinct in-flight fingerprint.
func (s *classificationService) Submit(ctx context.Context, text string) (*Submission, error) {
	log := logger.FromContext(ctx)

	fp, err := domain.NewFingerprint(text, s.maxTextLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	// Cache hit: answer immediately, no store or queue traffic.
	result, err := s.results.Get(ctx, fp)
	if err == nil {
		log.Debug("cache hit", "fingerprint", fp)
		return &Submission{
			State:  domain.TaskStateSuccess,
			Result: result,
		}, nil
	}
	if !store.IsNotFoundError(err) {
		// The cache is an optimization; a read failure must not block
		// submission. Worst case a duplicate result gets computed, and
		// result writes are idempotent.
		log.Warn("result cache lookup failed, continuing to dispatch",
			"fingerprint", fp,
			"error", err)
	}

	// Dedup: attach to an existing in-flight task for this fingerprint.
	if existing, err := s.tasks.FindInFlightByFingerprint(ctx, fp); err == nil {
		log.Debug("attached to in-flight task",
			"task_id", existing.ID,
			"fingerprint", fp)
		return &Submission{TaskID: existing.ID, State: existing.State}, nil
	} else if !store.IsNotFoundError(err) {
		return nil, fmt.Errorf("%w: dedup lookup failed: %w", ErrUnavailable, err)
	}

	task, err := domain.NewTask(fp, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost a creation race with a concurrent identical
			// submission; the winner's task serves both.
			if existing, findErr := s.tasks.FindInFlightByFingerprint(ctx, fp); findErr == nil {
				return &Submission{TaskID: existing.ID, State: existing.State}, nil
			}
		}
		return nil, fmt.Errorf("%w: failed to persist task: %w", ErrUnavailable, err)
	}

	msg := queue.Message{TaskID: task.ID, Fingerprint: fp}
	if err := s.broker.Enqueue(ctx, msg); err != nil {
		// Don't leave an orphan that would absorb future submissions
		// without ever being worked: fail it so a retry makes a fresh
		// task.
		if failErr := s.tasks.Fail(ctx, task.ID, "enqueue failed: "+err.Error()); failErr != nil {
			log.Error("failed to fail task after enqueue failure",
				"task_id", task.ID,
				"error", failErr)
		}
		return nil, fmt.Errorf("%w: failed to enqueue task: %w", ErrUnavailable, err)
	}

	log.Info("task dispatched",
		"task_id", task.ID,
		"fingerprint", fp)

	return &Submission{TaskID: task.ID, State: task.State}, nil
}

// GetStatus implements the polling read.
func (s *classificationService) GetStatus(ctx context.Context, taskID uuid.UUID) (*Status, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("%w: status lookup failed: %w", ErrUnavailable, err)
	}

	status := &Status{
		TaskID:    task.ID,
		State:     task.State,
		LastError: task.LastError,
	}

	if task.State == domain.TaskStateSuccess {
		result, err := s.results.Get(ctx, task.Fingerprint)
		if err == nil {
			status.Result = result
		} else if !store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: result lookup failed: %w", ErrUnavailable, err)
		}
		// A successful task whose result expired from the cache still
		// reports success, just without the payload.
	}

	return status, nil
}
