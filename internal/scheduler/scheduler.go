// Package scheduler runs the periodic maintenance pass: result cache
// eviction, staleness reaping of tasks whose worker presumably died,
// and retention purging of old terminal tasks. Every operation is
// idempotent and keyed on timestamp comparisons, so any number of
// scheduler instances can run concurrently without coordination.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coursepulse/classifier-api/internal/queue"
	"github.com/coursepulse/classifier-api/internal/store"
)

// Config holds configuration for the maintenance scheduler.
type Config struct {
	// Interval is the cadence of maintenance passes.
	Interval time.Duration

	// StaleTaskAge is how long a non-terminal task may go untouched
	// before the reaper recovers it: a stale running task means a dead
	// worker, a stale pending task means a lost queue message.
	StaleTaskAge time.Duration

	// TaskRetention is how long terminal tasks are kept before purging.
	TaskRetention time.Duration

	// MaxAttempts mirrors the worker pool's retry bound: reaped tasks
	// that already exhausted it fail instead of re-enqueueing.
	MaxAttempts int
}

// Scheduler runs recurring housekeeping independent of request traffic.
type Scheduler struct {
	tasks   store.TaskStore
	results store.ResultCache
	broker  queue.Queue
	config  Config
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a maintenance scheduler.
func New(
	tasks store.TaskStore,
	results store.ResultCache,
	broker queue.Queue,
	config Config,
	logger *slog.Logger,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		tasks:   tasks,
		results: results,
		broker:  broker,
		config:  config,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the ticker loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop signals the loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce executes a single maintenance pass. Exported so operators
// (and tests) can trigger a pass outside the ticker cadence. Each step
// logs and continues on failure; a broken store must not starve the
// remaining housekeeping.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.evictExpiredResults(ctx)
	s.reapStaleTasks(ctx)
	s.purgeOldTasks(ctx)
}

func (s *Scheduler) evictExpiredResults(ctx context.Context) {
	evicted, err := s.results.EvictExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to evict expired results", "error", err)
		return
	}
	if evicted > 0 {
		s.logger.Info("evicted expired results", "count", evicted)
	}
}

// reapStaleTasks recovers tasks the queue lost track of: running tasks
// whose worker presumably died are reset to pending, and pending tasks
// untouched past the threshold had their message lost (broker restart,
// failed delayed re-enqueue). Both get a fresh queue message, unless
// their attempts are already exhausted, in which case they fail
// terminally.
func (s *Scheduler) reapStaleTasks(ctx context.Context) {
	reaped, err := s.tasks.ReapStale(ctx, s.config.StaleTaskAge)
	if err != nil {
		s.logger.Error("failed to reap stale tasks", "error", err)
		return
	}
	if len(reaped) == 0 {
		return
	}

	s.logger.Info("reaped stale tasks", "count", len(reaped))

	for _, task := range reaped {
		logger := s.logger.With("task_id", task.ID)

		if task.AttemptCount >= s.config.MaxAttempts {
			if err := s.tasks.Fail(ctx, task.ID, "attempts exhausted after staleness reaping"); err != nil {
				logger.Error("failed to fail exhausted stale task", "error", err)
			}
			continue
		}

		msg := queue.Message{TaskID: task.ID, Fingerprint: task.Fingerprint}
		if err := s.broker.Enqueue(ctx, msg); err != nil {
			// The task stays pending with no message, which is exactly
			// the state the reaper recovers: the next pass picks it up
			// again once it is stale.
			logger.Error("failed to re-enqueue reaped task", "error", err)
			continue
		}

		logger.Info("re-enqueued stale task", "attempt_count", task.AttemptCount)
	}
}

func (s *Scheduler) purgeOldTasks(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.config.TaskRetention)

	purged, err := s.tasks.PurgeTerminalBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to purge old tasks", "error", err)
		return
	}
	if purged > 0 {
		s.logger.Info("purged old terminal tasks", "count", purged)
	}
}
