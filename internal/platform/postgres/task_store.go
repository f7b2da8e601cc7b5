package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/platform/logger"
	"github.com/coursepulse/classifier-api/internal/store"
)

// taskColumns is the column list every task query selects, in scan order.
const taskColumns = "id, fingerprint, text, state, attempt_count, last_error, created_at, updated_at"

// TaskStore implements the store.TaskStore interface using PostgreSQL.
type TaskStore struct {
	db store.DBTX
}

// NewTaskStore creates a new PostgreSQL-backed task store.
func NewTaskStore(db store.DBTX) *TaskStore {
	return &TaskStore{
		db: db,
	}
}

// Create persists a new task. The partial unique index on
// (fingerprint) WHERE state IN ('pending','running') turns a concurrent
// duplicate submission into ErrDuplicate.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, fingerprint, text, state, attempt_count, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		string(task.Fingerprint),
		task.Text,
		string(task.State),
		task.AttemptCount,
		nullString(task.LastError),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: in-flight task for fingerprint exists", store.ErrDuplicate)
		}
		log.Error("failed to create task",
			"task_id", task.ID,
			"error", err)
		return fmt.Errorf("failed to create task: %w", mapError(err))
	}

	return nil
}

// GetByID retrieves a task by its unique ID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1`, taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", mapError(err))
	}

	return task, nil
}

// FindInFlightByFingerprint returns the pending or running task for the
// given fingerprint. The dedup index makes this lookup cheap.
func (s *TaskStore) FindInFlightByFingerprint(ctx context.Context, fp domain.Fingerprint) (*domain.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE fingerprint = $1 AND state IN ('pending', 'running')
		LIMIT 1
	`, taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, string(fp)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find in-flight task: %w", mapError(err))
	}

	return task, nil
}

// Claim transitions a task from pending to running and increments its
// attempt count. The conditional UPDATE is the compare-and-set that
// resolves races between workers on a redelivered message.
func (s *TaskStore) Claim(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET state = 'running', attempt_count = attempt_count + 1, updated_at = $2
		WHERE id = $1 AND state = 'pending'
		RETURNING %s
	`, taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, s.conflictOrNotFound(ctx, id)
		}
		return nil, fmt.Errorf("failed to claim task: %w", mapError(err))
	}

	return task, nil
}

// Complete transitions a task from running to success.
func (s *TaskStore) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id,
		`UPDATE tasks SET state = 'success', updated_at = $2 WHERE id = $1 AND state = 'running'`)
}

// Fail transitions a task from pending or running to failure, recording
// the final error message.
func (s *TaskStore) Fail(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE tasks
		SET state = 'failure', last_error = $2, updated_at = $3
		WHERE id = $1 AND state IN ('pending', 'running')
	`

	result, err := s.db.ExecContext(ctx, query, id, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to fail task: %w", mapError(err))
	}

	return s.requireOneRow(ctx, result, id)
}

// ReleaseForRetry transitions a task from running back to pending,
// recording the error that caused the retry.
func (s *TaskStore) ReleaseForRetry(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE tasks
		SET state = 'pending', last_error = $2, updated_at = $3
		WHERE id = $1 AND state = 'running'
	`

	result, err := s.db.ExecContext(ctx, query, id, errMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to release task for retry: %w", mapError(err))
	}

	return s.requireOneRow(ctx, result, id)
}

// ReapStale returns non-terminal tasks untouched for longer than
// olderThan: running tasks (presumed dead worker) are reset to pending,
// stale pending tasks (lost queue message) come back unchanged except
// for the timestamp. The single UPDATE ... RETURNING keeps the
// operation atomic across concurrent scheduler instances: refreshing
// updated_at means each stale task is returned to exactly one caller.
func (s *TaskStore) ReapStale(ctx context.Context, olderThan time.Duration) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := fmt.Sprintf(`
		UPDATE tasks
		SET state = 'pending',
		    last_error = CASE WHEN state = 'running' THEN 'reset after staleness reaping' ELSE last_error END,
		    updated_at = $2
		WHERE state IN ('pending', 'running') AND updated_at < $1
		RETURNING %s
	`, taskColumns)

	cutoff := time.Now().UTC().Add(-olderThan)

	rows, err := s.db.QueryContext(ctx, query, cutoff, time.Now().UTC())
	if err != nil {
		log.Error("failed to reap stale tasks", "error", err)
		return nil, fmt.Errorf("failed to reap stale tasks: %w", mapError(err))
	}
	defer func() { _ = rows.Close() }()

	var reaped []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reaped task: %w", err)
		}
		reaped = append(reaped, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reaped tasks: %w", err)
	}

	return reaped, nil
}

// PurgeTerminalBefore deletes terminal tasks whose last update is older
// than the cutoff.
func (s *TaskStore) PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM tasks
		WHERE state IN ('success', 'failure') AND updated_at < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge terminal tasks: %w", mapError(err))
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(purged), nil
}

// transition runs a conditional single-row state change.
func (s *TaskStore) transition(ctx context.Context, id uuid.UUID, query string) error {
	result, err := s.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to transition task: %w", mapError(err))
	}

	return s.requireOneRow(ctx, result, id)
}

// requireOneRow converts a zero-row conditional update into the
// appropriate sentinel: ErrTaskNotFound when the task does not exist,
// ErrStateConflict when it exists in a different state.
func (s *TaskStore) requireOneRow(ctx context.Context, result sql.Result, id uuid.UUID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return nil
}

// conflictOrNotFound distinguishes a lost compare-and-set race from a
// missing task.
func (s *TaskStore) conflictOrNotFound(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check task existence: %w", mapError(err))
	}

	if !exists {
		return store.ErrTaskNotFound
	}
	return store.ErrStateConflict
}

// rowScanner lets scanTask work over both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one task row in taskColumns order.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		fingerprint string
		state       string
		lastError   sql.NullString
	)

	if err := row.Scan(
		&task.ID,
		&fingerprint,
		&task.Text,
		&state,
		&task.AttemptCount,
		&lastError,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.Fingerprint = domain.Fingerprint(fingerprint)
	task.State = domain.TaskState(state)
	task.LastError = lastError.String

	return &task, nil
}

// nullString converts an empty string to a SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
