package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/platform/logger"
	"github.com/coursepulse/classifier-api/internal/store"
)

// ResultCache implements the store.ResultCache interface using
// PostgreSQL. The upsert keeps writes idempotent: concurrent workers
// finishing tasks with the same fingerprint overwrite each other with
// equivalent values.
type ResultCache struct {
	db store.DBTX
}

// NewResultCache creates a new PostgreSQL-backed result cache.
func NewResultCache(db store.DBTX) *ResultCache {
	return &ResultCache{
		db: db,
	}
}

// Get returns the unexpired result for the fingerprint. Expired rows are
// filtered in the query; physical removal is the scheduler's job.
func (c *ResultCache) Get(ctx context.Context, fp domain.Fingerprint) (*domain.Result, error) {
	query := `
		SELECT fingerprint, label, score, computed_at, expires_at
		FROM results
		WHERE fingerprint = $1 AND expires_at > $2
	`

	var (
		result      domain.Result
		fingerprint string
	)

	err := c.db.QueryRowContext(ctx, query, string(fp), time.Now().UTC()).Scan(
		&fingerprint,
		&result.Label,
		&result.Score,
		&result.ComputedAt,
		&result.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", mapError(err))
	}

	result.Fingerprint = domain.Fingerprint(fingerprint)
	return &result, nil
}

// Put stores the result keyed by its fingerprint, replacing any existing
// entry.
func (c *ResultCache) Put(ctx context.Context, result *domain.Result) error {
	log := logger.FromContext(ctx)

	if err := result.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO results (fingerprint, label, score, computed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO UPDATE
		SET label = EXCLUDED.label,
		    score = EXCLUDED.score,
		    computed_at = EXCLUDED.computed_at,
		    expires_at = EXCLUDED.expires_at
	`

	_, err := c.db.ExecContext(ctx, query,
		string(result.Fingerprint),
		result.Label,
		result.Score,
		result.ComputedAt,
		result.ExpiresAt,
	)
	if err != nil {
		log.Error("failed to put result",
			"fingerprint", result.Fingerprint,
			"error", err)
		return fmt.Errorf("failed to put result: %w", mapError(err))
	}

	return nil
}

// EvictExpired removes entries whose expiry is at or before now. Keyed
// on the expiry timestamp comparison, so concurrent scheduler instances
// are safe: each row is deleted by whichever instance gets there first.
func (c *ResultCache) EvictExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM results WHERE expires_at <= $1`

	result, err := c.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to evict expired results: %w", mapError(err))
	}

	evicted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(evicted), nil
}
