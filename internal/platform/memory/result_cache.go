package memory

import (
	"context"
	"sync"
	"time"

	"github.com/coursepulse/classifier-api/internal/domain"
	"github.com/coursepulse/classifier-api/internal/store"
)

// ResultCache implements store.ResultCache with a mutex-guarded map.
type ResultCache struct {
	mu      sync.Mutex
	results map[domain.Fingerprint]*domain.Result
}

// NewResultCache creates an empty in-memory result cache.
func NewResultCache() *ResultCache {
	return &ResultCache{
		results: make(map[domain.Fingerprint]*domain.Result),
	}
}

// Get returns the unexpired result for the fingerprint. Expired entries
// are misses; they stay in place for EvictExpired to collect.
func (c *ResultCache) Get(ctx context.Context, fp domain.Fingerprint) (*domain.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.results[fp]
	if !ok || result.Expired(time.Now().UTC()) {
		return nil, store.ErrResultNotFound
	}

	copy := *result
	return &copy, nil
}

// Put stores the result keyed by its fingerprint, replacing any
// existing entry. Idempotent by construction.
func (c *ResultCache) Put(ctx context.Context, result *domain.Result) error {
	if err := result.Validate(); err != nil {
		return store.ErrInvalidEntity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	copy := *result
	c.results[result.Fingerprint] = &copy
	return nil
}

// EvictExpired removes entries whose expiry is at or before now.
func (c *ResultCache) EvictExpired(ctx context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for fp, result := range c.results {
		if result.Expired(now) {
			delete(c.results, fp)
			evicted++
		}
	}
	return evicted, nil
}
