package domain

import (
	"errors"
	"time"
)

// Common validation errors for Result.
var (
	ErrEmptyResultFingerprint = errors.New("result fingerprint cannot be empty")
	ErrEmptyResultLabel       = errors.New("result label cannot be empty")
	ErrInvalidResultScore     = errors.New("result score must be between 0 and 1")
)

// Result holds a completed classification for a fingerprint. Results are
// immutable once written; one Result satisfies every task and submission
// that shares its fingerprint until it expires from the cache.
type Result struct {
	Fingerprint Fingerprint `json:"fingerprint"`
	Label       string      `json:"label"`
	Score       float64     `json:"score"`
	ComputedAt  time.Time   `json:"computed_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// NewResult creates a Result for the given fingerprint with the
// classifier's label and score, expiring after ttl.
// Returns an error if validation fails.
func NewResult(fingerprint Fingerprint, label string, score float64, ttl time.Duration) (*Result, error) {
	now := time.Now().UTC()
	result := &Result{
		Fingerprint: fingerprint,
		Label:       label,
		Score:       score,
		ComputedAt:  now,
		ExpiresAt:   now.Add(ttl),
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}

	return result, nil
}

// Validate checks if the Result has valid data.
func (r *Result) Validate() error {
	if r.Fingerprint == "" {
		return ErrEmptyResultFingerprint
	}

	if r.Label == "" {
		return ErrEmptyResultLabel
	}

	if r.Score < 0 || r.Score > 1 {
		return ErrInvalidResultScore
	}

	return nil
}

// Expired reports whether the result is past its expiry at the given
// instant.
func (r *Result) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
