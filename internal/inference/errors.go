package inference

import (
	"errors"
	"fmt"
)

// Error taxonomy for inference failures. Every error escaping a
// Classifier wraps one of these so the worker can decide between retry
// and terminal failure without knowing the backend.
var (
	// ErrTransient marks recoverable failures: rate limits, network
	// errors, upstream timeouts. Retried with backoff up to the
	// configured attempt bound.
	ErrTransient = errors.New("transient inference error")

	// ErrPermanent marks non-recoverable failures: input the model
	// rejects, content blocked by safety filters. Never retried.
	ErrPermanent = errors.New("permanent inference error")
)

// Transient wraps err as a recoverable inference failure.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Permanent wraps err as a non-recoverable inference failure.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsTransient reports whether the error should be retried. Errors that
// carry no classification (including context deadline errors from the
// worker's timeout) are treated as transient, matching the policy that
// only explicitly permanent failures skip the retry loop.
func IsTransient(err error) bool {
	return !errors.Is(err, ErrPermanent)
}
