package service

import "errors"

// Service-level errors surfaced to the API layer.
var (
	// ErrInvalidInput is returned by Submit for empty or oversized
	// review text. A client error; never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTaskNotFound is returned by GetStatus for unknown task IDs.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnavailable is returned when the task store or broker queue
	// cannot accept the submission. The caller may retry.
	ErrUnavailable = errors.New("classification pipeline unavailable")
)
