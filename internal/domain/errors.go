package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition is returned when a task state change would
	// leave a terminal state or bypass the state machine.
	ErrInvalidTransition = errors.New("invalid task state transition")
)
