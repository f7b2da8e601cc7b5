package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// SubmitClassificationRequest defines the payload for submitting review
// text for sentiment classification.
type SubmitClassificationRequest struct {
	Text string `json:"text" validate:"required,min=1"`
}

// ClassificationResultResponse carries the computed sentiment once a
// classification has succeeded.
type ClassificationResultResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`

	// ComputedAt is when the classifier produced this result.
	ComputedAt time.Time `json:"computed_at"`
}

// ClassificationResponse defines the response for both the submission and
// polling endpoints.
type ClassificationResponse struct {
	// TaskID identifies the task to poll. Omitted when a cached result
	// answers the submission without creating a task.
	TaskID uuid.UUID `json:"task_id,omitempty"`

	State string `json:"state"`

	// Result is present once State is "success" and the result is still
	// cached.
	Result *ClassificationResultResponse `json:"result,omitempty"`

	// Error is the recorded failure reason for terminally failed tasks.
	Error string `json:"error,omitempty"`
}
