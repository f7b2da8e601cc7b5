// Package queue provides the broker abstraction that hands classification
// jobs from the dispatcher to the worker pool. Delivery is at-least-once:
// a dequeued message is leased to exactly one worker for the visibility
// timeout and becomes visible again if the lease expires without an ack
// or nack. Consumers must tolerate duplicate and out-of-order delivery;
// idempotence comes from the task store's conditional state transitions.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coursepulse/classifier-api/internal/domain"
)

// Common errors returned by queue implementations.
var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueFull   = errors.New("queue is full")

	// ErrLeaseExpired is returned by Ack or Nack when the visibility
	// timeout already elapsed and the message was redelivered. The
	// caller's work may have raced with another consumer's; the task
	// store state check decides who won.
	ErrLeaseExpired = errors.New("lease expired")

	// ErrLeaseSettled is returned when a delivery is acked or nacked twice.
	ErrLeaseSettled = errors.New("lease already settled")
)

// Message is the unit handed from the dispatcher to workers. It carries
// only identifiers; workers load the task record for the text and state.
type Message struct {
	TaskID      uuid.UUID          `json:"task_id"`
	Fingerprint domain.Fingerprint `json:"fingerprint"`
}

// Delivery is a leased message. Exactly one of Ack or Nack should be
// called before the visibility timeout elapses.
type Delivery interface {
	// Message returns the leased message.
	Message() Message

	// Ack removes the message from the queue permanently.
	Ack() error

	// Nack makes the message immediately visible again for redelivery.
	Nack() error
}

// Queue is the broker contract between submitters and workers.
// Ordering is best-effort FIFO, not guaranteed.
type Queue interface {
	// Enqueue makes the message immediately visible to consumers.
	// Returns ErrQueueFull or ErrQueueClosed when it cannot accept it.
	Enqueue(ctx context.Context, msg Message) error

	// EnqueueAfter makes the message visible after the given delay.
	// Used for backoff between retry attempts.
	EnqueueAfter(ctx context.Context, msg Message, delay time.Duration) error

	// Dequeue blocks until a message is available, the context is
	// cancelled, or the queue is closed. The returned delivery leases
	// the message to the caller for the visibility timeout.
	Dequeue(ctx context.Context) (Delivery, error)

	// Close stops the queue; blocked Dequeue calls return ErrQueueClosed.
	Close()
}
