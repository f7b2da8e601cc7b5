package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue backed by a buffered channel with a
// timer-based lease table. It gives at-least-once delivery within a
// single process: an unacked message reappears after the visibility
// timeout, and a nacked message reappears immediately.
type MemoryQueue struct {
	messages   chan Message
	visibility time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates a queue with the given buffer size and
// visibility timeout.
func NewMemoryQueue(size int, visibility time.Duration, logger *slog.Logger) *MemoryQueue {
	if size <= 0 {
		size = 1
	}

	return &MemoryQueue{
		messages:   make(chan Message, size),
		visibility: visibility,
		logger:     logger,
	}
}

// Enqueue makes the message immediately visible to consumers.
func (q *MemoryQueue) Enqueue(ctx context.Context, msg Message) error {
	return q.push(msg)
}

// EnqueueAfter makes the message visible after the given delay. A zero
// or negative delay enqueues immediately.
func (q *MemoryQueue) EnqueueAfter(ctx context.Context, msg Message, delay time.Duration) error {
	if delay <= 0 {
		return q.push(msg)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	time.AfterFunc(delay, func() {
		if err := q.push(msg); err != nil {
			q.logger.Error("failed to enqueue delayed message",
				"task_id", msg.TaskID,
				"error", err)
		}
	})

	return nil
}

// Dequeue blocks until a message is available, the context is cancelled,
// or the queue is closed.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-q.messages:
		if !ok {
			return nil, ErrQueueClosed
		}
		return q.lease(msg), nil
	}
}

// Close closes the queue, preventing further submission. Messages whose
// leases expire after close are dropped.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.messages)
		q.logger.Info("queue closed")
	}
}

// push adds a message to the channel without blocking.
func (q *MemoryQueue) push(msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.messages <- msg:
		q.logger.Debug("message enqueued",
			"task_id", msg.TaskID,
			"queue_len", len(q.messages),
			"queue_cap", cap(q.messages))
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(q.messages))
	}
}

// lease wraps a message in a delivery whose visibility timer requeues it
// unless the consumer settles first.
func (q *MemoryQueue) lease(msg Message) *memoryDelivery {
	d := &memoryDelivery{
		msg:   msg,
		queue: q,
	}

	d.timer = time.AfterFunc(q.visibility, d.expire)
	return d
}

// memoryDelivery implements Delivery over a MemoryQueue lease.
type memoryDelivery struct {
	msg   Message
	queue *MemoryQueue
	timer *time.Timer

	mu      sync.Mutex
	settled bool
	expired bool
}

// Message returns the leased message.
func (d *memoryDelivery) Message() Message {
	return d.msg
}

// Ack removes the message permanently.
func (d *memoryDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.expired {
		return ErrLeaseExpired
	}
	if d.settled {
		return ErrLeaseSettled
	}

	d.settled = true
	d.timer.Stop()
	return nil
}

// Nack makes the message immediately visible again.
func (d *memoryDelivery) Nack() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.expired {
		return ErrLeaseExpired
	}
	if d.settled {
		return ErrLeaseSettled
	}

	d.settled = true
	d.timer.Stop()

	if err := d.queue.push(d.msg); err != nil {
		return fmt.Errorf("failed to requeue nacked message: %w", err)
	}
	return nil
}

// expire fires when the visibility timeout lapses without a settle; the
// message goes back on the queue for redelivery.
func (d *memoryDelivery) expire() {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.expired = true
	d.mu.Unlock()

	d.queue.logger.Warn("lease expired, redelivering message",
		"task_id", d.msg.TaskID)

	if err := d.queue.push(d.msg); err != nil {
		d.queue.logger.Error("failed to redeliver expired message",
			"task_id", d.msg.TaskID,
			"error", err)
	}
}
