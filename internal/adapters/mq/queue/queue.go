// Package queue serialises session events into a bounded FIFO.
//
// Producers may call Enqueue from any goroutine; events leave Dequeue in
// exactly the order they were accepted, which is what keeps a session's
// frame tally monotonic.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/poseparty/internal/domain/model"
	"github.com/okian/poseparty/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Event is the payload flowing through the queue.
type Event = model.Event

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event. Returns ErrFull or ErrClosed when rejected.
	Enqueue(ctx context.Context, e Event) error

	// Dequeue returns the receive side. It is closed once the queue is
	// closed and drained.
	Dequeue() <-chan Event

	// Len returns the number of waiting events.
	Len() int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops accepting events. Already queued events stay readable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	name     string
	events   chan Event
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		name:     "queue",
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make(chan Event, q.capacity)
	return q
}

// Enqueue adds an event without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: Event must be passed by value for channel semantics
	// The read lock keeps Close from closing the channel under a send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError("closed")
		return fmt.Errorf("%s: %w", q.name, ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError("context_cancelled")
		return fmt.Errorf("%s: %w", q.name, err)
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		return nil
	default:
		metrics.RecordQueueEnqueueError("queue_full")
		return fmt.Errorf("%s: %w", q.name, ErrFull)
	}
}

// Dequeue returns the channel workers read from.
func (q *InMemoryQueue) Dequeue() <-chan Event {
	return q.events
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	return len(q.events)
}

// Cap returns the queue capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.events)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
