// Package worker applies queued session events, one goroutine per shard.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/poseparty/internal/domain/model"
	"github.com/okian/poseparty/pkg/logger"
	"github.com/okian/poseparty/pkg/metrics"
)

// Processor applies one event to its session.
type Processor interface {
	Process(ctx context.Context, ev model.Event) error
}

// Source is where a worker reads events from.
type Source interface {
	Dequeue() <-chan model.Event
}

// Worker drains a single Source in order. Running one worker per source is
// what guarantees frames of a session are applied in arrival order.
type Worker struct {
	source    Source
	processor Processor
	name      string
	done      chan struct{}
	logger    logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(source Source, processor Processor, opts ...Option) *Worker {
	w := &Worker{
		source:    source,
		processor: processor,
		name:      "worker",
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run processes events until the source is closed and drained. ctx is only
// handed to the processor; cancelling it does not stop the worker.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for ev := range w.source.Dequeue() {
		metrics.RecordQueueDequeue()
		if err := w.processEvent(ctx, ev); err != nil {
			w.logger.Warn(ctx, "event skipped",
				logger.String("sessionID", ev.SessionID),
				logger.String("eventID", ev.ID),
				logger.String("kind", ev.Kind.String()),
				logger.Error(err),
			)
		}
	}
}

func (w *Worker) processEvent(ctx context.Context, ev model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value through queues
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.processor.Process(ctx, ev); err != nil {
		return fmt.Errorf("%s: %w", w.name, err)
	}
	return nil
}
