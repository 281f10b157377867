package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/poseparty/internal/adapters/mq/queue"
	"github.com/okian/poseparty/internal/domain/model"
	"github.com/okian/poseparty/pkg/logger"
	"github.com/okian/poseparty/pkg/metrics"
)

const defaultShardCapacity = 1024

// ErrNotStarted is returned by Submit before Start.
var ErrNotStarted = errors.New("worker pool not started")

type shard struct {
	queue  *queue.InMemoryQueue
	worker *Worker
}

// Pool routes events to shards by session id. Every event of a session lands
// on the same shard, so it is applied by the same worker in arrival order,
// while different sessions proceed in parallel.
type Pool struct {
	processor     Processor
	shardCount    int
	shardCapacity int
	logger        logger.Logger

	mu      sync.RWMutex
	shards  []*shard
	started bool
}

// NewPool creates a pool; workers start with Start.
func NewPool(processor Processor, opts ...PoolOption) *Pool {
	p := &Pool{
		processor:     processor,
		shardCount:    runtime.NumCPU(),
		shardCapacity: defaultShardCapacity,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}

	p.shards = make([]*shard, p.shardCount)
	for i := range p.shards {
		name := "shard-" + strconv.Itoa(i)
		q := queue.NewInMemoryQueue(queue.WithCapacity(p.shardCapacity), queue.WithName(name))
		p.shards[i] = &shard{
			queue:  q,
			worker: NewWorker(q, processor, WithName(name), WithLogger(p.logger.Named(name))),
		}
	}
	return p
}

// Start launches one goroutine per shard. Workers outlive ctx and stop only
// in Shutdown, once their queue is drained.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	runCtx := context.WithoutCancel(ctx)
	for _, s := range p.shards {
		go s.worker.Run(runCtx)
	}
	p.started = true

	metrics.UpdateWorkerCount(len(p.shards))
	metrics.UpdateQueueCapacity(p.Cap())
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	p.logger.Info(ctx, "worker pool started",
		logger.Int("shards", len(p.shards)),
		logger.Int("shardCapacity", p.shardCapacity),
	)
}

// ShardFor returns the shard index owning sessionID.
func (p *Pool) ShardFor(sessionID string) int {
	return int(xxhash.Sum64String(sessionID) % uint64(len(p.shards)))
}

// Submit queues ev on its session's shard without blocking.
func (p *Pool) Submit(ctx context.Context, ev model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value through queues
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	s := p.shards[p.ShardFor(ev.SessionID)]
	if err := s.queue.Enqueue(ctx, ev); err != nil {
		metrics.RecordErrorByComponent("queue", "enqueue_rejected")
		return err
	}
	p.updateQueueMetrics()
	return nil
}

// Len returns the number of events waiting across shards.
func (p *Pool) Len() int {
	n := 0
	for _, s := range p.shards {
		n += s.queue.Len()
	}
	return n
}

// Cap returns the total capacity across shards.
func (p *Pool) Cap() int {
	return len(p.shards) * p.shardCapacity
}

// Shards returns the shard count.
func (p *Pool) Shards() int { return len(p.shards) }

func (p *Pool) updateQueueMetrics() {
	size := p.Len()
	metrics.UpdateQueueSize(size)
	if c := p.Cap(); c > 0 {
		metrics.UpdateQueueUtilization(float64(size) / float64(c))
	}
}

// Shutdown closes every queue and waits for workers to drain them.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	p.mu.Unlock()

	for _, s := range p.shards {
		if err := s.queue.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.String("worker", s.worker.Name()), logger.Error(err))
		}
	}

	var timedOut int
	for _, s := range p.shards {
		select {
		case <-s.worker.Done():
		case <-ctx.Done():
			timedOut++
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, ctx.Err())
	}
	return nil
}
