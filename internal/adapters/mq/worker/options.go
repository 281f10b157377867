// Package worker applies queued session events, one goroutine per shard.
package worker

import (
	"github.com/okian/poseparty/pkg/logger"
)

// Option applies a configuration option to a Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// PoolOption applies a configuration option to a Pool.
type PoolOption func(*Pool)

// WithShards sets the number of queue/worker shards.
func WithShards(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.shardCount = n
		}
	}
}

// WithShardCapacity sets the queue capacity of each shard.
func WithShardCapacity(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.shardCapacity = n
		}
	}
}

// WithPoolLogger sets the logger used by the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
