// Package repository keeps live sessions addressable by id.
//
// Sessions are in-memory only and vanish with the process; there is no
// history of finished sessions.
package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/poseparty/internal/domain/session"
)

const defaultShardCount = 16

// Store provides access to live sessions.
type Store interface {
	// Put registers a new session. Returns ErrExists on id collision.
	Put(ctx context.Context, s *session.Session) error
	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*session.Session, error)
	// Delete removes and returns the session or ErrNotFound.
	Delete(ctx context.Context, id string) (*session.Session, error)
	// IDs lists live session ids in sorted order.
	IDs(ctx context.Context) []string
	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}

type storeShard struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// ShardedStore spreads sessions over independently locked maps.
type ShardedStore struct {
	shardCount int
	shards     []*storeShard
}

// NewShardedStore creates a store with configuration options.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*storeShard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &storeShard{sessions: make(map[string]*session.Session)}
	}
	return s
}

func (s *ShardedStore) shard(id string) *storeShard {
	return s.shards[xxhash.Sum64String(id)%uint64(len(s.shards))]
}

func (s *ShardedStore) Put(_ context.Context, sess *session.Session) error {
	sh := s.shard(sess.ID())
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[sess.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrExists, sess.ID())
	}
	sh.sessions[sess.ID()] = sess
	return nil
}

func (s *ShardedStore) Get(_ context.Context, id string) (*session.Session, error) {
	sh := s.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	sess, ok := sh.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

func (s *ShardedStore) Delete(_ context.Context, id string) (*session.Session, error) {
	sh := s.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(sh.sessions, id)
	return sess, nil
}

func (s *ShardedStore) IDs(_ context.Context) []string {
	var ids []string
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id := range sh.sessions {
			ids = append(ids, id)
		}
		sh.mu.RUnlock()
	}
	slices.Sort(ids)
	return ids
}

func (s *ShardedStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}
