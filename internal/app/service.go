// Package service wires sessions, the reference catalog and the sharded
// worker pool into the operations exposed by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/poseparty/internal/adapters/catalog"
	workerpool "github.com/okian/poseparty/internal/adapters/mq/worker"
	"github.com/okian/poseparty/internal/adapters/repository"
	"github.com/okian/poseparty/internal/domain/dedupe"
	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/model"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/session"
	"github.com/okian/poseparty/internal/domain/similarity"
	"github.com/okian/poseparty/pkg/logger"
	"github.com/okian/poseparty/pkg/metrics"
)

// Sentinel errors for this package.
var (
	ErrNotStarted = errors.New("service not started")
)

// Service owns every live session and routes their events.
type Service struct {
	mu sync.RWMutex

	// Core components
	catalog  catalog.Catalog
	sessions repository.Store
	deduper  dedupe.Deduper
	pool     *workerpool.Pool

	// Configuration
	engineConfig     engine.Config
	shardCount       int
	queueSize        int
	dedupeSize       int
	defaultReference string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithShardCount sets the number of queue/worker shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithQueueSize sets the capacity of each shard queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the frame id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEngineConfig sets the scoring configuration used for every session.
func WithEngineConfig(cfg engine.Config) Option {
	return func(s *Service) {
		s.engineConfig = cfg
	}
}

// WithCatalog sets the reference pose catalog.
func WithCatalog(c catalog.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithDefaultReference sets the reference used when none is requested.
func WithDefaultReference(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.defaultReference = id
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engineConfig:     engine.DefaultConfig(),
		shardCount:       runtime.NumCPU(),
		queueSize:        1024,
		dedupeSize:       100_000,
		defaultReference: catalog.DefaultMove,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates configuration and starts the worker pool. Invalid scoring
// configuration is fatal here.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if err := s.engineConfig.Validate(); err != nil {
		return err
	}
	if s.catalog == nil {
		c, err := catalog.Default()
		if err != nil {
			return fmt.Errorf("load default catalog: %w", err)
		}
		s.catalog = c
	}
	if _, err := s.catalog.Lookup(ctx, s.defaultReference); err != nil {
		return fmt.Errorf("default reference: %w", err)
	}

	s.sessions = repository.NewShardedStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.pool = workerpool.NewPool(s,
		workerpool.WithShards(s.shardCount),
		workerpool.WithShardCapacity(s.queueSize),
		workerpool.WithPoolLogger(s.logger),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "pose scoring service started",
		logger.Int("shards", s.shardCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("references", len(s.catalog.IDs(ctx))),
	)
	return nil
}

// Stop drains the queues and ends all sessions.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping pose scoring service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	for _, id := range s.sessions.IDs(ctx) {
		if sess, err := s.sessions.Delete(ctx, id); err == nil {
			sess.Close()
		}
	}
	metrics.UpdateActiveSessions(0)

	s.started = false
	s.logger.Info(ctx, "pose scoring service stopped")
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// CreateSession starts a session against referenceID (or the default) and
// returns its id and initial snapshot.
func (s *Service) CreateSession(ctx context.Context, referenceID string) (string, engine.Snapshot, error) {
	if err := s.running(); err != nil {
		return "", engine.Snapshot{}, err
	}
	if referenceID == "" {
		referenceID = s.defaultReference
	}
	ref, err := s.catalog.Lookup(ctx, referenceID)
	if err != nil {
		return "", engine.Snapshot{}, err
	}

	eng, err := engine.New(s.engineConfig)
	if err != nil {
		return "", engine.Snapshot{}, err
	}
	if err := eng.SelectReference(referenceID, ref); err != nil {
		return "", engine.Snapshot{}, err
	}

	sess := session.New(uuid.NewString(), eng)
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", engine.Snapshot{}, err
	}

	metrics.RecordSessionCreated()
	metrics.RecordReferenceSelected()
	metrics.UpdateActiveSessions(s.sessions.Count(ctx))
	s.logger.Info(ctx, "session created",
		logger.String("sessionID", sess.ID()),
		logger.String("reference", referenceID),
	)
	return sess.ID(), sess.Snapshot(), nil
}

// EndSession discards a session and detaches its observers. Events still
// queued for it are dropped when they reach the worker.
func (s *Service) EndSession(ctx context.Context, id string) error {
	if err := s.running(); err != nil {
		return err
	}
	sess, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return err
	}
	sess.Close()

	metrics.RecordSessionEnded()
	metrics.RecordSnapshotsDropped(int(sess.Dropped()))
	metrics.UpdateActiveSessions(s.sessions.Count(ctx))

	snap := sess.Snapshot()
	fields := []logger.Field{
		logger.String("sessionID", id),
		logger.String("reference", snap.ReferenceID),
		logger.Int("totalFrames", snap.State.TotalFrames),
		logger.Int("skipped", snap.Skipped),
		logger.Bool("ready", snap.Ready),
	}
	if pct, ok := snap.SessionPercent(); ok {
		fields = append(fields, logger.Int("percent", pct))
	}
	s.logger.Info(ctx, "session ended", fields...)
	return nil
}

// SelectReference queues a reference switch. It is applied after every frame
// already queued for the session and resets the session tally and readiness.
func (s *Service) SelectReference(ctx context.Context, id, referenceID string) error {
	if err := s.running(); err != nil {
		return err
	}
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return err
	}
	ref, err := s.catalog.Lookup(ctx, referenceID)
	if err != nil {
		return err
	}
	return s.pool.Submit(ctx, model.Event{
		ID:          uuid.NewString(),
		SessionID:   id,
		Kind:        model.KindReference,
		ReferenceID: referenceID,
		Pose:        ref,
		ReceivedAt:  time.Now(),
	})
}

// SubmitFrame queues one observed pose. A repeated non-empty frameID is
// acknowledged as a duplicate and not scored again.
func (s *Service) SubmitFrame(ctx context.Context, id, frameID string, p pose.Pose) (duplicate bool, err error) {
	if err := s.running(); err != nil {
		return false, err
	}
	if _, err := s.sessions.Get(ctx, id); err != nil {
		return false, err
	}

	var key string
	if frameID != "" {
		key = id + "/" + frameID
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordFrameDuplicate()
			s.logger.Debug(ctx, "duplicate frame", logger.String("sessionID", id), logger.String("frameID", frameID))
			return true, nil
		}
	}

	err = s.pool.Submit(ctx, model.Event{
		ID:         frameID,
		SessionID:  id,
		Kind:       model.KindPose,
		Pose:       p,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		if key != "" {
			// Let the client retry the same frame id.
			s.deduper.Unrecord(ctx, key)
		}
		return false, err
	}
	return false, nil
}

// Snapshot returns the latest snapshot of a session.
func (s *Service) Snapshot(ctx context.Context, id string) (engine.Snapshot, error) {
	if err := s.running(); err != nil {
		return engine.Snapshot{}, err
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Subscribe attaches an observer to a session's updates.
func (s *Service) Subscribe(ctx context.Context, id string, buffer int) (<-chan session.Update, func(), error) {
	if err := s.running(); err != nil {
		return nil, nil, err
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := sess.Subscribe(buffer)
	return ch, cancel, nil
}

// References lists the catalog ids.
func (s *Service) References(ctx context.Context) []string {
	s.mu.RLock()
	c := s.catalog
	s.mu.RUnlock()
	if c == nil {
		return nil
	}
	return c.IDs(ctx)
}

// Process applies one queued event. It runs on the session's shard worker.
func (s *Service) Process(ctx context.Context, ev model.Event) error { //nolint:gocritic // hugeParam: Event is passed by value through queues
	sess, err := s.sessions.Get(ctx, ev.SessionID)
	if err != nil {
		metrics.RecordFrameSkipped("session_ended")
		return err
	}

	wasReady := sess.Snapshot().Ready
	u, err := sess.Apply(ev)
	if err != nil {
		metrics.RecordFrameSkipped(skipReason(err))
		return err
	}

	switch ev.Kind {
	case model.KindPose:
		metrics.RecordFrameScored(float64(u.Snapshot.Similarity), u.Snapshot.Tier.String())
		if !wasReady && u.Snapshot.Ready {
			metrics.RecordReadinessLatched()
			s.logger.Info(ctx, "session ready",
				logger.String("sessionID", ev.SessionID),
				logger.Float64("similarity", float64(u.Snapshot.Similarity)),
			)
		}
	case model.KindReference:
		metrics.RecordReferenceSelected()
		s.logger.Info(ctx, "reference selected",
			logger.String("sessionID", ev.SessionID),
			logger.String("reference", ev.ReferenceID),
		)
	}
	return nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, pose.ErrInsufficientKeypoints):
		return "insufficient_keypoints"
	case errors.Is(err, similarity.ErrIncomparablePoses):
		return "incomparable_poses"
	case errors.Is(err, engine.ErrNoReference):
		return "no_reference"
	case errors.Is(err, session.ErrClosed):
		return "session_ended"
	default:
		return "other"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":    s.started,
		"shardCount": s.shardCount,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}

	if s.started {
		queueLen := s.pool.Len()
		active := s.sessions.Count(ctx)

		stats["queueLength"] = queueLen
		stats["queueCapacity"] = s.pool.Cap()
		stats["activeSessions"] = active
		stats["dedupeEntries"] = s.deduper.Size()
		stats["references"] = len(s.catalog.IDs(ctx))

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateActiveSessions(active)
	}
	return stats
}
