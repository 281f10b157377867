// Package engine runs the per-frame pose scoring pipeline for one session:
// normalise, score, classify, accumulate, gate.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/scoring"
	"github.com/okian/poseparty/internal/domain/similarity"
	"github.com/okian/poseparty/internal/domain/tier"
)

// Sentinel errors for this package.
var (
	ErrInvalidConfig = errors.New("invalid engine config")
	ErrNoReference   = errors.New("no reference pose selected")
)

// Config is fixed at construction and never changes for an engine.
type Config struct {
	Thresholds         tier.Thresholds
	Credits            scoring.Credits
	MinConfidence      float64
	MinKeypoints       int
	MinSharedKeypoints int
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds:         tier.DefaultThresholds(),
		Credits:            scoring.DefaultCredits(),
		MinConfidence:      pose.DefaultMinConfidence,
		MinKeypoints:       pose.DefaultMinKeypoints,
		MinSharedKeypoints: similarity.DefaultMinShared,
	}
}

// Validate reports any malformed value, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Credits.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if math.IsNaN(c.MinConfidence) || c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence %.4g not in [0,1]", ErrInvalidConfig, c.MinConfidence)
	}
	if c.MinKeypoints < 1 {
		return fmt.Errorf("%w: min keypoints must be >= 1", ErrInvalidConfig)
	}
	if c.MinSharedKeypoints < 1 {
		return fmt.Errorf("%w: min shared keypoints must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScorer swaps the distance policy. The default is a confidence weighted
// Euclidean mean.
func WithScorer(s similarity.Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// Engine scores frames against one reference pose at a time. It is driven
// synchronously from a single goroutine and is not safe for concurrent use.
type Engine struct {
	cfg        Config
	normalizer *pose.Normalizer
	scorer     similarity.Scorer
	classifier *tier.Classifier
	acc        *scoring.Accumulator

	referenceID string
	reference   pose.Normalized

	last Snapshot
}

// New validates cfg and builds an engine with no reference selected.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := tier.NewClassifier(cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	acc, err := scoring.NewAccumulator(classifier, cfg.Credits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	e := &Engine{
		cfg: cfg,
		normalizer: pose.NewNormalizer(
			pose.WithMinConfidence(cfg.MinConfidence),
			pose.WithMinKeypoints(cfg.MinKeypoints),
		),
		scorer:     similarity.NewEuclidean(similarity.WithMinShared(cfg.MinSharedKeypoints)),
		classifier: classifier,
		acc:        acc,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// SelectReference makes ref the target pose and starts a fresh session.
// A reference that cannot be normalised is rejected and the current session
// continues unchanged.
func (e *Engine) SelectReference(id string, ref pose.Pose) error {
	normalized, err := e.normalizer.Normalize(ref)
	if err != nil {
		return fmt.Errorf("reference %q: %w", id, err)
	}
	e.referenceID = id
	e.reference = normalized
	e.Restart()
	return nil
}

// Restart discards the tally and readiness but keeps the reference.
func (e *Engine) Restart() {
	e.acc.Reset()
	e.last = Snapshot{ReferenceID: e.referenceID}
}

// OnPose scores one observed frame. On error the frame is skipped: totals and
// readiness are untouched and only the skipped counter moves.
func (e *Engine) OnPose(observed pose.Pose) (Snapshot, error) {
	if e.reference == nil {
		e.last.Skipped++
		return e.last, ErrNoReference
	}

	normalized, err := e.normalizer.Normalize(observed)
	if err != nil {
		e.last.Skipped++
		return e.last, err
	}
	score, err := e.scorer.Score(e.reference, normalized)
	if err != nil {
		e.last.Skipped++
		return e.last, err
	}

	t := e.classifier.Classify(score)
	state := e.acc.Record(t)
	ready := scoring.Evaluate(t, e.last.Ready)

	e.last = Snapshot{
		ReferenceID: e.referenceID,
		Scored:      true,
		Similarity:  score,
		Tier:        t,
		State:       state,
		Ready:       ready,
		Skipped:     e.last.Skipped,
	}
	return e.last, nil
}

// Snapshot returns a copy of the latest state.
func (e *Engine) Snapshot() Snapshot { return e.last }
