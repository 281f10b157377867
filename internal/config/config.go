// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file and POSE_ environment variables.
// - Validate rejects malformed scoring settings; the service must not start with them.
package config

import (
	"runtime"

	"github.com/okian/poseparty/internal/adapters/catalog"
	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/internal/domain/scoring"
	"github.com/okian/poseparty/internal/domain/similarity"
	"github.com/okian/poseparty/internal/domain/tier"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds each shard's event queue.
	QueueSize int `koanf:"queue_size"`

	// ShardCount sets how many queue/worker shards process sessions.
	ShardCount int `koanf:"shard_count"`

	// DedupeSize bounds the frame id de-duplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CatalogPath points at a YAML/JSON reference catalog. Empty uses the
	// embedded catalog.
	CatalogPath string `koanf:"catalog_path"`

	// DefaultReference is used when a session is created without one.
	DefaultReference string `koanf:"default_reference"`

	// Tier thresholds: excellent_max < good_max < okay_max.
	ExcellentMax float64 `koanf:"excellent_max"`
	GoodMax      float64 `koanf:"good_max"`
	OkayMax      float64 `koanf:"okay_max"`

	// Per-tier frame credit, each in [0, 1].
	CreditExcellent float64 `koanf:"credit_excellent"`
	CreditGood      float64 `koanf:"credit_good"`
	CreditOkay      float64 `koanf:"credit_okay"`
	CreditPoor      float64 `koanf:"credit_poor"`

	// MinConfidence drops keypoints below this estimator score.
	MinConfidence float64 `koanf:"min_confidence"`

	// MinKeypoints is the confident keypoint count a pose needs.
	MinKeypoints int `koanf:"min_keypoints"`

	// MinSharedKeypoints is the overlap two poses need to be compared.
	MinSharedKeypoints int `koanf:"min_shared_keypoints"`

	// MaxFrameKeypoints caps keypoints accepted in one frame payload.
	MaxFrameKeypoints int `koanf:"max_frame_keypoints"`

	// WSReadLimitBytes caps a single WebSocket message.
	WSReadLimitBytes int64 `koanf:"ws_read_limit_bytes"`
}

// New creates a Config populated with defaults.
func New() *Config {
	t := tier.DefaultThresholds()
	c := scoring.DefaultCredits()
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          1024,
		ShardCount:         runtime.NumCPU(),
		DedupeSize:         100_000,
		CatalogPath:        "",
		DefaultReference:   catalog.DefaultMove,
		ExcellentMax:       t.ExcellentMax,
		GoodMax:            t.GoodMax,
		OkayMax:            t.OkayMax,
		CreditExcellent:    c.Excellent,
		CreditGood:         c.Good,
		CreditOkay:         c.Okay,
		CreditPoor:         c.Poor,
		MinConfidence:      pose.DefaultMinConfidence,
		MinKeypoints:       pose.DefaultMinKeypoints,
		MinSharedKeypoints: similarity.DefaultMinShared,
		MaxFrameKeypoints:  64,
		WSReadLimitBytes:   64 << 10,
	}
}

// EngineConfig projects the scoring settings onto an engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Thresholds: tier.Thresholds{
			ExcellentMax: c.ExcellentMax,
			GoodMax:      c.GoodMax,
			OkayMax:      c.OkayMax,
		},
		Credits: scoring.Credits{
			Excellent: c.CreditExcellent,
			Good:      c.CreditGood,
			Okay:      c.CreditOkay,
			Poor:      c.CreditPoor,
		},
		MinConfidence:      c.MinConfidence,
		MinKeypoints:       c.MinKeypoints,
		MinSharedKeypoints: c.MinSharedKeypoints,
	}
}
