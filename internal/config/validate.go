package config

import (
	"fmt"
	"strings"
)

// MaxFrameKeypointsLimit bounds max_frame_keypoints.
const MaxFrameKeypointsLimit = 1024

// Validate checks the process settings and the scoring configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be >= 1", ErrInvalidConfig)
	}
	if c.ShardCount < 1 {
		return fmt.Errorf("%w: shard_count must be >= 1", ErrInvalidConfig)
	}
	if c.MaxFrameKeypoints < 1 || c.MaxFrameKeypoints > MaxFrameKeypointsLimit {
		return fmt.Errorf("%w: max_frame_keypoints must be in [1, %d]", ErrInvalidConfig, MaxFrameKeypointsLimit)
	}
	if c.WSReadLimitBytes < 1 {
		return fmt.Errorf("%w: ws_read_limit_bytes must be >= 1", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DefaultReference) == "" {
		return fmt.Errorf("%w: default_reference must not be empty", ErrInvalidConfig)
	}
	if err := c.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
