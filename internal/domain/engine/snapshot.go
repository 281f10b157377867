package engine

import (
	"math"

	"github.com/okian/poseparty/internal/domain/scoring"
	"github.com/okian/poseparty/internal/domain/similarity"
	"github.com/okian/poseparty/internal/domain/tier"
)

// Snapshot is the read-only view handed to presentation after each frame.
// Similarity and Tier describe the most recent scored frame and are only
// meaningful when Scored is true.
type Snapshot struct {
	ReferenceID string
	Scored      bool
	Similarity  similarity.Score
	Tier        tier.Tier
	State       scoring.State
	Ready       bool
	Skipped     int
}

// SessionPercent is the session grade; ok is false before the first scored frame.
func (s Snapshot) SessionPercent() (int, bool) {
	return s.State.Percent()
}

// DisplayScore is round((1 - similarity) * 100) clamped to [0, 100], the
// per-frame number shown next to the tier label.
func (s Snapshot) DisplayScore() (int, bool) {
	if !s.Scored {
		return 0, false
	}
	v := math.Round((1 - float64(s.Similarity)) * 100)
	return int(math.Max(0, math.Min(100, v))), true
}
