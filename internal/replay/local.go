package replay

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/poseparty/internal/domain/engine"
	"github.com/okian/poseparty/internal/domain/pose"
	"github.com/okian/poseparty/pkg/logger"
	"golang.org/x/time/rate"
)

// Summary totals a replay run.
type Summary struct {
	Frames   int            `json:"frames"`
	Scored   int            `json:"scored"`
	Skipped  int            `json:"skipped"`
	Tiers    map[string]int `json:"tiers"`
	Percent  int            `json:"percent"`
	HasScore bool           `json:"has_score"`
	Ready    bool           `json:"ready"`
}

func newSummary() Summary {
	return Summary{Tiers: make(map[string]int)}
}

// observe folds one snapshot into the summary.
func (s *Summary) observe(snap engine.Snapshot, scored bool) { //nolint:gocritic // hugeParam: snapshot copied by design
	s.Frames++
	if scored {
		s.Scored++
		s.Tiers[snap.Tier.String()]++
	} else {
		s.Skipped++
	}
	s.Percent, s.HasScore = snap.SessionPercent()
	s.Ready = snap.Ready
}

// Pacer builds a limiter for fps frames per second. fps <= 0 disables pacing.
func Pacer(fps float64) *rate.Limiter {
	if fps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(fps), 1)
}

// RunLocal feeds frames through eng in order, writing one line per frame to
// out. Frames that cannot be scored are reported and skipped.
func RunLocal(ctx context.Context, eng *engine.Engine, frames []Frame, pacer *rate.Limiter, out io.Writer) (Summary, error) {
	if len(frames) == 0 {
		return Summary{}, ErrNoFrames
	}
	log := logger.Get().Named("replay")
	sum := newSummary()

	for i, f := range frames {
		if err := pacer.Wait(ctx); err != nil {
			return sum, err
		}
		p, err := pose.FromKeypoints(f.Keypoints)
		if err != nil {
			log.Warn(ctx, "malformed frame", logger.Int("index", i), logger.String("frameID", f.FrameID), logger.Error(err))
			sum.observe(eng.Snapshot(), false)
			fmt.Fprintf(out, "%4d %-36s skipped: %v\n", i, f.FrameID, err)
			continue
		}
		snap, err := eng.OnPose(p)
		if err != nil {
			sum.observe(snap, false)
			fmt.Fprintf(out, "%4d %-36s skipped: %v\n", i, f.FrameID, err)
			continue
		}
		sum.observe(snap, true)
		fmt.Fprintf(out, "%4d %-36s %.4f %-9s %s\n", i, f.FrameID, float64(snap.Similarity), snap.Tier, formatPercent(snap))
	}
	return sum, nil
}

func formatPercent(s engine.Snapshot) string { //nolint:gocritic // hugeParam: snapshot copied by design
	pct, ok := s.SessionPercent()
	if !ok {
		return "-"
	}
	ready := ""
	if s.Ready {
		ready = " ready"
	}
	return fmt.Sprintf("%3d%%%s", pct, ready)
}

// WriteSummary prints a human readable summary.
func WriteSummary(out io.Writer, s Summary) {
	fmt.Fprintf(out, "frames=%d scored=%d skipped=%d", s.Frames, s.Scored, s.Skipped)
	for _, t := range []string{"EXCELLENT", "GOOD", "OKAY", "POOR"} {
		fmt.Fprintf(out, " %s=%d", t, s.Tiers[t])
	}
	if s.HasScore {
		fmt.Fprintf(out, " percent=%d", s.Percent)
	}
	fmt.Fprintf(out, " ready=%t\n", s.Ready)
}
