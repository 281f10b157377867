package replay

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
	"github.com/okian/poseparty/internal/domain/pose"
)

// SynthOptions shapes synthetic frames.
type SynthOptions struct {
	// Count is the number of frames to produce.
	Count int
	// Jitter is the per-axis noise standard deviation as a fraction of the
	// reference pose's bounding box diagonal.
	Jitter float64
	// DropRate is the chance a keypoint is reported with zero confidence.
	DropRate float64
	// Seed makes output reproducible.
	Seed int64
}

// Synthesize jitters ref into opts.Count frames, each with a fresh frame id.
func Synthesize(ref pose.Pose, opts SynthOptions) []Frame {
	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // reproducible noise, not security sensitive
	sigma := opts.Jitter * diagonal(ref)
	base := ref.Keypoints()

	frames := make([]Frame, 0, opts.Count)
	for range opts.Count {
		kps := make([]pose.Keypoint, len(base))
		for i, kp := range base {
			kp.X += rng.NormFloat64() * sigma
			kp.Y += rng.NormFloat64() * sigma
			if opts.DropRate > 0 && rng.Float64() < opts.DropRate {
				kp.Confidence = 0
			}
			kps[i] = kp
		}
		frames = append(frames, Frame{FrameID: uuid.NewString(), Keypoints: kps})
	}
	return frames
}

func diagonal(p pose.Pose) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, kp := range p {
		minX, maxX = math.Min(minX, kp.X), math.Max(maxX, kp.X)
		minY, maxY = math.Min(minY, kp.Y), math.Max(maxY, kp.Y)
	}
	if len(p) == 0 {
		return 0
	}
	return math.Hypot(maxX-minX, maxY-minY)
}
