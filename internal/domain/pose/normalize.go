package pose

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Default normalisation thresholds.
const (
	DefaultMinConfidence = 0.5
	// DefaultMinKeypoints is a majority of the 17 PoseNet landmarks.
	DefaultMinKeypoints = 9

	minScale = 1e-9
)

// Landmark is a keypoint after translation and scale have been removed.
type Landmark struct {
	X          float64
	Y          float64
	Confidence float64
}

// Normalized holds only the landmarks that passed the confidence threshold,
// centred on the body anchor and expressed in body-scale units.
type Normalized map[string]Landmark

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithMinConfidence sets the confidence below which keypoints are dropped.
func WithMinConfidence(c float64) Option {
	return func(n *Normalizer) {
		if c >= 0 && c <= 1 {
			n.minConfidence = c
		}
	}
}

// WithMinKeypoints sets how many confident keypoints a pose needs.
func WithMinKeypoints(count int) Option {
	return func(n *Normalizer) {
		if count > 0 {
			n.minKeypoints = count
		}
	}
}

// Normalizer converts raw poses into a translation and scale invariant form.
// It holds no state beyond its thresholds and is safe for concurrent use.
type Normalizer struct {
	minConfidence float64
	minKeypoints  int
}

// NewNormalizer creates a Normalizer with configuration options.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		minConfidence: DefaultMinConfidence,
		minKeypoints:  DefaultMinKeypoints,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// MinConfidence reports the configured confidence threshold.
func (n *Normalizer) MinConfidence() float64 { return n.minConfidence }

// MinKeypoints reports the configured keypoint minimum.
func (n *Normalizer) MinKeypoints() int { return n.minKeypoints }

// Normalize moves the body centre to the origin and rescales so the reference
// body length equals 1.
//
// Centre: hip midpoint, else shoulder midpoint, else centroid.
// Scale: torso length (shoulder midpoint to hip midpoint), else shoulder
// width, else RMS distance of the landmarks from the centre.
func (n *Normalizer) Normalize(p Pose) (Normalized, error) {
	usable := make(map[string]Keypoint, len(p))
	for name, kp := range p {
		if n.confident(kp) {
			usable[name] = kp
		}
	}
	if len(usable) < n.minKeypoints {
		return nil, fmt.Errorf("%w: %d confident keypoints, need %d",
			ErrInsufficientKeypoints, len(usable), n.minKeypoints)
	}

	hipX, hipY, hasHips := midpoint(usable, LeftHip, RightHip)
	shX, shY, hasShoulders := midpoint(usable, LeftShoulder, RightShoulder)

	var cx, cy float64
	switch {
	case hasHips:
		cx, cy = hipX, hipY
	case hasShoulders:
		cx, cy = shX, shY
	default:
		cx, cy = centroid(usable)
	}

	var scale float64
	switch {
	case hasHips && hasShoulders:
		scale = math.Hypot(shX-hipX, shY-hipY)
	case hasShoulders:
		l, r := usable[LeftShoulder], usable[RightShoulder]
		scale = math.Hypot(l.X-r.X, l.Y-r.Y)
	}
	if scale < minScale {
		scale = rmsRadius(usable, cx, cy)
	}
	if scale < minScale {
		return nil, fmt.Errorf("%w: keypoints collapse to a single point", ErrInsufficientKeypoints)
	}

	out := make(Normalized, len(usable))
	for name, kp := range usable {
		out[name] = Landmark{
			X:          (kp.X - cx) / scale,
			Y:          (kp.Y - cy) / scale,
			Confidence: kp.Confidence,
		}
	}
	return out, nil
}

func (n *Normalizer) confident(kp Keypoint) bool {
	if math.IsNaN(kp.X) || math.IsNaN(kp.Y) || math.IsInf(kp.X, 0) || math.IsInf(kp.Y, 0) {
		return false
	}
	return kp.Confidence >= n.minConfidence
}

func midpoint(kps map[string]Keypoint, a, b string) (float64, float64, bool) {
	ka, okA := kps[a]
	kb, okB := kps[b]
	if !okA || !okB {
		return 0, 0, false
	}
	return (ka.X + kb.X) / 2, (ka.Y + kb.Y) / 2, true
}

func centroid(kps map[string]Keypoint) (float64, float64) {
	xs := make([]float64, 0, len(kps))
	ys := make([]float64, 0, len(kps))
	for _, name := range sortedNames(kps) {
		kp := kps[name]
		xs = append(xs, kp.X)
		ys = append(ys, kp.Y)
	}
	n := float64(len(kps))
	return floats.Sum(xs) / n, floats.Sum(ys) / n
}

func rmsRadius(kps map[string]Keypoint, cx, cy float64) float64 {
	sq := make([]float64, 0, len(kps))
	for _, name := range sortedNames(kps) {
		kp := kps[name]
		dx, dy := kp.X-cx, kp.Y-cy
		sq = append(sq, dx*dx+dy*dy)
	}
	return math.Sqrt(floats.Sum(sq) / float64(len(kps)))
}

// sortedNames fixes summation order so repeated calls are bit-identical.
func sortedNames(kps map[string]Keypoint) []string {
	return slices.Sorted(maps.Keys(kps))
}
