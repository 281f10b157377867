// Package similarity computes how far apart two normalised poses are.
package similarity

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/okian/poseparty/internal/domain/pose"
	"gonum.org/v1/gonum/stat"
)

// DefaultMinShared is the fewest landmarks two poses must share to be compared.
const DefaultMinShared = 5

// ErrIncomparablePoses reports that two poses share too few usable landmarks.
var ErrIncomparablePoses = errors.New("incomparable poses")

// Score is a non-negative distance; smaller means more similar.
type Score float64

// Scorer compares a reference pose against an observed one.
type Scorer interface {
	Score(reference, observed pose.Normalized) (Score, error)
}

// Option applies a configuration option to the Euclidean scorer.
type Option func(*Euclidean)

// WithMinShared sets the minimum landmark overlap.
func WithMinShared(n int) Option {
	return func(e *Euclidean) {
		if n > 0 {
			e.minShared = n
		}
	}
}

// WithConfidenceWeighting toggles weighting each landmark by the product of
// its two confidences. Enabled by default.
func WithConfidenceWeighting(enabled bool) Option {
	return func(e *Euclidean) {
		e.weighted = enabled
	}
}

// Euclidean scores poses by the (confidence weighted) mean Euclidean distance
// between corresponding landmarks. Only names present in both poses count.
type Euclidean struct {
	minShared int
	weighted  bool
}

// NewEuclidean creates a Euclidean scorer with configuration options.
func NewEuclidean(opts ...Option) *Euclidean {
	e := &Euclidean{
		minShared: DefaultMinShared,
		weighted:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinShared reports the configured overlap minimum.
func (e *Euclidean) MinShared() int { return e.minShared }

// Score returns the mean landmark distance between reference and observed.
func (e *Euclidean) Score(reference, observed pose.Normalized) (Score, error) {
	shared := sharedNames(reference, observed)
	if len(shared) == 0 || len(shared) < e.minShared {
		return 0, fmt.Errorf("%w: %d shared keypoints, need %d", ErrIncomparablePoses, len(shared), e.minShared)
	}

	dist := make([]float64, len(shared))
	weights := make([]float64, len(shared))
	var total float64
	for i, name := range shared {
		r, o := reference[name], observed[name]
		dist[i] = math.Hypot(r.X-o.X, r.Y-o.Y)
		weights[i] = r.Confidence * o.Confidence
		total += weights[i]
	}

	if !e.weighted || total <= 0 {
		weights = nil
	}
	return Score(stat.Mean(dist, weights)), nil
}

// sharedNames returns the sorted intersection of landmark names. The result
// does not depend on argument order.
func sharedNames(a, b pose.Normalized) []string {
	if len(b) < len(a) {
		a, b = b, a
	}
	names := make([]string, 0, len(a))
	for _, name := range slices.Sorted(maps.Keys(a)) {
		if _, ok := b[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
