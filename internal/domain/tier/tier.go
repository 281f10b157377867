// Package tier maps similarity scores onto discrete feedback buckets.
package tier

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/poseparty/internal/domain/similarity"
)

// ErrInvalidThresholds reports a threshold set that is not strictly increasing.
var ErrInvalidThresholds = errors.New("invalid tier thresholds")

// Tier is an ordered feedback bucket. Lower values are better matches.
type Tier int

// Tiers in order. Unknown is the zero value and is never produced by Classify.
const (
	Unknown Tier = iota
	Excellent
	Good
	Okay
	Poor
)

// All lists the classifiable tiers from best to worst.
var All = []Tier{Excellent, Good, Okay, Poor} //nolint:gochecknoglobals // read-only tier table

func (t Tier) String() string {
	switch t {
	case Excellent:
		return "EXCELLENT"
	case Good:
		return "GOOD"
	case Okay:
		return "OKAY"
	case Poor:
		return "POOR"
	default:
		return "UNKNOWN"
	}
}

// Label is the feedback text shown to the player.
func (t Tier) Label() string {
	switch t {
	case Excellent:
		return "Excellent!!"
	case Good:
		return "Good!"
	case Okay:
		return "Okay"
	case Poor:
		return "Meh.."
	default:
		return ""
	}
}

// MarshalText encodes the tier by name.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Parse resolves a tier name as produced by String.
func Parse(s string) (Tier, error) {
	for _, t := range All {
		if t.String() == s {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown tier %q", s)
}

// Thresholds are the inclusive upper bounds of the first three tiers.
type Thresholds struct {
	ExcellentMax float64
	GoodMax      float64
	OkayMax      float64
}

// DefaultThresholds returns the calibrated 0.25 / 0.55 / 0.8 bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExcellentMax: 0.25,
		GoodMax:      0.55,
		OkayMax:      0.8,
	}
}

// Validate checks excellentMax < goodMax < okayMax with finite values.
func (t Thresholds) Validate() error {
	for _, v := range []float64{t.ExcellentMax, t.GoodMax, t.OkayMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidThresholds)
		}
	}
	if t.ExcellentMax < 0 {
		return fmt.Errorf("%w: excellentMax %.4g is negative", ErrInvalidThresholds, t.ExcellentMax)
	}
	if t.ExcellentMax >= t.GoodMax || t.GoodMax >= t.OkayMax {
		return fmt.Errorf("%w: need excellentMax < goodMax < okayMax, got %.4g / %.4g / %.4g",
			ErrInvalidThresholds, t.ExcellentMax, t.GoodMax, t.OkayMax)
	}
	return nil
}

// Classifier buckets scores using fixed thresholds.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier validates thresholds and returns a Classifier.
func NewClassifier(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// Thresholds returns the bounds in use.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Classify maps a score to exactly one tier. Bounds are inclusive on the
// upper side; NaN falls through to Poor.
func (c *Classifier) Classify(score similarity.Score) Tier {
	s := float64(score)
	switch {
	case s <= c.thresholds.ExcellentMax:
		return Excellent
	case s <= c.thresholds.GoodMax:
		return Good
	case s <= c.thresholds.OkayMax:
		return Okay
	default:
		return Poor
	}
}
