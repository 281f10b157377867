// Package scoring accumulates per-frame tiers into a session grade and gates
// the one-shot ready transition.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/okian/poseparty/internal/domain/similarity"
	"github.com/okian/poseparty/internal/domain/tier"
)

// ErrInvalidCredits reports a credit outside [0, 1].
var ErrInvalidCredits = errors.New("invalid tier credits")

const percentScale = 100

// Credits is the weighted frame credit awarded per tier.
type Credits struct {
	Excellent float64
	Good      float64
	Okay      float64
	Poor      float64
}

// DefaultCredits returns 1.0 / 0.6 / 0.3 / 0.1.
func DefaultCredits() Credits {
	return Credits{
		Excellent: 1.0,
		Good:      0.6,
		Okay:      0.3,
		Poor:      0.1,
	}
}

// Validate keeps every credit in [0, 1] so the session percent stays in [0, 100].
func (c Credits) Validate() error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"excellent", c.Excellent},
		{"good", c.Good},
		{"okay", c.Okay},
		{"poor", c.Poor},
	} {
		if math.IsNaN(v.value) || v.value < 0 || v.value > 1 {
			return fmt.Errorf("%w: %s credit %.4g not in [0,1]", ErrInvalidCredits, v.name, v.value)
		}
	}
	return nil
}

// For returns the credit for t. Unknown earns nothing.
func (c Credits) For(t tier.Tier) float64 {
	switch t {
	case tier.Excellent:
		return c.Excellent
	case tier.Good:
		return c.Good
	case tier.Okay:
		return c.Okay
	case tier.Poor:
		return c.Poor
	default:
		return 0
	}
}

// State is the running frame tally of a session.
type State struct {
	TotalFrames   int     `json:"total_frames"`
	CorrectFrames float64 `json:"correct_frames"`
}

// Percent returns round(correct/total*100). ok is false when no frame has
// been scored yet; the value is meaningless then.
func (s State) Percent() (percent int, ok bool) {
	if s.TotalFrames <= 0 {
		return 0, false
	}
	return int(math.Round(s.CorrectFrames / float64(s.TotalFrames) * percentScale)), true
}

// Accumulator owns a session's State. It is not safe for concurrent use;
// frames must arrive in order from a single goroutine.
type Accumulator struct {
	classifier *tier.Classifier
	credits    Credits
	state      State
}

// NewAccumulator validates credits and returns an empty Accumulator.
func NewAccumulator(classifier *tier.Classifier, credits Credits) (*Accumulator, error) {
	if classifier == nil {
		return nil, errors.New("scoring: nil classifier")
	}
	if err := credits.Validate(); err != nil {
		return nil, err
	}
	return &Accumulator{classifier: classifier, credits: credits}, nil
}

// Update classifies score, records one frame and returns the new state.
func (a *Accumulator) Update(score similarity.Score) State {
	return a.Record(a.classifier.Classify(score))
}

// Record counts one frame already classified as t.
func (a *Accumulator) Record(t tier.Tier) State {
	a.state.TotalFrames++
	a.state.CorrectFrames += a.credits.For(t)
	return a.state
}

// State returns the current tally.
func (a *Accumulator) State() State { return a.state }

// Reset returns the tally to (0, 0).
func (a *Accumulator) Reset() { a.state = State{} }

// Evaluate is the readiness latch: once current is true it stays true,
// otherwise it becomes true only on an Excellent frame.
func Evaluate(t tier.Tier, current bool) bool {
	if current {
		return true
	}
	return t == tier.Excellent
}
