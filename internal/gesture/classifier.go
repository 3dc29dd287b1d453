package gesture

import (
	"gonum.org/v1/gonum/floats"

	"github.com/ayusman/mudra/internal/landmark"
)

// Classifier maps assigned hands to a raw, per-frame label.
type Classifier struct {
	thumbThreshold float64
	single         *Registry
	pairs          *PairRegistry
}

// NewClassifier creates a Classifier over the given registries.
func NewClassifier(thumbThreshold float64, single *Registry, pairs *PairRegistry) *Classifier {
	return &Classifier{
		thumbThreshold: thumbThreshold,
		single:         single,
		pairs:          pairs,
	}
}

// NewDefaultClassifier creates a Classifier with the canonical rule sets.
// cfg must be valid.
func NewDefaultClassifier(cfg Config) *Classifier {
	return NewClassifier(cfg.ThumbThreshold, DefaultRegistry(cfg), DefaultPairRegistry(cfg))
}

// Fingers returns the finger state of a complete hand.
func (c *Classifier) Fingers(hand *landmark.HandLandmarks) FingerState {
	return ExtractFingers(hand.Points, c.thumbThreshold)
}

// ClassifyHand classifies one complete hand. Unknown means no rule matched.
func (c *Classifier) ClassifyHand(hand *landmark.HandLandmarks) Label {
	return c.single.Match(c.Fingers(hand), hand.Points)
}

// ClassifyPair classifies both hands, then the pair. It returns TwoHands when
// either hand is unresolved or no pair rule matches, along with the wrist distance.
func (c *Classifier) ClassifyPair(left, right *landmark.HandLandmarks) (Label, float64) {
	distance := WristDistance(left, right)

	l, r := c.ClassifyHand(left), c.ClassifyHand(right)
	if l == Unknown || r == Unknown {
		return TwoHands, distance
	}
	if name, ok := c.pairs.Match(l, r, distance); ok {
		return name, distance
	}
	return TwoHands, distance
}

// Classify dispatches on how many slots are filled.
func (c *Classifier) Classify(roles Roles) Label {
	switch {
	case roles.Left != nil && roles.Right != nil:
		label, _ := c.ClassifyPair(roles.Left, roles.Right)
		return label
	case roles.Left != nil:
		return c.ClassifyHand(roles.Left)
	case roles.Right != nil:
		return c.ClassifyHand(roles.Right)
	default:
		return None
	}
}

// WristDistance is the Euclidean distance between two wrists in normalized x/y.
func WristDistance(a, b *landmark.HandLandmarks) float64 {
	wa, wb := a.Wrist(), b.Wrist()
	return floats.Distance([]float64{wa.X, wa.Y}, []float64{wb.X, wb.Y}, 2)
}
