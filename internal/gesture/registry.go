package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/landmark"
)

// Pattern constrains some or all fingers. A nil entry is a wildcard.
type Pattern struct {
	Thumb, Index, Middle, Ring, Pinky *bool
}

var (
	open   = ptr(true)
	closed = ptr(false)
)

func ptr(b bool) *bool { return &b }

// Matches reports whether every constrained finger equals fs.
func (p Pattern) Matches(fs FingerState) bool {
	eq := func(want *bool, got bool) bool { return want == nil || *want == got }
	return eq(p.Thumb, fs.Thumb) &&
		eq(p.Index, fs.Index) &&
		eq(p.Middle, fs.Middle) &&
		eq(p.Ring, fs.Ring) &&
		eq(p.Pinky, fs.Pinky)
}

// Predicate refines a rule with landmark geometry the finger pattern cannot see.
type Predicate func(fs FingerState, points []landmark.Point3D) bool

// Rule maps a finger pattern, optionally refined by a predicate, to a label.
type Rule struct {
	Name      Label
	Pattern   Pattern
	Predicate Predicate
}

func (r Rule) matches(fs FingerState, points []landmark.Point3D) bool {
	if !r.Pattern.Matches(fs) {
		return false
	}
	return r.Predicate == nil || r.Predicate(fs, points)
}

// Registry is an ordered list of single-hand rules. The first match wins.
type Registry struct {
	rules []Rule
}

// NewRegistry creates a Registry evaluating rules in the given order.
func NewRegistry(rules ...Rule) *Registry {
	return &Registry{rules: append([]Rule(nil), rules...)}
}

// Match returns the name of the first rule matching fs, or Unknown.
func (r *Registry) Match(fs FingerState, points []landmark.Point3D) Label {
	for _, rule := range r.rules {
		if rule.matches(fs, points) {
			return rule.Name
		}
	}
	return Unknown
}

// Rules returns a copy of the rules in evaluation order.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// DefaultRegistry returns the canonical single-hand rule set.
//
// POINTING_UP precedes ONE and only takes a fully straight index with the thumb
// tucked; any other index-only pose falls through to ONE. FOUR keeps the thumb
// and drops the pinky so it never collides with OPEN_PALM.
func DefaultRegistry(cfg Config) *Registry {
	margin := cfg.ThumbVerticalMargin
	return NewRegistry(
		Rule{Name: OpenPalm, Pattern: Pattern{open, open, open, open, open}},
		Rule{Name: Fist, Pattern: Pattern{closed, closed, closed, closed, closed}},
		Rule{Name: PointingUp, Pattern: Pattern{closed, open, closed, closed, closed}, Predicate: indexStraight},
		Rule{Name: One, Pattern: Pattern{nil, open, closed, closed, closed}},
		Rule{Name: Two, Pattern: Pattern{closed, open, open, closed, closed}},
		Rule{Name: Three, Pattern: Pattern{closed, open, open, open, closed}},
		Rule{Name: Four, Pattern: Pattern{open, open, open, open, closed}},
		Rule{Name: ThumbsUp, Pattern: Pattern{open, closed, closed, closed, closed}, Predicate: thumbVertical(margin, true)},
		Rule{Name: ThumbsDown, Pattern: Pattern{open, closed, closed, closed, closed}, Predicate: thumbVertical(margin, false)},
	)
}

// indexStraight holds when the index joints rise monotonically from MCP to tip.
func indexStraight(_ FingerState, p []landmark.Point3D) bool {
	return p[landmark.IndexTip].Y < p[landmark.IndexDIP].Y &&
		p[landmark.IndexDIP].Y < p[landmark.IndexPIP].Y &&
		p[landmark.IndexPIP].Y < p[landmark.IndexMCP].Y
}

// thumbVertical compares the thumb tip to its IP joint. A thumb within margin
// of level is neither up nor down.
func thumbVertical(margin float64, up bool) Predicate {
	return func(_ FingerState, p []landmark.Point3D) bool {
		tip, ip := p[landmark.ThumbTip].Y, p[landmark.ThumbIP].Y
		if up {
			return tip < ip-margin
		}
		return tip > ip+margin
	}
}

// PairRule names a two-hand gesture. MaxDistance of zero means unconstrained;
// otherwise the wrist distance must be strictly below it.
type PairRule struct {
	Name        Label
	Left        Label
	Right       Label
	MaxDistance float64
}

func (r PairRule) matches(left, right Label, distance float64) bool {
	if left != r.Left || right != r.Right {
		return false
	}
	return r.MaxDistance <= 0 || distance < r.MaxDistance
}

// PairRegistry is an ordered list of two-hand rules. The first match wins.
type PairRegistry struct {
	rules []PairRule
}

// NewPairRegistry creates a PairRegistry and checks that no distance-gated
// rule is shadowed by an earlier unconstrained rule for the same signs.
func NewPairRegistry(rules ...PairRule) (*PairRegistry, error) {
	r := &PairRegistry{rules: append([]PairRule(nil), rules...)}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate reports the first unreachable rule.
func (r *PairRegistry) Validate() error {
	type signs struct{ left, right Label }
	unconstrained := make(map[signs]Label)
	for _, rule := range r.rules {
		key := signs{rule.Left, rule.Right}
		if prior, ok := unconstrained[key]; ok {
			return fmt.Errorf("pair rule %s is unreachable: %s already matches (%s, %s)",
				rule.Name, prior, rule.Left, rule.Right)
		}
		if rule.MaxDistance <= 0 {
			unconstrained[key] = rule.Name
		}
	}
	return nil
}

// Match returns the first rule matching the two signs and distance.
func (r *PairRegistry) Match(left, right Label, distance float64) (Label, bool) {
	for _, rule := range r.rules {
		if rule.matches(left, right, distance) {
			return rule.Name, true
		}
	}
	return None, false
}

// Rules returns a copy of the rules in evaluation order.
func (r *PairRegistry) Rules() []PairRule {
	return append([]PairRule(nil), r.rules...)
}

// DefaultPairRegistry returns the canonical two-hand rule set.
func DefaultPairRegistry(cfg Config) *PairRegistry {
	r, err := NewPairRegistry(
		PairRule{Name: Sorry, Left: OpenPalm, Right: OpenPalm, MaxDistance: cfg.HandProximity},
		PairRule{Name: Hello, Left: OpenPalm, Right: OpenPalm},
		PairRule{Name: ThankYou, Left: Fist, Right: Fist},
		PairRule{Name: Excellent, Left: ThumbsUp, Right: ThumbsUp},
		PairRule{Name: Please, Left: Fist, Right: OpenPalm},
		PairRule{Name: Together, Left: PointingUp, Right: PointingUp},
	)
	if err != nil {
		panic(err)
	}
	return r
}
