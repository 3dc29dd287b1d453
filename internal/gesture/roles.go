package gesture

import (
	"github.com/ayusman/mudra/internal/landmark"
)

// MaxHands is the largest hand set a frame may carry.
const MaxHands = 2

// Roles holds the hands of one frame in their screen-relative slots.
// Either slot may be nil.
type Roles struct {
	Left  *landmark.HandLandmarks
	Right *landmark.HandLandmarks
}

// Count returns the number of occupied slots.
func (r Roles) Count() int {
	n := 0
	if r.Left != nil {
		n++
	}
	if r.Right != nil {
		n++
	}
	return n
}

// RoleAssigner resolves a frame's hands into left and right slots.
//
// With a single hand the tracker's handedness label is taken as-is:
// "Left" fills the left slot and "Right" the right slot. No mirroring is
// applied, so callers feeding a mirrored selfie view see the tracker's own
// convention. With two hands the labels are ignored and the hand whose wrist
// has the smaller x is left, which makes the result display-relative. Equal
// wrist x falls back to input order.
type RoleAssigner struct{}

// NewRoleAssigner creates a RoleAssigner.
func NewRoleAssigner() *RoleAssigner {
	return &RoleAssigner{}
}

// Assign validates the frame and places each hand in a slot.
// The returned slots point into hands.
func (a *RoleAssigner) Assign(hands []landmark.HandLandmarks) (Roles, error) {
	if len(hands) > MaxHands {
		return Roles{}, invalid(-1, FieldHands, "got %d hands, at most %d supported", len(hands), MaxHands)
	}
	for i := range hands {
		if err := validateHand(i, &hands[i]); err != nil {
			return Roles{}, err
		}
	}

	switch len(hands) {
	case 0:
		return Roles{}, nil

	case 1:
		hand := &hands[0]
		switch hand.Handedness {
		case landmark.HandLeft:
			return Roles{Left: hand}, nil
		case landmark.HandRight:
			return Roles{Right: hand}, nil
		default:
			return Roles{}, invalid(0, FieldHandedness, "want %q or %q, got %q",
				landmark.HandLeft, landmark.HandRight, hand.Handedness)
		}

	default:
		first, second := &hands[0], &hands[1]
		if second.Wrist().X < first.Wrist().X {
			return Roles{Left: second, Right: first}, nil
		}
		return Roles{Left: first, Right: second}, nil
	}
}

// validateHand rejects anything short of a complete, finite landmark set.
func validateHand(i int, hand *landmark.HandLandmarks) error {
	if n := len(hand.Points); n != landmark.NumLandmarks {
		return invalid(i, FieldLandmarks, "got %d landmarks, want %d", n, landmark.NumLandmarks)
	}
	if !hand.Finite() {
		return invalid(i, FieldLandmarks, "non-finite coordinate")
	}
	return nil
}
