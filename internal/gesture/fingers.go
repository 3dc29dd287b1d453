package gesture

import (
	"math"
	"strings"

	"github.com/ayusman/mudra/internal/landmark"
)

// FingerState records which fingers are extended in one frame.
type FingerState struct {
	Thumb  bool `json:"thumb"`
	Index  bool `json:"index"`
	Middle bool `json:"middle"`
	Ring   bool `json:"ring"`
	Pinky  bool `json:"pinky"`
}

// Count returns the number of extended fingers.
func (f FingerState) Count() int {
	n := 0
	for _, open := range f.slice() {
		if open {
			n++
		}
	}
	return n
}

// String renders the state as five characters, thumb first: 1 open, 0 closed.
func (f FingerState) String() string {
	var b strings.Builder
	for _, open := range f.slice() {
		if open {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

func (f FingerState) slice() [5]bool {
	return [5]bool{f.Thumb, f.Index, f.Middle, f.Ring, f.Pinky}
}

// ExtractFingers derives the finger state from a complete set of landmarks.
//
// Index through pinky are open when the tip sits above (smaller y) the PIP
// joint, which assumes a roughly upright hand. The thumb is open when its tip
// is horizontally further than thumbThreshold from the thumb MCP joint, in
// either direction, so the test ignores handedness.
func ExtractFingers(points []landmark.Point3D, thumbThreshold float64) FingerState {
	above := func(tip, pip int) bool {
		return points[tip].Y < points[pip].Y
	}

	return FingerState{
		Thumb:  math.Abs(points[landmark.ThumbTip].X-points[landmark.ThumbMCP].X) > thumbThreshold,
		Index:  above(landmark.IndexTip, landmark.IndexPIP),
		Middle: above(landmark.MiddleTip, landmark.MiddlePIP),
		Ring:   above(landmark.RingTip, landmark.RingPIP),
		Pinky:  above(landmark.PinkyTip, landmark.PinkyPIP),
	}
}
