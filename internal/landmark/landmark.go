// Package landmark defines the 21-point hand model reported by the tracker.
package landmark

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels reported by the tracker.
const (
	HandLeft  = "Left"
	HandRight = "Right"
)

// Point3D is a normalized landmark in camera space. X and Y are in [0,1];
// Z is carried through from the tracker but unused by classification.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one tracked hand for a single frame.
// A well-formed hand has exactly NumLandmarks points.
type HandLandmarks struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"` // "Left" or "Right"
	Score      float64   `json:"score"`
}

// Complete reports whether the hand carries the full landmark set.
func (h *HandLandmarks) Complete() bool {
	return h != nil && len(h.Points) == NumLandmarks
}

// Finite reports whether every coordinate is a finite number.
func (h *HandLandmarks) Finite() bool {
	if h == nil {
		return false
	}
	for _, p := range h.Points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return false
		}
	}
	return true
}

// Wrist returns the wrist landmark. The hand must be complete.
func (h *HandLandmarks) Wrist() Point3D {
	return h.Points[Wrist]
}

// Clone returns a deep copy of the hand.
func (h HandLandmarks) Clone() HandLandmarks {
	c := h
	c.Points = append([]Point3D(nil), h.Points...)
	return c
}

// Translate returns a copy of the hand shifted by dx, dy.
func (h HandLandmarks) Translate(dx, dy float64) HandLandmarks {
	c := h.Clone()
	for i := range c.Points {
		c.Points[i].X += dx
		c.Points[i].Y += dy
	}
	return c
}

// MoveWristTo returns a copy of the hand translated so the wrist sits at (x, y).
func (h HandLandmarks) MoveWristTo(x, y float64) HandLandmarks {
	w := h.Points[Wrist]
	return h.Translate(x-w.X, y-w.Y)
}
