// Package gesture turns per-frame hand landmarks into a debounced gesture label.
//
// A frame flows through role assignment, finger-state extraction, one- or
// two-hand classification against an ordered rule registry, and finally a
// majority-vote stability filter. Everything except the filter is a pure
// function of the current frame. A Recognizer bundles one instance of each
// stage and is owned by a single stream.
package gesture

// Label is a gesture name from the closed taxonomy, or one of the sentinels.
type Label string

// Single-hand labels.
const (
	OpenPalm   Label = "OPEN_PALM"
	Fist       Label = "FIST"
	One        Label = "ONE"
	Two        Label = "TWO"
	Three      Label = "THREE"
	Four       Label = "FOUR"
	ThumbsUp   Label = "THUMBS_UP"
	ThumbsDown Label = "THUMBS_DOWN"
	PointingUp Label = "POINTING_UP"
)

// Two-hand labels.
const (
	Hello     Label = "HELLO"
	ThankYou  Label = "THANK_YOU"
	Excellent Label = "EXCELLENT"
	Please    Label = "PLEASE"
	Sorry     Label = "SORRY"
	Together  Label = "TOGETHER"
)

// Sentinels.
const (
	// None means no gesture: no hands, or nothing confirmed yet.
	None Label = ""
	// Unknown is a single hand that matched no rule.
	Unknown Label = "UNKNOWN"
	// TwoHands is two hands present without a paired classification.
	TwoHands Label = "TWO_HANDS"
)

// IsNone reports whether l is the empty label.
func (l Label) IsNone() bool { return l == None }

// Resolved reports whether l is a named gesture rather than a sentinel.
func (l Label) Resolved() bool {
	return l != None && l != Unknown && l != TwoHands
}

// String returns the label, or "-" for None so logs stay readable.
func (l Label) String() string {
	if l == None {
		return "-"
	}
	return string(l)
}
