package gesture

import (
	"errors"
	"fmt"
)

// ErrInvalidInput matches any *InvalidInputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Fields named by InvalidInputError.
const (
	FieldHands      = "hands"
	FieldLandmarks  = "landmarks"
	FieldHandedness = "handedness"
)

// InvalidInputError reports a malformed frame. Hand is the index of the
// offending hand in the input slice, or -1 when the frame as a whole is bad.
type InvalidInputError struct {
	Hand   int
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Hand < 0 {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("hand %d: invalid %s: %s", e.Hand, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) hold.
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(hand int, field, format string, args ...any) error {
	return &InvalidInputError{Hand: hand, Field: field, Reason: fmt.Sprintf(format, args...)}
}
