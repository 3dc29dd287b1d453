package gesture

import "math"

// StabilityFilter debounces raw labels with a majority vote over a sliding window.
//
// Nothing is confirmed until the window is full. From then on, the most
// frequent non-None label in the window (ties go to the label seen first)
// replaces the confirmed label when it holds at least ceil(N * threshold)
// slots. Otherwise the previous confirmation is kept, so a noisy frame or a
// stretch of empty frames never clears the output on its own.
type StabilityFilter struct {
	window    int
	required  int
	history   []Label
	confirmed Label
}

// NewStabilityFilter creates a filter over the last window labels. The window
// is at least one frame and the required vote count lies in [1, window];
// Config.Validate rejects the values that would need clamping.
func NewStabilityFilter(window int, threshold float64) *StabilityFilter {
	if window < 1 {
		window = 1
	}
	// The epsilon keeps products like 5*0.8 from rounding up past the exact count.
	required := int(math.Ceil(float64(window)*threshold - 1e-9))
	if required < 1 {
		required = 1
	}
	if required > window {
		required = window
	}
	return &StabilityFilter{
		window:   window,
		required: required,
		history:  make([]Label, 0, window),
	}
}

// Push records one raw label and returns the confirmed label.
func (f *StabilityFilter) Push(raw Label) Label {
	if len(f.history) == f.window {
		copy(f.history, f.history[1:])
		f.history = f.history[:f.window-1]
	}
	f.history = append(f.history, raw)

	if len(f.history) < f.window {
		return f.confirmed
	}

	if candidate, count := f.leader(); count >= f.required {
		f.confirmed = candidate
	}
	return f.confirmed
}

// leader tallies non-None labels and returns the most frequent one.
func (f *StabilityFilter) leader() (Label, int) {
	counts := make(map[Label]int, len(f.history))
	order := make([]Label, 0, len(f.history))
	for _, l := range f.history {
		if l == None {
			continue
		}
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}

	best, bestCount := None, 0
	for _, l := range order {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best, bestCount
}

// Confirmed returns the current confirmed label without recording anything.
func (f *StabilityFilter) Confirmed() Label {
	return f.confirmed
}

// History returns a copy of the window, oldest first.
func (f *StabilityFilter) History() []Label {
	return append([]Label(nil), f.history...)
}

// Window returns the configured window size.
func (f *StabilityFilter) Window() int {
	return f.window
}

// Required returns how many votes a label needs to be confirmed.
func (f *StabilityFilter) Required() int {
	return f.required
}

// Reset clears the window and the confirmed label.
func (f *StabilityFilter) Reset() {
	f.history = f.history[:0]
	f.confirmed = None
}
