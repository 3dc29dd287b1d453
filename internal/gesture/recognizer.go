package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/landmark"
)

// Result is the outcome of one frame.
type Result struct {
	Raw       Label `json:"raw"`
	Confirmed Label `json:"confirmed"`
	Changed   bool  `json:"changed"`
	Hands     int   `json:"hands"`
}

// Recognizer runs the full per-frame pipeline for one stream.
// It is not safe for concurrent use; each stream owns its own Recognizer.
type Recognizer struct {
	config     Config
	roles      *RoleAssigner
	classifier *Classifier
	filter     *StabilityFilter
}

// NewRecognizer creates a Recognizer with the canonical rule sets.
func NewRecognizer(cfg Config) (*Recognizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("gesture config: %w", err)
	}
	return &Recognizer{
		config:     cfg,
		roles:      NewRoleAssigner(),
		classifier: NewDefaultClassifier(cfg),
		filter:     NewStabilityFilter(cfg.WindowSize, cfg.MajorityThreshold),
	}, nil
}

// Process classifies one frame and feeds the stability filter.
// A malformed frame returns an *InvalidInputError and leaves the filter untouched.
func (r *Recognizer) Process(hands []landmark.HandLandmarks) (Result, error) {
	roles, err := r.roles.Assign(hands)
	if err != nil {
		return Result{Confirmed: r.filter.Confirmed()}, err
	}

	raw := r.classifier.Classify(roles)
	before := r.filter.Confirmed()
	confirmed := r.filter.Push(raw)

	return Result{
		Raw:       raw,
		Confirmed: confirmed,
		Changed:   confirmed != before,
		Hands:     roles.Count(),
	}, nil
}

// Confirmed returns the current confirmed label.
func (r *Recognizer) Confirmed() Label {
	return r.filter.Confirmed()
}

// History returns the stability window, oldest first.
func (r *Recognizer) History() []Label {
	return r.filter.History()
}

// Config returns the configuration the recognizer was built with.
func (r *Recognizer) Config() Config {
	return r.config
}

// Reset clears the stability state. Nothing else is touched.
func (r *Recognizer) Reset() {
	r.filter.Reset()
}
