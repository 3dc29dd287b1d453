package gesture

import (
	"errors"
	"fmt"
)

// Config holds the tunables of a recognizer. All fields are independent.
type Config struct {
	// WindowSize is the number of recent raw labels the stability filter votes over.
	WindowSize int `mapstructure:"window_size" yaml:"window_size" json:"window_size"`

	// MajorityThreshold is the fraction of the window a label must hold to be confirmed.
	MajorityThreshold float64 `mapstructure:"majority_threshold" yaml:"majority_threshold" json:"majority_threshold"`

	// ThumbThreshold is the horizontal tip-to-MCP distance above which the thumb is open.
	ThumbThreshold float64 `mapstructure:"thumb_threshold" yaml:"thumb_threshold" json:"thumb_threshold"`

	// HandProximity is the wrist distance below which distance-gated pair rules apply.
	HandProximity float64 `mapstructure:"hand_proximity" yaml:"hand_proximity" json:"hand_proximity"`

	// ThumbVerticalMargin is the minimum vertical tip-to-IP separation for thumbs up/down.
	ThumbVerticalMargin float64 `mapstructure:"thumb_vertical_margin" yaml:"thumb_vertical_margin" json:"thumb_vertical_margin"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		WindowSize:          5,
		MajorityThreshold:   0.8,
		ThumbThreshold:      0.04,
		HandProximity:       0.2,
		ThumbVerticalMargin: 0.02,
	}
}

// Validate checks that every field is usable.
func (c Config) Validate() error {
	var errs []error
	if c.WindowSize < 2 {
		errs = append(errs, fmt.Errorf("window_size must be at least 2, got %d", c.WindowSize))
	}
	if c.MajorityThreshold <= 0 || c.MajorityThreshold > 1 {
		errs = append(errs, fmt.Errorf("majority_threshold must be in (0, 1], got %g", c.MajorityThreshold))
	}
	if c.ThumbThreshold <= 0 {
		errs = append(errs, fmt.Errorf("thumb_threshold must be positive, got %g", c.ThumbThreshold))
	}
	if c.HandProximity <= 0 {
		errs = append(errs, fmt.Errorf("hand_proximity must be positive, got %g", c.HandProximity))
	}
	if c.ThumbVerticalMargin < 0 {
		errs = append(errs, fmt.Errorf("thumb_vertical_margin must not be negative, got %g", c.ThumbVerticalMargin))
	}
	return errors.Join(errs...)
}
