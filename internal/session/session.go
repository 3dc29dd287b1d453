// Package session wraps a gesture.Recognizer for one stream of frames and
// reports what it sees to metrics and to the change dispatcher.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/events"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/landmark"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
)

// Session serializes frames for one recognizer. It is safe for concurrent
// use; frames submitted concurrently are processed one at a time, and a frame
// is not accepted until the previous one has been delivered to every consumer.
type Session struct {
	id     string
	source string

	// frameMu is held from recognition through delivery; mu guards the
	// recognizer state so readers are not blocked behind a slow consumer.
	frameMu    sync.Mutex
	mu         sync.Mutex
	recognizer *gesture.Recognizer
	lastFrame  time.Time

	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
}

// Options carries the optional sinks. Nil fields are skipped.
type Options struct {
	Dispatcher *events.Dispatcher
	Metrics    *metrics.Metrics
}

// New creates a session. cfg is validated by the recognizer.
func New(id, source string, cfg gesture.Config, opts Options) (*Session, error) {
	r, err := gesture.NewRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	return &Session{
		id:         id,
		source:     source,
		recognizer: r,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Source returns where frames come from (store.SourceAPI or store.SourceCamera).
func (s *Session) Source() string { return s.source }

// Config returns the recognizer configuration.
func (s *Session) Config() gesture.Config { return s.recognizer.Config() }

// Record returns the row persisted for this session.
func (s *Session) Record() *store.Session {
	cfg := s.Config()
	return &store.Session{
		ID:                  s.id,
		Source:              s.source,
		WindowSize:          cfg.WindowSize,
		MajorityThreshold:   cfg.MajorityThreshold,
		ThumbThreshold:      cfg.ThumbThreshold,
		HandProximity:       cfg.HandProximity,
		ThumbVerticalMargin: cfg.ThumbVerticalMargin,
	}
}

// Process runs one frame through the recognizer and publishes the change,
// if any, before returning. A publish failure does not fail the frame.
func (s *Session) Process(hands []landmark.HandLandmarks) (gesture.Result, error) {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()

	start := time.Now()

	s.mu.Lock()
	res, err := s.recognizer.Process(hands)
	s.lastFrame = start
	s.mu.Unlock()

	if err != nil {
		var inv *gesture.InvalidInputError
		if s.metrics != nil && errors.As(err, &inv) {
			s.metrics.ObserveInvalid(inv.Field)
		}
		return res, err
	}

	if s.metrics != nil {
		s.metrics.ObserveFrame(s.source, string(res.Raw), time.Since(start).Seconds())
	}
	if res.Changed {
		if s.metrics != nil {
			s.metrics.ObserveConfirmed(string(res.Confirmed))
		}
		if s.dispatcher != nil {
			_ = s.dispatcher.Publish(events.Change{
				SessionID: s.id,
				Label:     res.Confirmed,
				Raw:       res.Raw,
				Hands:     res.Hands,
				Timestamp: start,
			})
		}
	}
	return res, nil
}

// Reset clears the stability window and the confirmed label.
func (s *Session) Reset() {
	s.frameMu.Lock()
	defer s.frameMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recognizer.Reset()
}

// Confirmed returns the current confirmed label.
func (s *Session) Confirmed() gesture.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recognizer.Confirmed()
}

// History returns the stability window, oldest first.
func (s *Session) History() []gesture.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recognizer.History()
}

// LastFrame returns when the last frame was submitted, or the zero time.
func (s *Session) LastFrame() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}
