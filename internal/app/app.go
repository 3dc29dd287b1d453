// Package app runs the camera pipeline: capture, hand detection, gesture
// recognition and delivery of confirmed changes.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/events"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// EnabledKey is the settings key holding the persisted detection toggle.
const EnabledKey = "detection.enabled"

// Config holds what the App is built from. Store, Dispatcher and Metrics are optional.
type Config struct {
	Gesture  gesture.Config
	Camera   capture.Config
	Detector detector.Config

	Store      *store.Store
	Dispatcher *events.Dispatcher
	Metrics    *metrics.Metrics
}

// App owns one camera stream and the session recognizing it.
type App struct {
	config   Config
	camera   capture.Camera
	throttle *capture.Throttle
	detector detector.Detector
	session  *session.Session

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an App. It uses MediaPipe when the helper is installed and
// falls back to the mock detector otherwise.
func New(config Config) (*App, error) {
	sess, err := session.New(uuid.NewString(), store.SourceCamera, config.Gesture, session.Options{
		Dispatcher: config.Dispatcher,
		Metrics:    config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		config:   config,
		camera:   capture.NewCamera(config.Camera),
		throttle: capture.NewThrottle(config.Camera),
		session:  sess,
		enabled:  true,
	}

	if config.Store != nil {
		a.enabled = config.Store.Settings().GetBool(EnabledKey, true)
	}

	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		slog.Info("using MediaPipe hand detection")
	} else {
		slog.Warn("MediaPipe not available, using mock detector", "error", err)
		a.detector = detector.NewMockDetector()
	}

	return a, nil
}

// SetEnabled enables or disables recognition and persists the choice.
// Disabling also clears the stability window so stale frames cannot
// confirm a label after re-enabling.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	a.enabled = enabled
	a.mu.Unlock()

	if !enabled {
		a.session.Reset()
	}
	if a.config.Store != nil {
		if err := a.config.Store.Settings().SetBool(EnabledKey, enabled); err != nil {
			slog.Error("failed to persist detection toggle", "error", err)
		}
	}
	slog.Info("detection toggled", "enabled", enabled)
}

// IsEnabled reports whether recognition is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector. Call before Start.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. Call before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Start opens the camera, records the session and starts the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.throttle.FPS())

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(a.session.Record()); err != nil {
			a.camera.Close()
			return fmt.Errorf("record camera session: %w", err)
		}
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	slog.Info("detection pipeline started", "session", a.session.ID(), "fps", a.camera.FPS())
	return nil
}

// Stop halts the pipeline, waits for it to exit and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		slog.Error("error closing camera", "error", err)
	}
	a.throttle.Close()
	if err := a.detector.Close(); err != nil {
		slog.Error("error closing detector", "error", err)
	}
	if a.config.Store != nil {
		if err := a.config.Store.Sessions().End(a.session.ID()); err != nil && !errors.Is(err, store.ErrNotFound) {
			slog.Error("error ending camera session", "error", err)
		}
	}

	slog.Info("detection pipeline stopped", "session", a.session.ID())
}

// Reset clears the stability window and confirmed label.
func (a *App) Reset() {
	a.session.Reset()
	slog.Info("recognizer reset", "session", a.session.ID())
}

// Session returns the camera session.
func (a *App) Session() *session.Session {
	return a.session
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}
