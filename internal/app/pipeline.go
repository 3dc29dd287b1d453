package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
)

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 1
	}
	return time.Second / time.Duration(fps)
}

// runPipeline reads frames until stopCh closes or the source is exhausted.
//
// Every frame read while enabled is classified, including frames with no
// hands: those push None into the stability window. Motion only changes
// how often frames are read.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	cam := a.Camera()
	ticker := time.NewTicker(frameInterval(a.throttle.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := cam.ReadFrame()
			if err != nil {
				if errors.Is(err, capture.ErrEndOfStream) {
					slog.Info("frame source exhausted", "session", a.session.ID())
					return
				}
				slog.Warn("error reading frame", "error", err)
				continue
			}

			if fps, changed := a.throttle.Observe(frame); changed {
				cam.SetFPS(fps)
				ticker.Reset(frameInterval(fps))
				slog.Debug("capture rate changed", "fps", fps, "active", a.throttle.Active())
			}

			if _, err := a.processFrame(frame); err != nil {
				slog.Debug("frame skipped", "session", a.session.ID(), "error", err)
			}
			frame.Close()
		}
	}
}

// processFrame detects hands in frame and feeds them to the session.
func (a *App) processFrame(frame *gocv.Mat) (gesture.Result, error) {
	hands, err := a.Detector().Detect(frame)
	if err != nil {
		return gesture.Result{Confirmed: a.session.Confirmed()}, fmt.Errorf("detect hands: %w", err)
	}

	res, err := a.session.Process(hands)
	if err != nil {
		return res, err
	}
	if res.Changed {
		slog.Info("gesture confirmed",
			"session", a.session.ID(),
			"label", res.Confirmed.String(),
			"hands", res.Hands)
	}
	return res, nil
}
