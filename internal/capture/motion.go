package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	blurKernel    = 21
	diffThreshold = 25
)

// MotionDetector compares consecutive frames and reports the share of
// pixels that changed.
type MotionDetector struct {
	mu        sync.Mutex
	threshold float64
	prev      gocv.Mat
	primed    bool
}

// NewMotionDetector creates a detector that reports motion once more than
// threshold percent of pixels differ from the previous frame.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{threshold: threshold, prev: gocv.NewMat()}
}

// Detect compares frame with the previous one. The first frame after
// construction or Reset only primes the baseline and reports no motion.
func (m *MotionDetector) Detect(frame *gocv.Mat) (moving bool, changed float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !m.primed {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, diffThreshold, 255, gocv.ThresholdBinary)

	changed = float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline frame. The detector can still be used afterwards.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

// Throttle picks the capture rate from recent motion. It never drops
// frames; every frame read is still classified so that hands leaving the
// view push empty labels through the stability window.
type Throttle struct {
	cfg        Config
	motion     *MotionDetector
	active     bool
	lastMotion time.Time
	now        func() time.Time
}

// NewThrottle creates a Throttle starting in idle mode.
func NewThrottle(cfg Config) *Throttle {
	return &Throttle{
		cfg:    cfg,
		motion: NewMotionDetector(cfg.MotionThreshold),
		now:    time.Now,
	}
}

// Observe feeds a frame and returns the rate the camera should run at, and
// whether that rate differs from the previous call.
func (t *Throttle) Observe(frame *gocv.Mat) (fps int, changed bool) {
	moving, _ := t.motion.Detect(frame)
	return t.update(moving, t.now())
}

func (t *Throttle) update(moving bool, now time.Time) (int, bool) {
	switch {
	case moving:
		t.lastMotion = now
		if !t.active {
			t.active = true
			return t.cfg.ActiveFPS, true
		}
	case t.active && now.Sub(t.lastMotion) > t.cfg.IdleTimeout:
		t.active = false
		return t.cfg.IdleFPS, true
	}
	return t.FPS(), false
}

// Active reports whether the throttle is in active mode.
func (t *Throttle) Active() bool { return t.active }

// FPS returns the current target rate.
func (t *Throttle) FPS() int {
	if t.active {
		return t.cfg.ActiveFPS
	}
	return t.cfg.IdleFPS
}

// Close releases the motion detector.
func (t *Throttle) Close() { t.motion.Close() }
