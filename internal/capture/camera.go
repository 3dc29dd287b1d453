// Package capture reads video frames for the recognition pipeline using GoCV.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrEmptyFrame is returned when the device produced a frame without pixels.
	ErrEmptyFrame = errors.New("captured frame is empty")

	// ErrEndOfStream is returned by finite frame sources once exhausted.
	ErrEndOfStream = errors.New("no more frames")
)

// Config holds camera and capture-rate settings.
type Config struct {
	Device int `mapstructure:"device" yaml:"device"`
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`

	// IdleFPS is used while nothing moves in front of the camera,
	// ActiveFPS once motion is seen.
	IdleFPS   int `mapstructure:"idle_fps" yaml:"idle_fps"`
	ActiveFPS int `mapstructure:"active_fps" yaml:"active_fps"`

	// MotionThreshold is the percentage of changed pixels that counts as motion.
	MotionThreshold float64 `mapstructure:"motion_threshold" yaml:"motion_threshold"`

	// IdleTimeout is how long without motion before dropping back to IdleFPS.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// DefaultConfig returns the capture defaults: 640x480, 5 fps idle, 15 fps active.
func DefaultConfig() Config {
	return Config{
		Device:          0,
		Width:           640,
		Height:          480,
		IdleFPS:         5,
		ActiveFPS:       15,
		MotionThreshold: 1.0,
		IdleTimeout:     2 * time.Second,
	}
}

// Validate checks that rates and sizes are usable.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera resolution must be positive, got %dx%d", c.Width, c.Height))
	}
	if c.IdleFPS <= 0 {
		errs = append(errs, fmt.Errorf("camera idle_fps must be positive, got %d", c.IdleFPS))
	}
	if c.ActiveFPS < c.IdleFPS {
		errs = append(errs, fmt.Errorf("camera active_fps (%d) must not be below idle_fps (%d)", c.ActiveFPS, c.IdleFPS))
	}
	if c.MotionThreshold <= 0 {
		errs = append(errs, fmt.Errorf("camera motion_threshold must be positive, got %g", c.MotionThreshold))
	}
	return errors.Join(errs...)
}

// Camera is a source of frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// deviceCamera reads from a local capture device.
type deviceCamera struct {
	cfg     Config
	fps     int
	capture *gocv.VideoCapture
	mu      sync.Mutex
}

// NewCamera creates a Camera for cfg.Device. It starts at cfg.IdleFPS.
func NewCamera(cfg Config) Camera {
	fps := cfg.IdleFPS
	if fps <= 0 {
		fps = DefaultConfig().IdleFPS
	}
	return &deviceCamera{cfg: cfg, fps: fps}
}

func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.Device, err)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = vc
	return nil
}

func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, fmt.Errorf("read from camera %d failed", c.cfg.Device)
	}
	if mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}
	return &mat, nil
}

// SetFPS ignores non-positive values.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
