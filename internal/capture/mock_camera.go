package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back a fixed sequence of frames. It is used by tests and
// by the pipeline when no capture device is available.
type MockCamera struct {
	mu     sync.Mutex
	frames []gocv.Mat
	owned  bool
	next   int
	loop   bool
	open   bool
	fps    int
	reads  int
}

// NewMockCamera plays back copies of frames. The caller keeps ownership of frames.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	mats := make([]gocv.Mat, len(frames))
	for i, f := range frames {
		mats[i] = *f
	}
	return &MockCamera{frames: mats, loop: loop, fps: DefaultConfig().IdleFPS}
}

// NewBlankCamera plays back n black frames of the given size. Close releases them.
func NewBlankCamera(n, width, height int, loop bool) *MockCamera {
	mats := make([]gocv.Mat, n)
	for i := range mats {
		mats[i] = gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	}
	return &MockCamera{frames: mats, owned: true, loop: loop, fps: DefaultConfig().IdleFPS}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

// Close stops playback. Frames created by NewBlankCamera are released.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false
	if c.owned {
		for i := range c.frames {
			c.frames[i].Close()
		}
		c.frames = nil
		c.owned = false
	}
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.next >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrEndOfStream
		}
		c.next = 0
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames have been handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
