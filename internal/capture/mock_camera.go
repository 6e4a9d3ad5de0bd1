package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrames is returned by a MockCamera with an empty frame list.
var ErrNoFrames = errors.New("no frames available")

// MockCamera serves a fixed frame sequence. Each read returns a clone, so
// the caller may draw on it and the source frames stay untouched.
type MockCamera struct {
	mu      sync.Mutex
	frames  []*gocv.Mat
	next    int
	served  int
	loop    bool
	fps     int
	running bool
}

// NewMockCamera returns a camera over frames. With loop set the sequence
// restarts after the last frame; otherwise ReadFrame reports ErrEndOfStream.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open starts playback from the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	c.running, c.next = true, 0
	c.mu.Unlock()
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.running:
		return nil, ErrCameraNotOpen
	case len(c.frames) == 0:
		return nil, ErrNoFrames
	case c.next == len(c.frames) && !c.loop:
		return nil, ErrEndOfStream
	}

	frame := c.frames[c.next%len(c.frames)].Clone()
	c.next = c.next%len(c.frames) + 1
	c.served++
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps > 0 {
		c.mu.Lock()
		c.fps = fps
		c.mu.Unlock()
	}
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns how many frames have been served.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}
