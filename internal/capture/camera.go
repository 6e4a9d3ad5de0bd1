// Package capture provides frame sources: camera devices through GoCV and
// video files through ffmpeg.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a source that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned when a non-looping source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
	// ErrReadFailed is returned when the device delivers no frame.
	ErrReadFailed = errors.New("failed to read frame from camera")
	// ErrEmptyFrame is returned when the device delivers an empty frame.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera defines the interface for frame sources.
// ReadFrame returns an 8-bit BGR Mat the caller must close.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options sets the requested frame geometry and rate.
// Zero values use the defaults.
type Options struct {
	Width  int
	Height int
	FPS    int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	return o
}

// deviceCamera reads from a capture device. Devices are free to ignore the
// requested geometry, so frames are normalized to Options on read: zone
// coordinates assume the configured size.
type deviceCamera struct {
	deviceID int
	size     image.Point
	fps      int

	mu      sync.Mutex
	capture *gocv.VideoCapture
	raw     gocv.Mat
	running bool
}

// NewCamera creates a Camera for the given device index.
func NewCamera(deviceID int, opts Options) Camera {
	opts = opts.withDefaults()
	return &deviceCamera{
		deviceID: deviceID,
		size:     image.Pt(opts.Width, opts.Height),
		fps:      opts.FPS,
	}
}

// Open opens the device and requests the configured resolution and rate.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.size.X))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.size.Y))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.raw = gocv.NewMat()
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.raw.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	if ok := c.capture.Read(&c.raw); !ok {
		return nil, ErrReadFailed
	}
	if c.raw.Empty() {
		return nil, ErrEmptyFrame
	}

	out := normalizeFrame(c.raw, c.size)
	return &out, nil
}

// normalizeFrame returns a new 8-bit BGR Mat of the given size built from src.
// Gray and BGRA inputs are converted; other sizes are resized.
func normalizeFrame(src gocv.Mat, size image.Point) gocv.Mat {
	bgr := gocv.NewMat()
	switch src.Channels() {
	case 1:
		gocv.CvtColor(src, &bgr, gocv.ColorGrayToBGR)
	case 4:
		gocv.CvtColor(src, &bgr, gocv.ColorBGRAToBGR)
	default:
		src.CopyTo(&bgr)
	}

	if bgr.Cols() == size.X && bgr.Rows() == size.Y {
		return bgr
	}
	defer bgr.Close()
	out := gocv.NewMat()
	gocv.Resize(bgr, &out, size, 0, 0, gocv.InterpolationLinear)
	return out
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
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

// FPS returns the current frames per second setting.
func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
