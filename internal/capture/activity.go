package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Activity detection constants
const (
	// ActivityBlurSize is the Gaussian kernel applied before differencing (21x21).
	ActivityBlurSize = 21
	// ActivityDiffThreshold is the per-pixel difference that counts as change.
	ActivityDiffThreshold = 25
	// DefaultIdleTimeout is how long a still scene must last before going idle.
	DefaultIdleTimeout = 2 * time.Second
)

// ActivityMonitor decides whether the scene is active by differencing
// consecutive grayscale frames. It goes idle once no change above the
// threshold has been seen for the idle timeout, so the pipeline can lower
// its frame rate while nothing moves.
type ActivityMonitor struct {
	threshold   float64
	idleTimeout time.Duration
	prevGray    gocv.Mat
	initialized bool
	active      bool
	lastChange  time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewActivityMonitor creates a monitor. threshold is the percentage of pixels
// that must change between frames; idleTimeout values less than or equal to 0
// use DefaultIdleTimeout. The monitor starts active.
func NewActivityMonitor(threshold float64, idleTimeout time.Duration) *ActivityMonitor {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &ActivityMonitor{
		threshold:   threshold,
		idleTimeout: idleTimeout,
		prevGray:    gocv.NewMat(),
		active:      true,
		lastChange:  time.Now(),
		now:         time.Now,
	}
}

// Observe feeds a frame and reports whether the scene is active, together
// with the percentage of changed pixels.
func (m *ActivityMonitor) Observe(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return m.active, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(ActivityBlurSize, ActivityBlurSize), 0, 0, gocv.BorderDefault)

	now := m.now()
	if !m.initialized || gray.Rows() != m.prevGray.Rows() || gray.Cols() != m.prevGray.Cols() {
		gray.CopyTo(&m.prevGray)
		m.initialized = true
		m.lastChange = now
		return m.active, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prevGray, &diff)
	gocv.Threshold(diff, &diff, ActivityDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100.0
	gray.CopyTo(&m.prevGray)

	if changed > m.threshold {
		m.lastChange = now
		m.active = true
	} else if now.Sub(m.lastChange) > m.idleTimeout {
		m.active = false
	}
	return m.active, changed
}

// Active reports the last decision without observing a frame.
func (m *ActivityMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Reset forgets the baseline frame and returns to active.
func (m *ActivityMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	m.active = true
	m.lastChange = m.now()
}

// Close releases the baseline frame.
func (m *ActivityMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prevGray.Close()
	m.prevGray = gocv.NewMat()
	m.initialized = false
}
