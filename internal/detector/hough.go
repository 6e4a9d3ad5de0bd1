package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// HoughDetector implements Detector using the gradient Hough circle transform.
type HoughDetector struct {
	config Config
	mu     sync.Mutex
}

// NewHoughDetector creates a HoughDetector. Invalid parameters are replaced by defaults.
func NewHoughDetector(config Config) *HoughDetector {
	def := DefaultConfig()
	if config.BlurSize <= 0 || config.BlurSize%2 == 0 {
		config.BlurSize = def.BlurSize
	}
	if config.DP <= 0 {
		config.DP = def.DP
	}
	if config.MinDistDivisor <= 0 {
		config.MinDistDivisor = def.MinDistDivisor
	}
	if config.CannyThreshold <= 0 {
		config.CannyThreshold = def.CannyThreshold
	}
	if config.AccumulatorThreshold <= 0 {
		config.AccumulatorThreshold = def.AccumulatorThreshold
	}

	return &HoughDetector{config: config}
}

// Config returns the effective detection parameters.
func (d *HoughDetector) Config() Config {
	return d.config
}

// Detect smooths a copy of the mask and runs circle detection on it.
// The input mask is not modified.
func (d *HoughDetector) Detect(mask gocv.Mat) ([]Circle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if mask.Empty() {
		return nil, nil
	}
	if mask.Channels() != 1 {
		return nil, fmt.Errorf("detect: mask must be single-channel, got %d channels", mask.Channels())
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	size := d.config.BlurSize
	gocv.GaussianBlur(mask, &blurred, image.Pt(size, size), 0, 0, gocv.BorderDefault)

	circles := gocv.NewMat()
	defer circles.Close()

	minDist := float64(mask.Rows() / d.config.MinDistDivisor)
	if minDist < 1 {
		minDist = 1
	}
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		d.config.DP, minDist,
		d.config.CannyThreshold, d.config.AccumulatorThreshold,
		d.config.MinRadius, d.config.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil, nil
	}

	result := make([]Circle, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		result[i] = Circle{
			X:      float64(circles.GetFloatAt(0, i*3)),
			Y:      float64(circles.GetFloatAt(0, i*3+1)),
			Radius: float64(circles.GetFloatAt(0, i*3+2)),
		}
	}
	return result, nil
}

// Close is a no-op; the detector holds no native resources between calls.
func (d *HoughDetector) Close() error {
	return nil
}
