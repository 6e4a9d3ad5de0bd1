// Package detector finds circular pointer candidates in a binary mask and
// selects the pointer position for a frame.
package detector

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Circle is a circular candidate detected in a mask.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Center returns the circle center rounded to the nearest pixel.
func (c Circle) Center() image.Point {
	return image.Pt(int(math.Round(c.X)), int(math.Round(c.Y)))
}

// Detector defines the interface for circle detection implementations.
type Detector interface {
	// Detect analyzes a single-channel mask and returns candidate circles in detection order.
	// Returns an empty slice if no candidates are found.
	Detect(mask gocv.Mat) ([]Circle, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds the Hough circle transform parameters.
type Config struct {
	// BlurSize is the Gaussian kernel extent applied before detection (odd).
	BlurSize int

	// DP is the inverse accumulator resolution ratio.
	DP float64

	// MinDistDivisor sets the minimum center separation to mask height / MinDistDivisor.
	MinDistDivisor int

	// CannyThreshold is the upper threshold of the internal edge detector.
	CannyThreshold float64

	// AccumulatorThreshold is the vote threshold for circle centers.
	AccumulatorThreshold float64

	// MinRadius and MaxRadius bound the detected radius; zero means unbounded.
	MinRadius int
	MaxRadius int
}

// DefaultConfig returns the pointer detection parameters.
func DefaultConfig() Config {
	return Config{
		BlurSize:             15,
		DP:                   2,
		MinDistDivisor:       10,
		CannyThreshold:       100,
		AccumulatorThreshold: 40,
	}
}
