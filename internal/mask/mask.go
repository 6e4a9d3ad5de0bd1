// Package mask segments video frames by hue and saturation into a binary pointer mask.
package mask

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Value-channel bounds applied to every color range.
const (
	ValueMin = 30
	ValueMax = 256
)

// Morphology constants
const (
	// CloseKernelSize is the rectangular element used to fill gaps (21x21, anchor 10,10)
	CloseKernelSize = 21
	// OpenKernelSize is the rectangular element used to drop specks (11x11, anchor 5,5)
	OpenKernelSize = 11
)

// ColorRange selects pointer pixels by HSV hue and saturation.
// Hue uses the OpenCV 8-bit scale (0-180).
type ColorRange struct {
	HueMin int `json:"h_min" yaml:"h_min"`
	HueMax int `json:"h_max" yaml:"h_max"`
	SatMin int `json:"s_min" yaml:"s_min"`
	SatMax int `json:"s_max" yaml:"s_max"`
}

// Disabled reports whether the range is the all-zero "unconfigured" sentinel.
func (r ColorRange) Disabled() bool {
	return r.HueMin == 0 && r.HueMax == 0 && r.SatMin == 0 && r.SatMax == 0
}

// Contains reports whether an HSV triple falls inside the range.
// It mirrors the threshold that Compute applies per pixel.
func (r ColorRange) Contains(h, s, v int) bool {
	return h >= r.HueMin && h <= r.HueMax &&
		s >= r.SatMin && s <= r.SatMax &&
		v >= ValueMin && v < ValueMax
}

// Masker converts frames into cleaned binary masks.
// The structuring elements are created once and reused for every frame.
type Masker struct {
	closeKernel gocv.Mat
	openKernel  gocv.Mat
	mu          sync.Mutex
	closed      bool
}

// NewMasker creates a Masker with the close and open structuring elements allocated.
func NewMasker() *Masker {
	return &Masker{
		closeKernel: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(CloseKernelSize, CloseKernelSize)),
		openKernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(OpenKernelSize, OpenKernelSize)),
	}
}

// Compute returns a single-channel mask the size of frame where pointer pixels are 255.
// The caller is responsible for closing the returned Mat.
//
// Algorithm:
// 1. Convert BGR frame to HSV
// 2. Keep pixels inside the hue/saturation range with value in [30, 256)
// 3. Close with a 21x21 rectangle to fill holes in the blob
// 4. Open with an 11x11 rectangle to remove noise
func (m *Masker) Compute(frame gocv.Mat, r ColorRange) gocv.Mat {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := gocv.NewMat()
	if frame.Empty() || m.closed {
		return out
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	lower := gocv.NewScalar(float64(r.HueMin), float64(r.SatMin), ValueMin, 0)
	upper := gocv.NewScalar(float64(r.HueMax), float64(r.SatMax), ValueMax, 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &out)

	gocv.MorphologyEx(out, &out, gocv.MorphClose, m.closeKernel)
	gocv.MorphologyEx(out, &out, gocv.MorphOpen, m.openKernel)

	return out
}

// Close releases the structuring elements. Compute returns empty masks afterwards.
func (m *Masker) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closeKernel.Close()
	m.openKernel.Close()
	m.closed = true
}
