// Package testdata builds synthetic frames for tests: solid fills and
// pointer discs drawn at known positions.
package testdata

import (
	"image"
	"image/color"

	"github.com/ayusman/pointerzone/internal/mask"
	"gocv.io/x/gocv"
)

// Frame size used by the fixtures.
const (
	Width  = 640
	Height = 480
)

// PointerRadius is the radius of drawn pointer discs.
const PointerRadius = 30

// GreenRange selects the pure green pointer drawn by PointerFrame (hue 60).
var GreenRange = mask.ColorRange{HueMin: 50, HueMax: 70, SatMin: 150, SatMax: 255}

// Pointer and background colors.
var (
	PointerColor    = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	BackgroundColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
)

// SolidFrame returns a Width x Height BGR frame filled with c.
func SolidFrame(c color.RGBA) *gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), Height, Width, gocv.MatTypeCV8UC3)
	return &m
}

// PointerFrame returns a background frame with a filled pointer disc at center.
func PointerFrame(center image.Point) *gocv.Mat {
	m := SolidFrame(BackgroundColor)
	gocv.Circle(m, center, PointerRadius, PointerColor, -1)
	return m
}

// PointerPath returns one PointerFrame per point.
func PointerPath(points ...image.Point) []*gocv.Mat {
	frames := make([]*gocv.Mat, len(points))
	for i, p := range points {
		frames[i] = PointerFrame(p)
	}
	return frames
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
