package detector

import (
	"image"

	"github.com/ayusman/pointerzone/internal/log"
	"gocv.io/x/gocv"
)

// Localizer turns circle candidates into a single pointer position per frame.
type Localizer struct {
	detector Detector
}

// NewLocalizer creates a Localizer backed by the given detector.
func NewLocalizer(d Detector) *Localizer {
	return &Localizer{detector: d}
}

// Detector returns the underlying detector.
func (l *Localizer) Detector() Detector {
	return l.detector
}

// Localize detects candidates in mask and returns the new pointer position
// together with the candidates it chose from. A detection error is treated
// like an empty result: the previous position is kept.
func (l *Localizer) Localize(mask gocv.Mat, previous image.Point) (image.Point, []Circle) {
	circles, err := l.detector.Detect(mask)
	if err != nil {
		log.Warn("circle detection failed: %v", err)
		return previous, nil
	}
	return Select(circles, previous), circles
}

// Select applies the continuity policy to a list of candidates.
//
// Zero candidates keep the previous position. A single candidate wins outright.
// With several candidates the one closest to previous (Euclidean) wins; ties go
// to the earliest candidate in detection order.
func Select(candidates []Circle, previous image.Point) image.Point {
	switch len(candidates) {
	case 0:
		return previous
	case 1:
		return candidates[0].Center()
	}

	best := 0
	bestDist := squaredDistance(candidates[0], previous)
	for i := 1; i < len(candidates); i++ {
		if d := squaredDistance(candidates[i], previous); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return candidates[best].Center()
}

// squaredDistance avoids the square root; ordering is unchanged.
func squaredDistance(c Circle, p image.Point) float64 {
	dx := c.X - float64(p.X)
	dy := c.Y - float64(p.Y)
	return dx*dx + dy*dy
}
