// Package overlay composites zone indicators and the pointer marker onto frames.
package overlay

import (
	"image"
	"image/color"

	"github.com/ayusman/pointerzone/internal/frame"
	"github.com/ayusman/pointerzone/internal/log"
	"github.com/ayusman/pointerzone/internal/zone"
	"gocv.io/x/gocv"
)

// Drawing colors.
var (
	ColorActive    = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	ColorInactive  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	ColorMarker    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	ColorCandidate = color.RGBA{R: 255, G: 255, B: 0, A: 0}
)

// MarkerRadius is the radius of the filled pointer marker.
const MarkerRadius = 10

// Mode names the rendering chosen for a zone in a frame.
type Mode int

const (
	// ModeOutline draws a 1-pixel rectangle.
	ModeOutline Mode = iota
	// ModeActiveIcon blends the active icon.
	ModeActiveIcon
	// ModeHighlightIcon blends the inactive icon with the green channel saturated.
	ModeHighlightIcon
	// ModeInactiveIcon blends the inactive icon.
	ModeInactiveIcon
)

// String returns a lower-case name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeActiveIcon:
		return "active-icon"
	case ModeHighlightIcon:
		return "highlight-icon"
	case ModeInactiveIcon:
		return "inactive-icon"
	default:
		return "outline"
	}
}

// Choose picks how a zone is rendered given whether it holds the pointer.
func Choose(z *zone.Zone, active bool) Mode {
	switch {
	case active && z.ActiveIcon != nil:
		return ModeActiveIcon
	case active && z.InactiveIcon != nil:
		return ModeHighlightIcon
	case !active && z.InactiveIcon != nil:
		return ModeInactiveIcon
	default:
		return ModeOutline
	}
}

// DrawZone renders one zone onto dst, an 8-bit BGR Mat.
func DrawZone(dst *gocv.Mat, z *zone.Zone, active bool) {
	mode := Choose(z, active)

	var icon *gocv.Mat
	saturate := false
	switch mode {
	case ModeActiveIcon:
		icon = z.ActiveIcon
	case ModeHighlightIcon:
		icon = z.InactiveIcon
		saturate = true
	case ModeInactiveIcon:
		icon = z.InactiveIcon
	default:
		c := ColorInactive
		if active {
			c = ColorActive
		}
		// 8-connected so the edge stays one pixel of exact color.
		gocv.RectangleWithParams(dst, z.Rect, c, 1, gocv.Line8, 0)
		return
	}

	target, err := frame.FromMat(dst)
	if err != nil {
		log.Warn("zone %s: cannot map frame: %v", z.ID, err)
		return
	}
	src, err := frame.FromMat(icon)
	if err != nil {
		log.Warn("zone %s: cannot map icon: %v", z.ID, err)
		return
	}
	Blend(target, src, z.Rect.Min, z.Transparency, saturate)
}

// DrawMarker draws the filled pointer marker centered at p.
func DrawMarker(dst *gocv.Mat, p image.Point) {
	gocv.Circle(dst, p, MarkerRadius, ColorMarker, -1)
}

// DrawCandidate outlines a detected candidate circle.
func DrawCandidate(dst *gocv.Mat, center image.Point, radius int) {
	if radius < 1 {
		radius = 1
	}
	gocv.Circle(dst, center, radius, ColorCandidate, 1)
}

// Blend composites icon onto dst with its top-left corner at origin.
//
// Single-channel icons are replicated to all three channels and
// three-channel icons are copied; neither uses transparency. Four-channel
// icons are alpha blended with weight alpha/255*transparency. When saturate is
// set the green channel is blended toward 255 instead of the icon value.
// Icon pixels that land outside dst are skipped.
func Blend(dst, icon *frame.Frame, origin image.Point, transparency float64, saturate bool) {
	if dst.Channels() != frame.Channels {
		return
	}

	for h := 0; h < icon.Height(); h++ {
		y := origin.Y + h
		if y < 0 || y >= dst.Height() {
			continue
		}
		for w := 0; w < icon.Width(); w++ {
			x := origin.X + w
			out, ok := dst.Pixel(x, y)
			if !ok {
				continue
			}
			in, _ := icon.Pixel(w, h)

			switch icon.Channels() {
			case 1:
				out[0], out[1], out[2] = in[0], in[0], in[0]
			case 3:
				out[0], out[1], out[2] = in[0], in[1], in[2]
			case 4:
				overlay := transparency * (float64(in[3]) / 255)
				original := 1 - overlay

				out[0] = uint8(float64(in[0])*overlay + float64(out[0])*original)
				if saturate {
					out[1] = uint8(255*overlay + float64(out[1])*original)
				} else {
					out[1] = uint8(float64(in[1])*overlay + float64(out[1])*original)
				}
				out[2] = uint8(float64(in[2])*overlay + float64(out[2])*original)
			}
		}
	}
}
