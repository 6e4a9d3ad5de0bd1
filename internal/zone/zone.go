// Package zone holds the rectangular interactive zones a pointer can hover.
package zone

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Zone is a named rectangle with optional overlay icons.
// Icons, when present, have exactly the size of Rect.
type Zone struct {
	ID           string
	Rect         image.Rectangle
	InactiveIcon *gocv.Mat
	ActiveIcon   *gocv.Mat
	// Transparency scales the icon alpha channel: 1 draws the icon as-is, 0 hides it.
	Transparency float64
}

// Contains reports whether p lies strictly inside the zone; edge points are outside.
func (z *Zone) Contains(p image.Point) bool {
	return p.X > z.Rect.Min.X && p.X < z.Rect.Max.X &&
		p.Y > z.Rect.Min.Y && p.Y < z.Rect.Max.Y
}

func (z *Zone) release() {
	if z.InactiveIcon != nil {
		z.InactiveIcon.Close()
		z.InactiveIcon = nil
	}
	if z.ActiveIcon != nil {
		z.ActiveIcon.Close()
		z.ActiveIcon = nil
	}
}

// Layout is an ordered, immutable set of zones.
// Order matters: the first zone containing the pointer is the active one.
type Layout struct {
	zones     []*Zone
	specs     []Spec
	closeOnce sync.Once
}

// NewLayout creates a layout from zones in evaluation order.
func NewLayout(zones ...*Zone) *Layout {
	return &Layout{zones: zones}
}

// Len returns the number of zones.
func (l *Layout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.zones)
}

// Zones returns the zones in evaluation order.
func (l *Layout) Zones() []*Zone {
	if l == nil {
		return nil
	}
	return l.zones
}

// Get returns the zone with the given id.
func (l *Layout) Get(id string) (*Zone, bool) {
	for _, z := range l.Zones() {
		if z.ID == id {
			return z, true
		}
	}
	return nil, false
}

// Specs returns the configuration the layout was built from, if any.
func (l *Layout) Specs() []Spec {
	if l == nil {
		return nil
	}
	out := make([]Spec, len(l.specs))
	copy(out, l.specs)
	return out
}

// HitTest returns the ids of every zone strictly containing p, in layout order.
func (l *Layout) HitTest(p image.Point) []string {
	var ids []string
	for _, z := range l.Zones() {
		if z.Contains(p) {
			ids = append(ids, z.ID)
		}
	}
	return ids
}

// Close releases every icon held by the layout. It is safe to call more than once.
func (l *Layout) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		for _, z := range l.zones {
			z.release()
		}
	})
}
