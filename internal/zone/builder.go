package zone

import (
	"context"
	"image"

	"github.com/ayusman/pointerzone/internal/log"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// Icon variant names used when caching downloaded icons.
const (
	VariantInactive = "i"
	VariantActive   = "a"
)

// DefaultLoadConcurrency bounds how many icons are fetched at once.
const DefaultLoadConcurrency = 4

// IconLoader returns a decoded bitmap for an icon reference.
// The caller owns and closes the returned Mat.
type IconLoader interface {
	Load(ctx context.Context, uri, zoneID, variant string) (gocv.Mat, error)
}

// Builder turns zone specs into a Layout, loading and resizing icons.
type Builder struct {
	loader      IconLoader
	concurrency int
}

// NewBuilder creates a Builder. A nil loader builds outline-only zones.
func NewBuilder(loader IconLoader) *Builder {
	return &Builder{
		loader:      loader,
		concurrency: DefaultLoadConcurrency,
	}
}

// SetConcurrency sets the maximum number of concurrent icon loads.
// Values less than or equal to 0 are ignored.
func (b *Builder) SetConcurrency(n int) {
	if n <= 0 {
		return
	}
	b.concurrency = n
}

// Build validates specs and loads their icons.
//
// Invalid or duplicate entries are skipped. An icon that cannot be loaded
// leaves its slot empty so the zone falls back to outline rendering.
// The only error returned is the context error when ctx is cancelled;
// in that case no layout is returned and all loaded icons are released.
func (b *Builder) Build(ctx context.Context, specs []Spec) (*Layout, error) {
	var (
		zones []*Zone
		kept  []Spec
		seen  = make(map[string]bool)
	)

	for _, s := range specs {
		if err := s.Validate(); err != nil {
			log.Warn("skipping zone: %v", err)
			continue
		}
		if seen[s.ID] {
			log.Warn("skipping zone: duplicate id %q", s.ID)
			continue
		}
		seen[s.ID] = true

		zones = append(zones, &Zone{
			ID:           s.ID,
			Rect:         s.Rect(),
			Transparency: s.OverlayTransparency(),
		})
		kept = append(kept, s)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, z := range zones {
		s := kept[i]
		if s.InactiveURI != "" {
			z := z
			g.Go(func() error {
				z.InactiveIcon = b.loadIcon(gctx, s.InactiveURI, z, VariantInactive)
				return nil
			})
		}
		if s.ActiveURI != "" {
			z := z
			g.Go(func() error {
				z.ActiveIcon = b.loadIcon(gctx, s.ActiveURI, z, VariantActive)
				return nil
			})
		}
	}
	g.Wait()

	layout := &Layout{zones: zones, specs: kept}
	if err := ctx.Err(); err != nil {
		layout.Close()
		return nil, err
	}

	log.Debug("built layout with %d zones (%d specs supplied)", len(zones), len(specs))
	return layout, nil
}

// loadIcon fetches an icon and resizes it to the zone size with cubic interpolation.
// It returns nil when the icon is unavailable.
func (b *Builder) loadIcon(ctx context.Context, uri string, z *Zone, variant string) *gocv.Mat {
	if b.loader == nil {
		return nil
	}

	src, err := b.loader.Load(ctx, uri, z.ID, variant)
	if err != nil {
		log.Warn("zone %s: icon %q unavailable: %v", z.ID, uri, err)
		return nil
	}
	defer src.Close()

	if src.Empty() {
		log.Warn("zone %s: icon %q decoded empty", z.ID, uri)
		return nil
	}

	icon := gocv.NewMat()
	gocv.Resize(src, &icon, image.Pt(z.Rect.Dx(), z.Rect.Dy()), 0, 0, gocv.InterpolationCubic)
	if icon.Empty() {
		icon.Close()
		return nil
	}
	return &icon
}
