package app

import (
	"github.com/ayusman/pointerzone/internal/mask"
	"github.com/ayusman/pointerzone/internal/store"
	"github.com/ayusman/pointerzone/internal/zone"
)

// specsToRecords converts zone specs into store rows. Specs with missing
// rectangle fields are dropped; the store cannot hold them.
func specsToRecords(specs []zone.Spec) []store.ZoneRecord {
	records := make([]store.ZoneRecord, 0, len(specs))
	for _, s := range specs {
		if s.X == nil || s.Y == nil || s.Width == nil || s.Height == nil {
			continue
		}
		records = append(records, store.ZoneRecord{
			ZoneID:       s.ID,
			X:            *s.X,
			Y:            *s.Y,
			Width:        *s.Width,
			Height:       *s.Height,
			InactiveURI:  s.InactiveURI,
			ActiveURI:    s.ActiveURI,
			Transparency: s.Transparency,
		})
	}
	return records
}

// recordsToSpecs converts store rows back into zone specs.
func recordsToSpecs(records []store.ZoneRecord) []zone.Spec {
	specs := make([]zone.Spec, len(records))
	for i, r := range records {
		s := zone.NewSpec(r.ZoneID, r.X, r.Y, r.Width, r.Height)
		s.InactiveURI = r.InactiveURI
		s.ActiveURI = r.ActiveURI
		s.Transparency = r.Transparency
		specs[i] = s
	}
	return specs
}

func colorTargetToRange(c store.ColorTarget) mask.ColorRange {
	return mask.ColorRange{HueMin: c.HueMin, HueMax: c.HueMax, SatMin: c.SatMin, SatMax: c.SatMax}
}

func rangeToColorTarget(r mask.ColorRange) store.ColorTarget {
	return store.ColorTarget{HueMin: r.HueMin, HueMax: r.HueMax, SatMin: r.SatMin, SatMax: r.SatMax}
}
