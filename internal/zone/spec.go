package zone

import (
	"errors"
	"fmt"
	"image"

	"gopkg.in/yaml.v3"
)

// ErrInvalidZone is returned when a zone specification cannot produce a zone.
var ErrInvalidZone = errors.New("invalid zone")

// Spec describes one zone as supplied by configuration.
// Rect fields are pointers so that missing values can be told apart from zero.
type Spec struct {
	ID           string   `json:"id" yaml:"id"`
	X            *int     `json:"x" yaml:"x"`
	Y            *int     `json:"y" yaml:"y"`
	Width        *int     `json:"width" yaml:"width"`
	Height       *int     `json:"height" yaml:"height"`
	InactiveURI  string   `json:"inactive_uri,omitempty" yaml:"inactive_uri,omitempty"`
	ActiveURI    string   `json:"active_uri,omitempty" yaml:"active_uri,omitempty"`
	Transparency *float64 `json:"transparency,omitempty" yaml:"transparency,omitempty"`
}

// NewSpec is a convenience constructor for a zone without icons.
func NewSpec(id string, x, y, width, height int) Spec {
	return Spec{ID: id, X: &x, Y: &y, Width: &width, Height: &height}
}

// Validate checks that the spec has an id and a complete, non-empty rectangle.
func (s Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidZone)
	}
	if s.X == nil || s.Y == nil || s.Width == nil || s.Height == nil {
		return fmt.Errorf("%w: %s: missing rectangle field", ErrInvalidZone, s.ID)
	}
	if *s.Width <= 0 || *s.Height <= 0 {
		return fmt.Errorf("%w: %s: size %dx%d", ErrInvalidZone, s.ID, *s.Width, *s.Height)
	}
	return nil
}

// Rect returns the spec rectangle. Call Validate first.
func (s Spec) Rect() image.Rectangle {
	return image.Rect(*s.X, *s.Y, *s.X+*s.Width, *s.Y+*s.Height)
}

// OverlayTransparency converts the supplied transparency into the factor
// applied to icon alpha: 1 - value, clamped to [0, 1]. Missing means 1.
func (s Spec) OverlayTransparency() float64 {
	if s.Transparency == nil {
		return 1.0
	}
	v := *s.Transparency
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return 1.0 - v
}

// ParseSpecs decodes a YAML or JSON sequence of zone specs.
// Entries that fail to decode are skipped and reported in the returned
// skipped slice; only a document that is not a sequence is an error.
func ParseSpecs(data []byte) (specs []Spec, skipped []error, err error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, nil, fmt.Errorf("parse layout: %w", err)
	}

	specs, skipped = DecodeNodes(nodes)
	return specs, skipped, nil
}

// DecodeNodes decodes already-parsed YAML nodes into specs, skipping the
// entries that do not decode.
func DecodeNodes(nodes []yaml.Node) (specs []Spec, skipped []error) {
	for i := range nodes {
		var s Spec
		if err := nodes[i].Decode(&s); err != nil {
			skipped = append(skipped, fmt.Errorf("%w: entry %d (line %d): %v", ErrInvalidZone, i, nodes[i].Line, err))
			continue
		}
		specs = append(specs, s)
	}
	return specs, skipped
}
