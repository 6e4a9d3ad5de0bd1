// Package engine runs the per-frame pointer pipeline: color mask, circle
// localization, zone hit-testing, overlay compositing and hover events.
package engine

import (
	"image"
	"math"
	"sync"

	"github.com/ayusman/pointerzone/internal/detector"
	"github.com/ayusman/pointerzone/internal/frame"
	"github.com/ayusman/pointerzone/internal/hover"
	"github.com/ayusman/pointerzone/internal/log"
	"github.com/ayusman/pointerzone/internal/mask"
	"github.com/ayusman/pointerzone/internal/overlay"
	"github.com/ayusman/pointerzone/internal/zone"
	"gocv.io/x/gocv"
)

// Settings are the runtime switches of the engine.
type Settings struct {
	ColorRange mask.ColorRange `json:"color_target"`
	// ShowLayout draws zone icons and outlines. Hit-testing runs regardless.
	ShowLayout bool `json:"show_layout"`
	// EmitEvents delivers hover events to listeners. State advances regardless.
	EmitEvents bool `json:"emit_events"`
	// ShowDebugRegion outlines every detected candidate circle.
	ShowDebugRegion bool `json:"show_debug_region"`
}

// DefaultSettings returns settings with detection disabled and drawing and events on.
func DefaultSettings() Settings {
	return Settings{
		ShowLayout: true,
		EmitEvents: true,
	}
}

// Config holds construction options for an Engine.
type Config struct {
	// Detector overrides the Hough circle detector. Optional.
	Detector detector.Detector
	Settings Settings
}

// Result describes what happened to a single frame.
type Result struct {
	// Enabled is false when the color range is the disabled sentinel and the
	// frame was passed through untouched.
	Enabled    bool
	Position   image.Point
	Candidates []detector.Circle
	Hits       []string
	ActiveZone string
	// Events holds the transitions delivered for this frame; nil when
	// event emission is switched off.
	Events []hover.Event
}

// Engine processes frames one at a time. Configuration setters may be called
// from any goroutine; each frame sees either the old or the new configuration.
type Engine struct {
	mu        sync.Mutex
	settings  Settings
	layout    *zone.Layout
	masker    *mask.Masker
	localizer *detector.Localizer
	machine   *hover.Machine
	position  image.Point
	closed    bool

	listenerMu sync.RWMutex
	listeners  []func(hover.Event)
}

// New creates an Engine. The layout starts empty.
func New(cfg Config) *Engine {
	d := cfg.Detector
	if d == nil {
		d = detector.NewHoughDetector(detector.DefaultConfig())
	}

	return &Engine{
		settings:  cfg.Settings,
		masker:    mask.NewMasker(),
		localizer: detector.NewLocalizer(d),
		machine:   hover.NewMachine(),
	}
}

// Settings returns a copy of the current settings.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetSettings replaces every setting at once.
func (e *Engine) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
}

// ColorRange returns the current target color range.
func (e *Engine) ColorRange() mask.ColorRange {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.ColorRange
}

// SetColorRange replaces the target color range.
// The all-zero range disables detection.
func (e *Engine) SetColorRange(r mask.ColorRange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.ColorRange = r
}

// SetShowLayout toggles drawing of zones.
func (e *Engine) SetShowLayout(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.ShowLayout = v
}

// SetEmitEvents toggles delivery of hover events.
func (e *Engine) SetEmitEvents(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.EmitEvents = v
}

// SetShowDebugRegion toggles drawing of detected candidates.
func (e *Engine) SetShowDebugRegion(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.ShowDebugRegion = v
}

// SetLayout installs l and releases the previous layout's icons.
// The engine takes ownership of l. A nil layout removes every zone.
func (e *Engine) SetLayout(l *zone.Layout) {
	e.mu.Lock()
	old := e.layout
	if e.closed {
		e.mu.Unlock()
		l.Close()
		return
	}
	e.layout = l
	e.mu.Unlock()

	// No frame holds the old layout once the lock has been released.
	if old != l {
		old.Close()
	}
	log.Info("layout replaced: %d zones", l.Len())
}

// LayoutSpecs returns the specs of the installed layout.
func (e *Engine) LayoutSpecs() []zone.Spec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout.Specs()
}

// Position returns the last localized pointer position.
func (e *Engine) Position() image.Point {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position
}

// ActiveZone returns the zone the pointer occupied in the last frame.
func (e *Engine) ActiveZone() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Active()
}

// OnEvent registers a listener for delivered hover events.
// Listeners run on the frame goroutine after the frame is finished and must not block.
func (e *Engine) OnEvent(fn func(hover.Event)) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Process runs the pipeline on img, an 8-bit BGR Mat, annotating it in place.
func (e *Engine) Process(img *gocv.Mat) Result {
	e.mu.Lock()
	res := e.process(img)
	e.mu.Unlock()

	if len(res.Events) > 0 {
		e.listenerMu.RLock()
		listeners := e.listeners
		e.listenerMu.RUnlock()

		for _, ev := range res.Events {
			for _, fn := range listeners {
				fn(ev)
			}
		}
	}
	return res
}

// ProcessFrame runs the pipeline on a raw strided BGR buffer.
// With detection disabled the buffer is not touched.
func (e *Engine) ProcessFrame(f *frame.Frame) Result {
	if e.ColorRange().Disabled() {
		return Result{Position: e.Position()}
	}

	img, err := f.ToMat()
	if err != nil {
		log.Warn("cannot map frame: %v", err)
		return Result{Position: e.Position()}
	}
	defer img.Close()

	res := e.Process(&img)
	if !res.Enabled {
		return res
	}
	if err := f.CopyFromMat(&img); err != nil {
		log.Warn("cannot write frame back: %v", err)
	}
	return res
}

// process must be called with e.mu held.
func (e *Engine) process(img *gocv.Mat) Result {
	s := e.settings
	if e.closed || s.ColorRange.Disabled() {
		return Result{Position: e.position}
	}
	if img.Empty() || img.Channels() != frame.Channels {
		log.Warn("skipping frame: empty or not %d-channel", frame.Channels)
		return Result{Position: e.position}
	}

	m := e.masker.Compute(*img, s.ColorRange)
	defer m.Close()

	pos, candidates := e.localizer.Localize(m, e.position)
	e.position = pos
	log.Debug("%d candidates, pointer at %v", len(candidates), pos)

	if s.ShowDebugRegion {
		for _, c := range candidates {
			overlay.DrawCandidate(img, c.Center(), int(math.Round(c.Radius)))
		}
	}

	if s.ShowLayout {
		for _, z := range e.layout.Zones() {
			overlay.DrawZone(img, z, z.Contains(pos))
		}
	}

	hits := e.layout.HitTest(pos)
	events := e.machine.Update(hits)
	if !s.EmitEvents {
		events = nil
	}

	overlay.DrawMarker(img, pos)

	active, _ := e.machine.Active()
	return Result{
		Enabled:    true,
		Position:   pos,
		Candidates: candidates,
		Hits:       hits,
		ActiveZone: active,
		Events:     events,
	}
}

// Close releases the layout, the mask kernels and the detector.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	e.layout.Close()
	e.layout = nil
	e.masker.Close()
	return e.localizer.Detector().Close()
}
