// Package app wires the frame source, the pointer engine, the store and the
// plugins into the running pointerzone service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ayusman/pointerzone/internal/asset"
	"github.com/ayusman/pointerzone/internal/capture"
	"github.com/ayusman/pointerzone/internal/detector"
	"github.com/ayusman/pointerzone/internal/engine"
	"github.com/ayusman/pointerzone/internal/hover"
	"github.com/ayusman/pointerzone/internal/log"
	"github.com/ayusman/pointerzone/internal/mask"
	"github.com/ayusman/pointerzone/internal/plugin"
	"github.com/ayusman/pointerzone/internal/store"
	"github.com/ayusman/pointerzone/internal/zone"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while the scene is still.
	IdleFPS = 5
	// DefaultActivityThreshold is the percentage of changed pixels that wakes the pipeline.
	DefaultActivityThreshold = 1.0
	// EventQueueSize bounds the events waiting for plugin dispatch.
	EventQueueSize = 64
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// Camera overrides the frame source built from CameraID/VideoFile.
	Camera        capture.Camera
	CameraID      int
	CameraOptions capture.Options
	// VideoFile replaces the capture device with a decoded video file.
	VideoFile string
	LoopVideo bool

	PluginDir     string
	PluginTimeout time.Duration
	IconTimeout   time.Duration

	// Settings seed the engine; stored values take precedence on Restore.
	Settings engine.Settings
	// Layout is applied on Restore when no stored layout is active.
	Layout []zone.Spec
	// Detector overrides the Hough circle detector.
	Detector          detector.Detector
	ActivityThreshold float64
}

// State is a snapshot of the running pipeline.
type State struct {
	Running    bool     `json:"running"`
	Enabled    bool     `json:"enabled"`
	Active     bool     `json:"active"`
	FPS        int      `json:"fps"`
	Frames     uint64   `json:"frames"`
	X          int      `json:"x"`
	Y          int      `json:"y"`
	ActiveZone string   `json:"active_zone,omitempty"`
	Hits       []string `json:"hits"`
	LayoutID   string   `json:"layout_id,omitempty"`
	ZoneCount  int      `json:"zone_count"`
}

// App is the main application that runs pointer detection and dispatches
// zone events.
type App struct {
	config     Config
	camera     capture.Camera
	activity   *capture.ActivityMonitor
	engine     *engine.Engine
	fetcher    *asset.Fetcher
	builder    *zone.Builder
	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	mu       sync.RWMutex
	enabled  bool
	stopCh   chan struct{}
	done     chan struct{}
	layoutID string
	last     engine.Result
	frames   uint64
	active   bool
	fps      int

	preview previewBuffer

	listenerMu sync.RWMutex
	listeners  []func(hover.Event)

	eventsMu     sync.RWMutex
	events       chan hover.Event
	eventsClosed bool
	dispatchWG   sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
	closeOnce    sync.Once
}

// New creates an App. Nothing is opened until Start.
func New(config Config) *App {
	threshold := config.ActivityThreshold
	if threshold <= 0 {
		threshold = DefaultActivityThreshold
	}

	cam := config.Camera
	if cam == nil {
		if config.VideoFile != "" {
			cam = capture.NewFileSource(config.VideoFile, config.CameraOptions, config.LoopVideo)
		} else {
			cam = capture.NewCamera(config.CameraID, config.CameraOptions)
		}
	}

	fetcher := asset.NewFetcher(config.IconTimeout)
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config:     config,
		camera:     cam,
		activity:   capture.NewActivityMonitor(threshold, capture.DefaultIdleTimeout),
		engine:     engine.New(engine.Config{Detector: config.Detector, Settings: config.Settings}),
		fetcher:    fetcher,
		builder:    zone.NewBuilder(fetcher),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(config.PluginTimeout),
		enabled:    true,
		events:     make(chan hover.Event, EventQueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	a.preview.init()
	a.engine.OnEvent(a.handleEvent)

	a.dispatchWG.Add(1)
	go a.dispatchLoop()

	return a
}

// Restore loads persisted settings and the active layout. Stored values win
// over the ones in Config; without a stored layout the configured one is used.
func (a *App) Restore(ctx context.Context) error {
	if s := a.config.Store; s != nil {
		settings := s.Settings()

		if c, ok, err := settings.ColorTarget(); err != nil {
			log.Warn("[APP] stored color target: %v", err)
		} else if ok {
			a.engine.SetColorRange(colorTargetToRange(c))
		}

		cur := a.engine.Settings()
		a.engine.SetShowLayout(boolSetting(settings, store.KeyShowLayout, cur.ShowLayout))
		a.engine.SetEmitEvents(boolSetting(settings, store.KeyEmitEvents, cur.EmitEvents))
		a.engine.SetShowDebugRegion(boolSetting(settings, store.KeyShowDebugRegion, cur.ShowDebugRegion))

		id, err := settings.ActiveLayoutID()
		if err != nil {
			return fmt.Errorf("read active layout: %w", err)
		}
		if id != "" {
			err := a.ActivateLayout(ctx, id)
			if err == nil {
				return nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			log.Warn("[APP] active layout %s no longer exists", id)
		}
	}

	if len(a.config.Layout) > 0 {
		return a.ApplyLayout(ctx, a.config.Layout)
	}
	return nil
}

func boolSetting(r *store.SettingsRepository, key string, def bool) bool {
	v, err := r.Bool(key, def)
	if err != nil {
		log.Warn("[APP] %v", err)
	}
	return v
}

// ApplyLayout builds a layout from specs and swaps it into the engine.
// Icons are loaded before the swap so frames keep flowing meanwhile.
// The stored active layout is cleared: an ad-hoc layout is not restored.
func (a *App) ApplyLayout(ctx context.Context, specs []zone.Spec) error {
	if err := a.swapLayout(ctx, specs); err != nil {
		return err
	}

	a.mu.Lock()
	a.layoutID = ""
	a.mu.Unlock()

	if s := a.config.Store; s != nil {
		if err := s.Settings().Delete(store.KeyActiveLayout); err != nil {
			log.Warn("[APP] clear active layout: %v", err)
		}
	}
	return nil
}

// ActivateLayout applies a stored layout and remembers it for the next start.
func (a *App) ActivateLayout(ctx context.Context, id string) error {
	if a.config.Store == nil {
		return store.ErrNotFound
	}
	l, err := a.config.Store.Layouts().GetByID(id)
	if err != nil {
		return err
	}
	if err := a.swapLayout(ctx, recordsToSpecs(l.Zones)); err != nil {
		return err
	}

	a.mu.Lock()
	a.layoutID = id
	a.mu.Unlock()

	if err := a.config.Store.Settings().SetActiveLayoutID(id); err != nil {
		log.Warn("[APP] persist active layout: %v", err)
	}
	log.Info("[APP] activated layout %q", l.Name)
	return nil
}

// SaveCurrentLayout stores the layout in use under name and makes it the
// active stored layout.
func (a *App) SaveCurrentLayout(id, name string) (*store.Layout, error) {
	if a.config.Store == nil {
		return nil, errors.New("no store configured")
	}
	l := &store.Layout{ID: id, Name: name, Zones: specsToRecords(a.engine.LayoutSpecs())}
	if err := a.config.Store.Layouts().Create(l); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.layoutID = id
	a.mu.Unlock()

	if err := a.config.Store.Settings().SetActiveLayoutID(id); err != nil {
		log.Warn("[APP] persist active layout: %v", err)
	}
	return l, nil
}

func (a *App) swapLayout(ctx context.Context, specs []zone.Spec) error {
	layout, err := a.builder.Build(ctx, specs)
	if err != nil {
		return fmt.Errorf("build layout: %w", err)
	}
	a.engine.SetLayout(layout)
	return nil
}

// LayoutID returns the id of the active stored layout, or "" for an ad-hoc one.
func (a *App) LayoutID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.layoutID
}

// LayoutSpecs returns the specs of the layout in use.
func (a *App) LayoutSpecs() []zone.Spec {
	return a.engine.LayoutSpecs()
}

// Settings returns the engine settings.
func (a *App) Settings() engine.Settings {
	return a.engine.Settings()
}

// SetColorRange changes and persists the target color. The all-zero range
// disables detection.
func (a *App) SetColorRange(r mask.ColorRange) error {
	a.engine.SetColorRange(r)
	if s := a.config.Store; s != nil {
		return s.Settings().SetColorTarget(rangeToColorTarget(r))
	}
	return nil
}

// SetShowLayout changes and persists zone drawing.
func (a *App) SetShowLayout(v bool) error {
	a.engine.SetShowLayout(v)
	return a.persistBool(store.KeyShowLayout, v)
}

// SetEmitEvents changes and persists event delivery.
func (a *App) SetEmitEvents(v bool) error {
	a.engine.SetEmitEvents(v)
	return a.persistBool(store.KeyEmitEvents, v)
}

// SetShowDebugRegion changes and persists candidate outlines.
func (a *App) SetShowDebugRegion(v bool) error {
	a.engine.SetShowDebugRegion(v)
	return a.persistBool(store.KeyShowDebugRegion, v)
}

func (a *App) persistBool(key string, v bool) error {
	if s := a.config.Store; s != nil {
		return s.Settings().SetBool(key, v)
	}
	return nil
}

// SetEnabled pauses or resumes pointer processing. Frames keep streaming to
// the preview while disabled.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether pointer processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnEvent registers fn for every delivered zone event. fn runs on the frame
// goroutine and must not block.
func (a *App) OnEvent(fn func(hover.Event)) {
	a.listenerMu.Lock()
	defer a.listenerMu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) handleEvent(ev hover.Event) {
	a.listenerMu.RLock()
	listeners := a.listeners
	a.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}

	a.eventsMu.RLock()
	defer a.eventsMu.RUnlock()
	if a.eventsClosed {
		return
	}
	select {
	case a.events <- ev:
	default:
		log.Warn("[APP] event queue full, dropping %s %s", ev.Type, ev.ZoneID)
	}
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Engine returns the pointer engine.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// State returns a snapshot of the pipeline.
func (a *App) State() State {
	pos := a.engine.Position()
	activeZone, _ := a.engine.ActiveZone()

	a.mu.RLock()
	defer a.mu.RUnlock()

	hits := a.last.Hits
	if hits == nil {
		hits = []string{}
	}
	running := a.stopCh != nil
	if running {
		select {
		case <-a.done:
			running = false
		default:
		}
	}
	return State{
		Running:    running,
		Enabled:    a.enabled,
		Active:     a.active,
		FPS:        a.fps,
		Frames:     a.frames,
		X:          pos.X,
		Y:          pos.Y,
		ActiveZone: activeZone,
		Hits:       hits,
		LayoutID:   a.layoutID,
		ZoneCount:  len(a.engine.LayoutSpecs()),
	}
}

// Start opens the frame source and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.fps = a.camera.FPS()
	a.active = true
	a.activity.Reset()

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	log.Info("[APP] pipeline started at %d fps", a.fps)
	return nil
}

// Stop halts the pipeline and closes the frame source.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	if err := a.camera.Close(); err != nil {
		log.Error("[APP] closing camera: %v", err)
	}
	log.Info("[APP] pipeline stopped")
}

// Close stops the pipeline and releases every resource. Pending plugin
// runs are cancelled.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.Stop()
		a.cancel()

		a.eventsMu.Lock()
		a.eventsClosed = true
		close(a.events)
		a.eventsMu.Unlock()
		a.dispatchWG.Wait()

		a.preview.close()
		a.activity.Close()
		err = a.engine.Close()
		if ferr := a.fetcher.Close(); ferr != nil && err == nil {
			err = ferr
		}
	})
	return err
}
