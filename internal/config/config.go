// Package config loads the pointerzone service configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ayusman/pointerzone/internal/engine"
	"github.com/ayusman/pointerzone/internal/log"
	"github.com/ayusman/pointerzone/internal/mask"
	"github.com/ayusman/pointerzone/internal/zone"
	"gopkg.in/yaml.v3"
)

// Default values.
const (
	DefaultListen   = ":8080"
	DefaultDirName  = ".pointerzone"
	DefaultDBName   = "pointerzone.db"
	DefaultLogLevel = "info"
)

// Camera selects the frame source.
type Camera struct {
	// Device is the capture device index. Ignored when File is set.
	Device int `yaml:"device"`
	// File replaces the device with a video file decoded by ffmpeg.
	File string `yaml:"file"`
	// Loop restarts File at its end instead of stopping.
	Loop   bool `yaml:"loop"`
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	FPS    int  `yaml:"fps"`
}

// Config is the service configuration.
type Config struct {
	Listen          string          `yaml:"listen"`
	DataDir         string          `yaml:"data_dir"`
	PluginDir       string          `yaml:"plugin_dir"`
	StaticDir       string          `yaml:"static_dir"`
	LogLevel        string          `yaml:"log_level"`
	Camera          Camera          `yaml:"camera"`
	ColorTarget     mask.ColorRange `yaml:"color_target"`
	ShowLayout      bool            `yaml:"show_layout"`
	EmitEvents      bool            `yaml:"emit_events"`
	ShowDebugRegion bool            `yaml:"show_debug_region"`
	// IconTimeoutSec bounds one remote icon download.
	IconTimeoutSec int `yaml:"icon_timeout_sec"`
	// PluginTimeoutSec bounds one plugin invocation.
	PluginTimeoutSec int `yaml:"plugin_timeout_sec"`
	// Layout is kept as raw nodes so a malformed zone skips only itself.
	Layout []yaml.Node `yaml:"layout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dataDir := DefaultDirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, DefaultDirName)
	}

	return &Config{
		Listen:    DefaultListen,
		DataDir:   dataDir,
		PluginDir: filepath.Join(dataDir, "plugins"),
		LogLevel:  DefaultLogLevel,
		Camera: Camera{
			Width:  640,
			Height: 480,
			FPS:    15,
		},
		ShowLayout:       true,
		EmitEvents:       true,
		IconTimeoutSec:   10,
		PluginTimeoutSec: 5,
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path returns the defaults. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug("[CONFIG] loaded %s", path)
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document decodes as io.EOF and keeps the defaults.
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks values the rest of the service cannot default.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera size %dx%d must be positive", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera fps %d must be positive", c.Camera.FPS)
	}
	return nil
}

// DBPath returns the SQLite database location inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DefaultDBName)
}

// Zones returns the configured layout specs. Entries that fail to decode are
// logged and skipped.
func (c *Config) Zones() []zone.Spec {
	specs, skipped := zone.DecodeNodes(c.Layout)
	for _, err := range skipped {
		log.Warn("[CONFIG] layout: %v", err)
	}
	return specs
}

// EngineSettings returns the engine switches described by the configuration.
func (c *Config) EngineSettings() engine.Settings {
	return engine.Settings{
		ColorRange:      c.ColorTarget,
		ShowLayout:      c.ShowLayout,
		EmitEvents:      c.EmitEvents,
		ShowDebugRegion: c.ShowDebugRegion,
	}
}
