package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/pointerzone/internal/mask"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pointerzone.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Listen = %q, want %q", cfg.Listen, DefaultListen)
	}
	if !cfg.ShowLayout || !cfg.EmitEvents || cfg.ShowDebugRegion {
		t.Errorf("flags = %v/%v/%v, want true/true/false", cfg.ShowLayout, cfg.EmitEvents, cfg.ShowDebugRegion)
	}
	if !cfg.ColorTarget.Disabled() {
		t.Error("default color target should be the disabled sentinel")
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 || cfg.Camera.FPS != 15 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if !strings.HasSuffix(cfg.DBPath(), DefaultDBName) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen: "127.0.0.1:9090"
log_level: debug
camera:
  file: /videos/demo.mp4
  fps: 25
color_target:
  h_min: 0
  h_max: 180
  s_min: 50
  s_max: 255
emit_events: false
layout:
  - id: btn1
    x: 50
    y: 50
    width: 100
    height: 100
    transparency: 1.0
  - id: broken
    x: [1, 2]
  - id: btn2
    x: 200
    y: 50
    width: 50
    height: 50
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != "127.0.0.1:9090" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Camera.File != "/videos/demo.mp4" || cfg.Camera.FPS != 25 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Width != 640 {
		t.Errorf("unset camera width should keep default, got %d", cfg.Camera.Width)
	}
	want := mask.ColorRange{HueMin: 0, HueMax: 180, SatMin: 50, SatMax: 255}
	if cfg.ColorTarget != want {
		t.Errorf("ColorTarget = %+v, want %+v", cfg.ColorTarget, want)
	}

	s := cfg.EngineSettings()
	if s.EmitEvents || !s.ShowLayout || s.ColorRange != want {
		t.Errorf("EngineSettings() = %+v", s)
	}

	zones := cfg.Zones()
	if len(zones) != 2 || zones[0].ID != "btn1" || zones[1].ID != "btn2" {
		t.Fatalf("Zones() = %+v, want btn1 and btn2", zones)
	}
	if zones[0].OverlayTransparency() != 0 {
		t.Errorf("transparency 1.0 should map to 0, got %v", zones[0].OverlayTransparency())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown field", body: "listen: :80\nbogus: true\n"},
		{name: "bad log level", body: "log_level: loud\n"},
		{name: "bad camera size", body: "camera:\n  width: 0\n"},
		{name: "bad fps", body: "camera:\n  fps: -1\n"},
		{name: "not yaml", body: "listen: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Listen = %q", cfg.Listen)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}
