package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir string, m Manifest) string {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	pluginDir := writeManifest(t, root, "test-plugin", Manifest{
		Name:        "test-plugin",
		Version:     "1.0.0",
		Description: "A test plugin",
		Executable:  "run",
		Actions:     []string{"action1", "action2"},
	})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}
	p := plugins[0]
	if p.Manifest.Name != "test-plugin" || p.Manifest.Version != "1.0.0" || len(p.Manifest.Actions) != 2 {
		t.Errorf("manifest = %+v", p.Manifest)
	}
	if p.Path != pluginDir {
		t.Errorf("Path = %q, want %q", p.Path, pluginDir)
	}
	if p.Executable != filepath.Join(pluginDir, "run") {
		t.Errorf("Executable = %q", p.Executable)
	}
}

func TestManager_Discover_SortedAndRescanned(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "b", Manifest{Name: "plugin-b", Executable: "b"})
	writeManifest(t, root, "a", Manifest{Name: "plugin-a", Executable: "a"})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	plugins := manager.List()
	if len(plugins) != 2 || plugins[0].Manifest.Name != "plugin-a" || plugins[1].Manifest.Name != "plugin-b" {
		t.Fatalf("List() not sorted: %v", plugins)
	}

	os.RemoveAll(filepath.Join(root, "b"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if _, err := manager.Get("plugin-b"); !errors.Is(err, ErrPluginNotFound) {
		t.Error("removed plugin should be gone after rediscovery")
	}
}

func TestManager_Discover_NameFromDir(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "unnamed", Manifest{Executable: "run"})

	manager := NewManager(root)
	manager.Discover()
	if _, err := manager.Get("unnamed"); err != nil {
		t.Errorf("Get() error = %v, want plugin named after its directory", err)
	}
}

func TestManager_Discover_Skips(t *testing.T) {
	root := t.TempDir()

	bad := filepath.Join(root, "bad-plugin")
	os.MkdirAll(bad, 0755)
	os.WriteFile(filepath.Join(bad, ManifestFile), []byte("not valid json"), 0644)
	os.MkdirAll(filepath.Join(root, "no-manifest"), 0755)
	os.WriteFile(filepath.Join(root, "stray-file"), []byte("x"), 0644)

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Fatalf("expected 0 plugins, got %d", n)
	}
}

func TestLoadPlugin_Invalid(t *testing.T) {
	tests := []struct {
		name string
		mf   Manifest
	}{
		{"no executable", Manifest{Name: "x"}},
		{"escapes directory", Manifest{Name: "x", Executable: "../../bin/sh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeManifest(t, t.TempDir(), "p", tt.mf)
			if _, err := loadPlugin(dir); !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("loadPlugin() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestManager_Discover_DuplicateName(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "one", Manifest{Name: "same", Executable: "run"})
	writeManifest(t, root, "two", Manifest{Name: "same", Executable: "run"})

	manager := NewManager(root)
	manager.Discover()
	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}
	// Glob results are sorted, so the first directory wins.
	if plugins[0].Path != filepath.Join(root, "one") {
		t.Errorf("Path = %q, want the first directory", plugins[0].Path)
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{"nonexistent", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }},
		{"file", func(t *testing.T) string {
			p := filepath.Join(t.TempDir(), "file")
			os.WriteFile(p, nil, 0644)
			return p
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager := NewManager(tt.dir(t))
			if err := manager.Discover(); err != nil {
				t.Fatalf("Discover() error = %v", err)
			}
			if n := len(manager.List()); n != 0 {
				t.Errorf("expected 0 plugins, got %d", n)
			}
		})
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir())

	if _, err := manager.Get("nonexistent-plugin"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	if got := NewManager("/path/to/plugins").PluginDir(); got != "/path/to/plugins" {
		t.Errorf("PluginDir() = %q", got)
	}
}

func TestManifest_Supports(t *testing.T) {
	tests := []struct {
		actions []string
		action  string
		want    bool
	}{
		{nil, "anything", true},
		{[]string{"keystroke", "shortcut"}, "shortcut", true},
		{[]string{"keystroke"}, "post", false},
	}
	for _, tt := range tests {
		if got := (Manifest{Actions: tt.actions}).Supports(tt.action); got != tt.want {
			t.Errorf("Supports(%v, %q) = %v, want %v", tt.actions, tt.action, got, tt.want)
		}
	}
}
