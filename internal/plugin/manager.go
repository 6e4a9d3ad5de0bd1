package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ayusman/pointerzone/internal/log"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

var (
	// ErrPluginNotFound is returned when a requested plugin cannot be found.
	ErrPluginNotFound = errors.New("plugin not found")
	// ErrInvalidManifest is returned for a manifest that cannot be run.
	ErrInvalidManifest = errors.New("invalid plugin manifest")
)

// Manager holds the plugins found under one directory, keyed by name.
type Manager struct {
	dir string

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager returns an empty Manager rooted at dir. Call Discover to fill it.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, plugins: map[string]*Plugin{}}
}

// Discover replaces the known plugins with those under the directory. Each
// <dir>/<name>/plugin.json is loaded; broken manifests are logged and
// skipped. A missing directory leaves the manager empty.
func (m *Manager) Discover() error {
	manifests, err := filepath.Glob(filepath.Join(m.dir, "*", ManifestFile))
	if err != nil {
		return err
	}

	found := make(map[string]*Plugin, len(manifests))
	for _, path := range manifests {
		p, err := loadPlugin(filepath.Dir(path))
		if err != nil {
			log.Warn("[PLUGIN] skipping %s: %v", path, err)
			continue
		}
		if prev, dup := found[p.Manifest.Name]; dup {
			log.Warn("[PLUGIN] %s: name %q already used by %s", path, p.Manifest.Name, prev.Path)
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.mu.Lock()
	m.plugins = found
	m.mu.Unlock()

	log.Info("[PLUGIN] discovered %d plugins in %s", len(found), m.dir)
	return nil
}

// loadPlugin reads and checks the manifest in dir. The name defaults to the
// directory name and the executable must live inside dir.
func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var mf Manifest
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if mf.Name == "" {
		mf.Name = filepath.Base(dir)
	}
	if mf.Executable == "" {
		return nil, fmt.Errorf("%w: no executable", ErrInvalidManifest)
	}

	exe := filepath.Join(dir, mf.Executable)
	if rel, err := filepath.Rel(dir, exe); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: executable %q outside plugin directory", ErrInvalidManifest, mf.Executable)
	}
	return &Plugin{Manifest: mf, Path: dir, Executable: exe}, nil
}

// Get returns a plugin by name, or ErrPluginNotFound.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	p, ok := m.plugins[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// List returns the discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// PluginDir returns the directory Discover scans.
func (m *Manager) PluginDir() string { return m.dir }
