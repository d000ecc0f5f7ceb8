package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
)

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

// Manager discovers plugins under a directory.
type Manager struct {
	pluginDir string
	log       *zap.Logger

	mu      sync.RWMutex
	plugins map[string]*Plugin
}

// NewManager creates a Manager for pluginDir.
func NewManager(pluginDir string, log *zap.Logger) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		log:       logging.OrNop(log),
		plugins:   make(map[string]*Plugin),
	}
}

// Discover rescans the plugin directory. Each subdirectory holding a
// plugin.json is a plugin; unreadable or invalid manifests are skipped and
// logged. A missing directory yields no plugins.
func (m *Manager) Discover() error {
	found := make(map[string]*Plugin)

	info, err := os.Stat(m.pluginDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.replace(found)
		return nil
	case err != nil:
		return fmt.Errorf("stat plugin dir: %w", err)
	case !info.IsDir():
		return fmt.Errorf("plugin path %s is not a directory", m.pluginDir)
	}

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil {
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := loadPlugin(filepath.Join(m.pluginDir, entry.Name()))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			m.log.Warn("skipping plugin", zap.String("dir", entry.Name()), zap.Error(err))
			continue
		}
		if _, dup := found[p.Manifest.Name]; dup {
			m.log.Warn("duplicate plugin name", zap.String("name", p.Manifest.Name), zap.String("dir", entry.Name()))
			continue
		}
		found[p.Manifest.Name] = p
	}

	m.replace(found)
	m.log.Info("plugins discovered", zap.Int("count", len(found)), zap.String("dir", m.pluginDir))
	return nil
}

func (m *Manager) replace(plugins map[string]*Plugin) {
	m.mu.Lock()
	m.plugins = plugins
	m.mu.Unlock()
}

func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs name and executable")
	}
	for _, g := range manifest.Gestures {
		if !slices.Contains(gesture.Gestures, g) {
			return nil, fmt.Errorf("unknown gesture %q", g)
		}
	}
	if !filepath.IsLocal(manifest.Executable) {
		return nil, fmt.Errorf("executable %q must be inside the plugin directory", manifest.Executable)
	}

	return &Plugin{Manifest: manifest, Path: dir, Executable: filepath.Join(dir, manifest.Executable)}, nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return plugin, nil
}

// List returns all discovered plugins ordered by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.plugins))
	for _, plugin := range m.plugins {
		plugins = append(plugins, plugin)
	}
	slices.SortFunc(plugins, func(a, b *Plugin) int { return strings.Compare(a.Manifest.Name, b.Manifest.Name) })
	return plugins
}

// ForGesture returns the plugins subscribed to g, ordered by name.
func (m *Manager) ForGesture(g gesture.Gesture) []*Plugin {
	var out []*Plugin
	for _, p := range m.List() {
		if p.Manifest.Handles(g) {
			out = append(out, p)
		}
	}
	return out
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
