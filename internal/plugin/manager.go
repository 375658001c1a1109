package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dsaub/modulish-bot/internal/host"
	"github.com/dsaub/modulish-bot/internal/plugin/engine"
)

// DefaultSuggestionLimit caps name-completion results.
const DefaultSuggestionLimit = 25

// Installer turns a remote download spec into a local plugin directory and
// returns the installed plugin name.
type Installer interface {
	Install(ctx context.Context, spec string) (string, error)
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// PluginsRoot is the directory plugins are discovered in.
	PluginsRoot string

	// ConfigRoot is the directory per-plugin data directories live under.
	ConfigRoot string

	// Hub is the host surface handed to plugin hooks.
	Hub *host.Hub

	// Installer handles remote installs. Optional.
	Installer Installer

	// Logger receives hook failures and lifecycle events.
	Logger *slog.Logger
}

// Manager owns the plugin registry and orchestrates load, unload, and
// restart. Lifecycle operations on the same plugin name never interleave:
// each name has its own lock held for the whole operation, so concurrent
// restarts cannot double-unload or race a load against an unfinished unload.
type Manager struct {
	registry  *Registry
	hub       *host.Hub
	installer Installer
	logger    *slog.Logger

	pluginsRoot string
	configRoot  string

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewManager creates a Manager with an empty registry.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:    NewRegistry(),
		hub:         cfg.Hub,
		installer:   cfg.Installer,
		logger:      logger,
		pluginsRoot: cfg.PluginsRoot,
		configRoot:  cfg.ConfigRoot,
		locks:       make(map[string]*sync.Mutex),
	}
}

// Registry returns the manager's registry for read-only queries.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// nameLock returns the mutex serializing lifecycle operations for a name.
func (m *Manager) nameLock(name string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	return l
}

// Load loads the named plugin from the plugins root and registers it.
// Fails with ErrAlreadyLoaded when the name is registered, and with
// ErrPluginDisabled when the manifest declares enabled = false.
func (m *Manager) Load(ctx context.Context, name string) error {
	l := m.nameLock(name)
	l.Lock()
	defer l.Unlock()
	return m.load(ctx, name)
}

// load performs the load with the name lock held.
func (m *Manager) load(ctx context.Context, name string) error {
	if m.registry.Has(name) {
		return fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}

	dir := filepath.Join(m.pluginsRoot, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}

	manifest, err := LoadManifest(dir)
	if err != nil {
		return fmt.Errorf("plugin %q: %w", name, err)
	}
	if !manifest.Enabled {
		return fmt.Errorf("plugin %q: %w", name, ErrPluginDisabled)
	}

	configDir := filepath.Join(m.configRoot, name)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("plugin %q: creating config dir: %w", name, err)
	}

	module, err := engine.Load(name, manifest.Dir(), manifest.MainPath())
	if err != nil {
		return fmt.Errorf("plugin %q: %w: %v", name, ErrModuleLoad, err)
	}

	binding := host.NewBinding(m.hub, name)

	// A failing setup hook does not abort the load; the module itself
	// imported cleanly and restart is the recovery path.
	hostTable := binding.Table(module.State())
	if err := module.CallSetup(hostTable, configDir); err != nil {
		m.logger.Warn("setup hook failed", "plugin", name, "error", err)
	}

	entry := &Entry{
		Manifest:  manifest,
		Module:    module,
		ConfigDir: configDir,
		binding:   binding,
	}
	if !m.registry.add(name, entry) {
		module.Close()
		return fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}

	m.logger.Info("plugin loaded", "plugin", name, "module", module.ID())
	return nil
}

// Unload tears down the named plugin and removes it from the registry.
// The plugin's config directory is left in place.
func (m *Manager) Unload(ctx context.Context, name string) error {
	l := m.nameLock(name)
	l.Lock()
	defer l.Unlock()
	return m.unload(ctx, name)
}

// unload performs the unload with the name lock held.
func (m *Manager) unload(ctx context.Context, name string) error {
	entry, ok := m.registry.Get(name)
	if !ok {
		return fmt.Errorf("plugin %q: %w", name, ErrNotLoaded)
	}

	// Teardown is best effort; a misbehaving plugin must not block unload.
	hostTable := entry.binding.Table(entry.Module.State())
	if err := entry.Module.CallTeardown(hostTable); err != nil {
		m.logger.Warn("teardown hook failed", "plugin", name, "error", err)
	}

	for _, c := range entry.binding.Capabilities() {
		if err := c.Detach(); err != nil {
			m.logger.Warn("capability detach failed", "plugin", name, "capability", c.Name(), "error", err)
		}
	}

	entry.Module.Close()
	m.registry.remove(name)

	m.logger.Info("plugin unloaded", "plugin", name)
	return nil
}

// Restart unloads and reloads the named plugin under a single critical
// section. Both steps must succeed; when the load step fails the plugin is
// left fully unloaded, not rolled back.
func (m *Manager) Restart(ctx context.Context, name string) error {
	l := m.nameLock(name)
	l.Lock()
	defer l.Unlock()

	if err := m.unload(ctx, name); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	if err := m.load(ctx, name); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// LoadAll discovers and loads every enabled plugin under the plugins root.
// Disabled plugins are skipped silently; per-plugin failures are collected
// and do not stop the sweep.
func (m *Manager) LoadAll(ctx context.Context) error {
	candidates, err := Discover(m.pluginsRoot)
	if err != nil {
		return fmt.Errorf("discovering plugins: %w", err)
	}

	var loadErrs []error
	for _, c := range candidates {
		manifest, err := LoadManifest(c.Path)
		if err != nil {
			loadErrs = append(loadErrs, fmt.Errorf("%s: %w", c.Name, err))
			continue
		}
		if !manifest.Enabled {
			m.logger.Debug("skipping disabled plugin", "plugin", c.Name)
			continue
		}
		if err := m.Load(ctx, c.Name); err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	if len(loadErrs) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrs), errors.Join(loadErrs...))
	}
	return nil
}

// Install downloads a plugin from a spec of the form owner/repo[@branch]
// and, when autoload is set, loads it. Returns the installed plugin name.
func (m *Manager) Install(ctx context.Context, spec string, autoload bool) (string, error) {
	if m.installer == nil {
		return "", errors.New("no installer configured")
	}

	name, err := m.installer.Install(ctx, spec)
	if err != nil {
		return "", err
	}
	if autoload {
		if err := m.Load(ctx, name); err != nil {
			return name, fmt.Errorf("installed but not loaded: %w", err)
		}
	}
	return name, nil
}

// Suggestions returns plugin names matching a partial string for
// completion: loaded plugins first in load order, then on-disk candidates
// not yet loaded. Matching is case-insensitive substring; the result is
// capped at limit (DefaultSuggestionLimit when limit <= 0).
func (m *Manager) Suggestions(partial string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	partial = strings.ToLower(partial)

	seen := make(map[string]bool)
	ordered := m.registry.Names()
	for _, name := range ordered {
		seen[name] = true
	}
	for _, name := range CandidateNames(m.pluginsRoot) {
		if !seen[name] {
			seen[name] = true
			ordered = append(ordered, name)
		}
	}

	var out []string
	for _, name := range ordered {
		if partial != "" && !strings.Contains(strings.ToLower(name), partial) {
			continue
		}
		out = append(out, name)
		if len(out) >= limit {
			break
		}
	}
	return out
}
