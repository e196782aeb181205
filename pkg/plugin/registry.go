// Package plugin manages the host-side collection of loaded WebAssembly
// plugins: loading and identity assignment, entry-point enumeration,
// discovery, and routing of action invocations into the sandbox.
package plugin

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/waxwing-dev/waxwing/internal/errx"
	"github.com/waxwing-dev/waxwing/pkg/sandbox"
)

// Registry holds loaded plugins keyed by id. Load, Unload, Reload, and
// Discover are serialised against concurrent ExecuteAction calls;
// execution itself takes only a shared view of an instance and never
// mutates registry state.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	plugins map[string]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		plugins: make(map[string]*Instance),
	}
}

// Load compiles the module described by cfg and stores the instance under
// its resolved id, replacing any previous instance with that id. Disabled
// plugins fail with ErrLoadFailed and are not registered.
func (r *Registry) Load(cfg Config) (string, error) {
	inst, err := r.build(cfg)
	if err != nil {
		return "", err
	}

	id := inst.ID()
	r.mu.Lock()
	old := r.plugins[id]
	r.plugins[id] = inst
	r.mu.Unlock()
	if old != nil {
		old.close()
	}

	r.logger.Info("plugin loaded", "plugin", id, "path", cfg.Path, "actions", inst.Actions())
	return id, nil
}

// LoadFromPath loads the module at path with a default configuration.
func (r *Registry) LoadFromPath(path string) (string, error) {
	return r.Load(NewConfig(path))
}

// build compiles a module and assembles an instance without touching the
// registry map. Callers insert the result under instance ID.
func (r *Registry) build(cfg Config) (*Instance, error) {
	if !cfg.IsEnabled() {
		return nil, errx.With(sandbox.ErrLoadFailed, ": plugin is disabled")
	}

	id := cfg.ResolvedID()

	sb, err := sandbox.New(cfg.Sandbox.Build(), r.logger.With("plugin", id))
	if err != nil {
		return nil, errx.Wrap(sandbox.ErrLoadFailed, err)
	}

	module, err := sb.CompileFile(cfg.Path)
	if err != nil {
		sb.Close()
		return nil, err
	}

	metadata := NewMetadata(id, id, "0.1.0")
	metadata.RequiredPermissions = sb.Config().Permissions
	if err := metadata.CheckAPIVersion(); err != nil {
		sb.Close()
		return nil, err
	}

	return &Instance{
		config:   cfg,
		metadata: metadata,
		module:   module,
		sb:       sb,
		actions:  module.Actions(),
	}, nil
}

// Unload drops the plugin with the given id.
func (r *Registry) Unload(id string) error {
	r.mu.Lock()
	inst, ok := r.plugins[id]
	if ok {
		delete(r.plugins, id)
	}
	r.mu.Unlock()

	if !ok {
		return errx.With(ErrNotFound, ": %s", id)
	}
	inst.close()
	r.logger.Info("plugin unloaded", "plugin", id)
	return nil
}

// Reload rebuilds a plugin from its stored configuration. The new instance
// is built first and swapped in only on success, so a failed reload leaves
// the original instance serving.
func (r *Registry) Reload(id string) error {
	r.mu.RLock()
	inst, ok := r.plugins[id]
	r.mu.RUnlock()
	if !ok {
		return errx.With(ErrNotFound, ": %s", id)
	}

	fresh, err := r.build(inst.Config())
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := r.plugins[id]
	r.plugins[fresh.ID()] = fresh
	if fresh.ID() != id {
		delete(r.plugins, id)
	}
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	r.logger.Info("plugin reloaded", "plugin", fresh.ID())
	return nil
}

// Discover scans each search path for *.wasm files and loads them with
// default configurations. Load failures are logged and skipped; the ids
// that loaded successfully are returned.
func (r *Registry) Discover(searchPaths []string) []string {
	var loaded []string
	for _, dir := range searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			r.logger.Debug("plugin search path unreadable", "path", dir, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wasm") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			id, err := r.LoadFromPath(path)
			if err != nil {
				r.logger.Warn("failed to load plugin", "path", path, "error", err)
				continue
			}
			loaded = append(loaded, id)
		}
	}
	return loaded
}

// Get returns the instance with the given id.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.plugins[id]
	return inst, ok
}

// IDs returns the loaded plugin ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.plugins))
	for id := range r.plugins {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of loaded plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ExecuteAction runs one plugin action. The lookup takes a shared lock;
// the invocation itself runs against the immutable instance.
func (r *Registry) ExecuteAction(pluginID, action string, ctx sandbox.PluginContext) (sandbox.ActionOutcome, error) {
	inst, ok := r.Get(pluginID)
	if !ok {
		return sandbox.ActionOutcome{}, errx.With(ErrNotFound, ": %s", pluginID)
	}
	return inst.Execute(action, ctx)
}

// FindPluginsWithAction returns the ids of plugins exporting the named
// action, in sorted order.
func (r *Registry) FindPluginsWithAction(action string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, inst := range r.plugins {
		if inst.HasAction(action) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Close unloads every plugin.
func (r *Registry) Close() {
	r.mu.Lock()
	plugins := r.plugins
	r.plugins = make(map[string]*Instance)
	r.mu.Unlock()
	for _, inst := range plugins {
		inst.close()
	}
}
