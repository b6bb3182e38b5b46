// Package pluginmanager is the heart of plugin lifecycle: manifest
// discovery, dependency-ordered loading, the per-plugin UNLOADED -> LOADED
// -> STARTED -> STOPPED state machine, and failure isolation so one
// plugin's lifecycle error never prevents another plugin from loading,
// starting, stopping, or unloading.
//
// Dependency resolution is topological, but skip-on-cycle and skip-on-
// missing-dependency rather than failing the whole batch: a plugin inside a
// cycle, or one whose dependency never loaded, is skipped with a warning
// while every other plugin continues to load.
package pluginmanager

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/plugin"
)

// State is one of the five states in the spec's per-plugin state machine.
type State string

const (
	Unloaded State = "UNLOADED"
	Loaded   State = "LOADED"
	Started  State = "STARTED"
	Stopped  State = "STOPPED"
	Error    State = "ERROR"
)

type record struct {
	manifest plugin.Manifest
	instance plugin.Plugin
	state    State
}

// RuntimeFactory builds the Runtime surface handed to a plugin's OnLoad,
// scoped to that plugin's name (so HTTP registrations/service calls made by
// the plugin are attributable back to it).
type RuntimeFactory func(pluginName string) plugin.Runtime

// Manager drives the plugin lifecycle state machine. Construct with New.
type Manager struct {
	mu         sync.Mutex
	factories  map[string]plugin.Factory
	records    map[string]*record
	order      []string // registration order, for deterministic start_all/stop_all
	newRuntime RuntimeFactory
	log        *logging.Logger
}

// New constructs a Manager. newRuntime builds the Runtime surface passed to
// each plugin's OnLoad.
func New(newRuntime RuntimeFactory, log *logging.Logger) *Manager {
	return &Manager{
		factories:  make(map[string]plugin.Factory),
		records:    make(map[string]*record),
		newRuntime: newRuntime,
		log:        log,
	}
}

// RegisterFactory makes classPath available for manifests to reference.
// Because this kernel is a single static binary, factories are registered
// at build time by each compiled-in plugin package's init, not resolved
// dynamically from the manifest's class_path at load time.
func (m *Manager) RegisterFactory(classPath string, factory plugin.Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[classPath] = factory
}

// Discover enumerates pluginsDir for subdirectories containing a
// plugin.json manifest. Directories without one are skipped entirely —
// loading is manifest-only by contract.
func (m *Manager) Discover(pluginsDir string) ([]plugin.Manifest, error) {
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kernelerr.NewAdapterError("discover_plugins", err)
	}

	var manifests []plugin.Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifestPath := filepath.Join(pluginsDir, entry.Name(), "plugin.json")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			continue // no manifest, not a plugin
		}
		var mf plugin.Manifest
		if err := json.Unmarshal(data, &mf); err != nil {
			if m.log != nil {
				m.log.Warn(context.Background(), "skipping plugin with unparsable manifest", map[string]any{"dir": entry.Name(), "error": err.Error()})
			}
			continue
		}
		mf.Normalize()
		if err := mf.Validate(); err != nil {
			if m.log != nil {
				m.log.Warn(context.Background(), "skipping plugin with invalid manifest", map[string]any{"dir": entry.Name(), "error": err.Error()})
			}
			continue
		}
		manifests = append(manifests, mf)
	}
	return manifests, nil
}

// resolveOrder topologically sorts manifests by Dependencies. Plugins that
// are part of a dependency cycle, or that declare a dependency missing from
// the batch entirely, are returned separately in skipped (with a reason)
// rather than blocking the plugins that load cleanly.
func resolveOrder(manifests []plugin.Manifest) (ordered []plugin.Manifest, skipped map[string]string) {
	byName := make(map[string]plugin.Manifest, len(manifests))
	for _, mf := range manifests {
		byName[mf.Name] = mf
	}
	skipped = make(map[string]string)

	state := make(map[string]int) // 0=unvisited 1=visiting 2=done
	var onCycle func(name string) bool
	inCycle := make(map[string]bool)

	onCycle = func(name string) bool {
		mf, ok := byName[name]
		if !ok {
			return false
		}
		switch state[name] {
		case 1:
			return true
		case 2:
			return inCycle[name]
		}
		state[name] = 1
		cyclic := false
		for _, dep := range mf.Dependencies {
			if dep == name {
				cyclic = true
				continue
			}
			if _, ok := byName[dep]; !ok {
				continue // missing dep handled separately below
			}
			if onCycle(dep) {
				cyclic = true
			}
		}
		state[name] = 2
		inCycle[name] = cyclic
		return cyclic
	}

	for name := range byName {
		onCycle(name)
	}
	for name := range inCycle {
		if inCycle[name] {
			skipped[name] = "dependency cycle"
		}
	}

	for _, mf := range manifests {
		if inCycle[mf.Name] {
			continue
		}
		for _, dep := range mf.Dependencies {
			if _, ok := byName[dep]; !ok {
				skipped[mf.Name] = fmt.Sprintf("missing dependency %q", dep)
			} else if inCycle[dep] {
				skipped[mf.Name] = fmt.Sprintf("dependency %q is in a cycle", dep)
			}
		}
	}

	visited := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		if _, skip := skipped[name]; skip {
			return
		}
		mf, ok := byName[name]
		if !ok {
			return
		}
		visited[name] = true
		for _, dep := range mf.Dependencies {
			if _, skip := skipped[dep]; !skip {
				visit(dep)
			}
		}
		ordered = append(ordered, mf)
	}
	for _, mf := range manifests {
		visit(mf.Name)
	}
	return ordered, skipped
}

// LoadAll discovers and loads every plugin under pluginsDir in dependency
// order, skipping cyclic or dependency-missing plugins with a logged
// warning rather than failing the batch.
func (m *Manager) LoadAll(ctx context.Context, pluginsDir string) error {
	manifests, err := m.Discover(pluginsDir)
	if err != nil {
		return err
	}
	ordered, skipped := resolveOrder(manifests)
	for name, reason := range skipped {
		if m.log != nil {
			m.log.Warn(ctx, "skipping plugin", map[string]any{"plugin": name, "reason": reason})
		}
	}
	for _, mf := range ordered {
		if err := m.Load(ctx, mf); err != nil && m.log != nil {
			m.log.Warn(ctx, "plugin load failed", map[string]any{"plugin": mf.Name, "error": err.Error()})
		}
	}
	return nil
}

// Load instantiates and loads a single plugin already present in the
// factory registry under mf.ClassPath. If mf.Name is already loaded, Load
// refuses with Conflict. If, after OnLoad, the plugin's declared
// dependencies are not all LOADED, Load calls OnUnload to release whatever
// services/subscriptions/HTTP contracts OnLoad registered, does not record
// the plugin, and refuses with DependencyMissing — OnLoad/OnUnload run in
// matched pairs on this path exactly as they do on every other reject path.
func (m *Manager) Load(ctx context.Context, mf plugin.Manifest) error {
	m.mu.Lock()
	if _, exists := m.records[mf.Name]; exists {
		m.mu.Unlock()
		return kernelerr.NewConflict("plugin already loaded: " + mf.Name)
	}
	factory, ok := m.factories[mf.ClassPath]
	m.mu.Unlock()
	if !ok {
		return kernelerr.NewNotFound("plugin_class", mf.ClassPath)
	}

	instance := factory()
	rt := m.newRuntime(mf.Name)

	if err := instance.OnLoad(ctx, rt); err != nil {
		m.setState(mf.Name, Error)
		return kernelerr.NewPluginLifecycleError(mf.Name, "on_load", err)
	}

	meta := instance.Metadata()
	missing := ""
	for _, dep := range mf.Dependencies {
		if m.StateOf(dep) != Loaded {
			missing = dep
			break
		}
	}
	if missing == "" {
		for _, dep := range meta.Dependencies {
			if m.StateOf(dep) != Loaded {
				missing = dep
				break
			}
		}
	}
	if missing != "" {
		if err := instance.OnUnload(ctx); err != nil {
			m.log.Warn(ctx, "plugin on_unload failed after dependency-missing reject", map[string]any{"plugin": mf.Name, "error": err.Error()})
		}
		return kernelerr.NewDependencyMissing(mf.Name, missing)
	}

	m.mu.Lock()
	m.records[mf.Name] = &record{manifest: mf, instance: instance, state: Loaded}
	m.order = append(m.order, mf.Name)
	m.mu.Unlock()
	return nil
}

func (m *Manager) setState(name string, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[name]; ok {
		r.state = state
	} else {
		m.records[name] = &record{state: state}
	}
}

// StateOf returns the current state of a named plugin, or Unloaded if it
// has never been registered.
func (m *Manager) StateOf(name string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[name]; ok {
		return r.state
	}
	return Unloaded
}

// ListPlugins returns every loaded plugin's name, in registration order.
func (m *Manager) ListPlugins() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.order))
	for _, name := range m.order {
		if _, ok := m.records[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// StartPlugin transitions a LOADED plugin to STARTED by calling OnStart. A
// failure transitions the plugin to ERROR and is propagated to the caller.
func (m *Manager) StartPlugin(ctx context.Context, name string) error {
	m.mu.Lock()
	r, ok := m.records[name]
	m.mu.Unlock()
	if !ok || r.state != Loaded {
		return kernelerr.NewNotFound("plugin", name)
	}
	if err := r.instance.OnStart(ctx); err != nil {
		m.setState(name, Error)
		return kernelerr.NewPluginLifecycleError(name, "on_start", err)
	}
	m.setState(name, Started)
	return nil
}

// StartAll starts every LOADED plugin in registration order. One plugin's
// start failure is logged and does not stop the batch — a failing
// non-required plugin must not destroy the runtime.
func (m *Manager) StartAll(ctx context.Context) {
	for _, name := range m.ListPlugins() {
		if m.StateOf(name) != Loaded {
			continue
		}
		if err := m.StartPlugin(ctx, name); err != nil && m.log != nil {
			m.log.Warn(ctx, "plugin start failed", map[string]any{"plugin": name, "error": err.Error()})
		}
	}
}

// StopPlugin transitions a STARTED plugin to STOPPED by calling OnStop.
func (m *Manager) StopPlugin(ctx context.Context, name string) error {
	m.mu.Lock()
	r, ok := m.records[name]
	m.mu.Unlock()
	if !ok || r.state != Started {
		return nil
	}
	if err := r.instance.OnStop(ctx); err != nil {
		m.setState(name, Error)
		return kernelerr.NewPluginLifecycleError(name, "on_stop", err)
	}
	m.setState(name, Stopped)
	return nil
}

// StopAll stops every STARTED plugin in reverse registration order.
func (m *Manager) StopAll(ctx context.Context) {
	names := m.ListPlugins()
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if err := m.StopPlugin(ctx, name); err != nil && m.log != nil {
			m.log.Warn(ctx, "plugin stop failed", map[string]any{"plugin": name, "error": err.Error()})
		}
	}
}

// UnloadPlugin stops the plugin if STARTED, calls OnUnload, and removes it
// from the registry. After OnUnload, the plugin is expected to have
// released every service, event subscription, and HTTP contract it created.
func (m *Manager) UnloadPlugin(ctx context.Context, name string) error {
	m.mu.Lock()
	r, ok := m.records[name]
	m.mu.Unlock()
	if !ok {
		return kernelerr.NewNotFound("plugin", name)
	}
	if r.state == Started {
		if err := m.StopPlugin(ctx, name); err != nil {
			return err
		}
	}
	if err := r.instance.OnUnload(ctx); err != nil {
		m.setState(name, Error)
		return kernelerr.NewPluginLifecycleError(name, "on_unload", err)
	}

	m.mu.Lock()
	delete(m.records, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// UnloadAll unloads every registered plugin in reverse registration order.
func (m *Manager) UnloadAll(ctx context.Context) {
	names := m.ListPlugins()
	for i := len(names) - 1; i >= 0; i-- {
		if err := m.UnloadPlugin(ctx, names[i]); err != nil && m.log != nil {
			m.log.Warn(ctx, "plugin unload failed", map[string]any{"plugin": names[i], "error": err.Error()})
		}
	}
}
