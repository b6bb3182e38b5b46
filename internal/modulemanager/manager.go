// Package modulemanager drives the lifecycle of built-in kernel modules
// (logger, requestlogger, auth, apigateway, scheduler, integrations) — the
// same lifecycle PluginManager applies to external plugins, with one
// addition: each module is classified REQUIRED or OPTIONAL, and a REQUIRED
// module's failure to register or start aborts CoreRuntime.Start entirely,
// while an OPTIONAL module's failure is logged and tolerated.
//
// Each registered module carries its Name/Start/Stop contract plus a
// required/optional flag on its descriptor, so VerifyRequired and StartAll
// can tell a module the runtime cannot live without from one it merely
// benefits from.
package modulemanager

import (
	"context"
	"sync"

	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
)

// Module is the lifecycle contract every built-in kernel module satisfies.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type descriptor struct {
	module   Module
	required bool
	started  bool
}

// Manager registers and sequences built-in modules. Construct with New.
type Manager struct {
	mu    sync.Mutex
	mods  map[string]*descriptor
	order []string
	log   *logging.Logger
}

// New constructs an empty Manager.
func New(log *logging.Logger) *Manager {
	return &Manager{mods: make(map[string]*descriptor), log: log}
}

// Register adds a module to the manager. Registering a name that already
// exists refuses with Conflict.
func (m *Manager) Register(mod Module, required bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.mods[mod.Name()]; exists {
		return kernelerr.NewConflict("module already registered: " + mod.Name())
	}
	m.mods[mod.Name()] = &descriptor{module: mod, required: required}
	m.order = append(m.order, mod.Name())
	return nil
}

// IsRegistered reports whether name has been registered.
func (m *Manager) IsRegistered(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.mods[name]
	return ok
}

// RequiredModules returns the names of every module registered as REQUIRED.
func (m *Manager) RequiredModules() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, name := range m.order {
		if m.mods[name].required {
			out = append(out, name)
		}
	}
	return out
}

// VerifyRequired checks that every name in requiredNames is registered,
// returning an error naming the first one that is not.
func (m *Manager) VerifyRequired(requiredNames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range requiredNames {
		if _, ok := m.mods[name]; !ok {
			return kernelerr.New(kernelerr.DependencyMissing, "required module not registered: "+name)
		}
	}
	return nil
}

// StartAll starts every registered module in registration order. If a
// REQUIRED module fails to start, StartAll returns that error immediately
// without starting the remaining modules (the caller, CoreRuntime, is then
// expected to call StopAll on whatever did start). An OPTIONAL module's
// failure is logged and does not stop the batch.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, name := range m.snapshotOrder() {
		desc := m.get(name)
		if desc == nil {
			continue
		}
		if err := desc.module.Start(ctx); err != nil {
			wrapped := kernelerr.Wrap(kernelerr.PluginLifecycleError, "module start failed: "+name, err)
			if desc.required {
				return wrapped
			}
			if m.log != nil {
				m.log.Warn(ctx, "optional module start failed", map[string]any{"module": name, "error": err.Error()})
			}
			continue
		}
		m.mu.Lock()
		desc.started = true
		m.mu.Unlock()
	}
	return nil
}

// StopAll stops every started module in reverse registration order. Errors
// are logged, never propagated — Stop must make a best effort across every
// module regardless of earlier failures.
func (m *Manager) StopAll(ctx context.Context) {
	order := m.snapshotOrder()
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		desc := m.get(name)
		if desc == nil || !desc.started {
			continue
		}
		if err := desc.module.Stop(ctx); err != nil && m.log != nil {
			m.log.Warn(ctx, "module stop failed", map[string]any{"module": name, "error": err.Error()})
		}
		m.mu.Lock()
		desc.started = false
		m.mu.Unlock()
	}
}

// Clear removes every registered module. Used by CoreRuntime.Shutdown.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mods = make(map[string]*descriptor)
	m.order = nil
}

func (m *Manager) snapshotOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) get(name string) *descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mods[name]
}
