// Package plugin defines the contract every plugin satisfies: a manifest
// schema plus the four-hook async lifecycle the PluginManager drives.
//
// Grounded in system/framework.Manifest (struct shape, Normalize/Validate)
// generalized to the spec's five manifest fields, and in
// internal/app/system.Service's minimal Name/Start/Stop interface, extended
// here to the spec's full on_load/on_start/on_stop/on_unload lifecycle.
package plugin

import (
	"context"

	"github.com/homecore/kernel/internal/kernelerr"
)

// Manifest is the plugin.json schema (spec §6).
type Manifest struct {
	ClassPath    string   `json:"class_path"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description"`
	Author       string   `json:"author"`
	Dependencies []string `json:"dependencies"`
}

// Normalize trims redundant/duplicate dependency entries in place.
func (m *Manifest) Normalize() {
	seen := make(map[string]bool, len(m.Dependencies))
	out := m.Dependencies[:0]
	for _, dep := range m.Dependencies {
		if dep == "" || seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, dep)
	}
	m.Dependencies = out
}

// Validate rejects a manifest missing the two fields the spec treats as
// mandatory: class_path and name.
func (m *Manifest) Validate() error {
	if m.ClassPath == "" {
		return kernelerr.NewInvalidInput("class_path", "must not be empty")
	}
	if m.Name == "" {
		return kernelerr.NewInvalidInput("name", "must not be empty")
	}
	return nil
}

// DependsOn reports whether the manifest declares a dependency on name.
func (m *Manifest) DependsOn(name string) bool {
	for _, dep := range m.Dependencies {
		if dep == name {
			return true
		}
	}
	return false
}

// Metadata is the synchronous accessor every Plugin exposes, mirroring the
// manifest fields the PluginManager injected at load time.
type Metadata struct {
	Name         string
	Version      string
	Description  string
	Author       string
	Dependencies []string
}

// Plugin is the contract every loadable unit of domain logic implements.
// OnLoad is where a plugin registers services, subscribes to events, and
// registers HTTP contracts; OnUnload must exactly undo OnLoad. Any hook may
// be a no-op.
type Plugin interface {
	Metadata() Metadata
	OnLoad(ctx context.Context, rt Runtime) error
	OnStart(ctx context.Context) error
	OnStop(ctx context.Context) error
	OnUnload(ctx context.Context) error
}

// Runtime is the narrow surface a plugin sees of the kernel: the three
// coordination primitives plus HTTP contract registration. It is a
// non-owning reference — the kernel owns every plugin, never the reverse,
// which rules out a reference cycle and makes OnUnload a pure release step
// (spec §9 design note).
type Runtime interface {
	PluginName() string
	EventSubscribe(eventType string, handler func(ctx context.Context, payload any))
	EventUnsubscribe(eventType string, handler func(ctx context.Context, payload any))
	EventPublish(ctx context.Context, eventType string, payload any)
	ServiceRegister(name string, fn func(ctx context.Context, args ServiceArgs) (any, error), version string)
	ServiceUnregister(name string)
	ServiceCall(ctx context.Context, name string, args ServiceArgs) (any, error)
	HTTPRegister(method, path, service, description, version string) error
	StorageGet(ctx context.Context, namespace, key string) (map[string]any, bool, error)
	StorageSet(ctx context.Context, namespace, key string, value map[string]any) error
	StorageDelete(ctx context.Context, namespace, key string) error
}

// ServiceArgs mirrors registry.Args without importing internal/registry
// directly, keeping the plugin contract free of a dependency on the
// registry's internal representation.
type ServiceArgs struct {
	Positional []any
	Named      map[string]any
}

// Factory constructs a Plugin instance. Because this kernel ships as a
// single static Go binary (spec §9: "this kernel has no hot code reload"),
// class_path in a manifest names a Factory registered in the
// PluginManager's in-process registry at build time rather than a
// dynamically resolved symbol — see internal/pluginmanager.
type Factory func() Plugin
