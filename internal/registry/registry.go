// Package registry implements the ServiceRegistry coordination primitive:
// a named, async-callable registry that is the only way one plugin invokes
// another's logic synchronously (as opposed to EventBus's fire-and-forget
// notifications). The registry performs no authorization of its own — that
// happens at the HTTP gateway boundary before Call is ever reached.
//
// Grounded in system/core.Registry's lock-guarded map and lookup-then-invoke-
// outside-lock discipline (register/unregister hold the lock; Call looks the
// entry up under the lock, releases it, then invokes outside the lock so one
// slow service does not block registry mutations or unrelated calls), composed
// with system/core.Bus's per-invocation context.WithTimeout pattern for
// call timeouts.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/homecore/kernel/internal/kernelerr"
)

// Args is the uniform variant-typed argument bag every ServiceFunc receives,
// standing in for the spec's "variant-typed positional args, variant-typed
// keyword map" in a statically typed language (see spec §9 design note on
// dynamic dispatch without dynamic typing).
type Args struct {
	Positional []any
	Named      map[string]any
}

// Get looks up a keyword argument, returning ok=false if absent.
func (a Args) Get(name string) (any, bool) {
	if a.Named == nil {
		return nil, false
	}
	v, ok := a.Named[name]
	return v, ok
}

// ServiceFunc is the uniform signature every registered service implements.
type ServiceFunc func(ctx context.Context, args Args) (any, error)

// Middleware wraps a ServiceFunc with before/after/error hooks, composed at
// registration time into a single callable (the spec's "wrapping is done at
// registration time by composing a new callable that invokes hooks around
// the original").
type Middleware struct {
	Before func(ctx context.Context, name string, args Args)
	After  func(ctx context.Context, name string, args Args, result any, err error)
	OnError func(ctx context.Context, name string, args Args, err error)
}

type entry struct {
	fn         ServiceFunc
	deprecated bool
}

// Registry is the named ServiceRegistry. The zero value is not usable;
// construct with New.
type Registry struct {
	mu             sync.Mutex
	services       map[string]*entry
	defaultTimeout time.Duration
}

// New constructs a Registry. defaultTimeout of zero means calls are not
// bounded unless CallWithTimeout is used explicitly.
func New(defaultTimeout time.Duration) *Registry {
	return &Registry{
		services:       make(map[string]*entry),
		defaultTimeout: defaultTimeout,
	}
}

func versionedName(name, version string) string {
	if version == "" {
		return name
	}
	return name + "." + version
}

// Register adds fn under name (optionally suffixed with ".version" per the
// spec's versioning scheme). Re-registering an unregistered name succeeds;
// registering an already-registered name replaces it (the spec's round-trip
// property only requires register-after-unregister to succeed, it does not
// forbid overwrite, and plugins reloading after a crash need this).
func (r *Registry) Register(name string, fn ServiceFunc, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[versionedName(name, version)] = &entry{fn: fn}
}

// RegisterWithMiddleware registers fn wrapped by every middleware in order,
// outermost first.
func (r *Registry) RegisterWithMiddleware(name string, fn ServiceFunc, middleware []Middleware, version string) {
	wrapped := fn
	for i := len(middleware) - 1; i >= 0; i-- {
		wrapped = wrapMiddleware(name, wrapped, middleware[i])
	}
	r.Register(name, wrapped, version)
}

func wrapMiddleware(name string, fn ServiceFunc, mw Middleware) ServiceFunc {
	return func(ctx context.Context, args Args) (any, error) {
		if mw.Before != nil {
			mw.Before(ctx, name, args)
		}
		result, err := fn(ctx, args)
		if err != nil && mw.OnError != nil {
			mw.OnError(ctx, name, args, err)
		}
		if mw.After != nil {
			mw.After(ctx, name, args, result, err)
		}
		return result, err
	}
}

// Unregister removes a registered service. Unregistering a name that is not
// registered is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, name)
}

// HasService reports whether name is currently registered.
func (r *Registry) HasService(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.services[name]
	return ok
}

// ListServices returns every registered service name.
func (r *Registry) ListServices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.services))
	for name := range r.services {
		out = append(out, name)
	}
	return out
}

// Call invokes the named service, bounded by the registry's default timeout
// if one was configured.
func (r *Registry) Call(ctx context.Context, name string, args Args) (any, error) {
	return r.CallWithTimeout(ctx, name, r.defaultTimeout, args)
}

// CallWithTimeout invokes the named service bounded by timeout (zero means
// unbounded, inheriting only ctx's own deadline if any). The callable is
// looked up under the lock and invoked outside it, so unrelated services are
// never blocked by a long-running call.
func (r *Registry) CallWithTimeout(ctx context.Context, name string, timeout time.Duration, args Args) (any, error) {
	r.mu.Lock()
	e, ok := r.services[name]
	r.mu.Unlock()
	if !ok {
		return nil, kernelerr.NewUnknownService(name)
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type callResult struct {
		value any
		err   error
	}
	done := make(chan callResult, 1)
	go func() {
		value, err := e.fn(callCtx, args)
		done <- callResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-callCtx.Done():
		return nil, kernelerr.NewTimeout(name)
	}
}

// GetVersions returns every registered version suffix for a base service
// name (names registered without a version are not included).
func (r *Registry) GetVersions(baseName string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	prefix := baseName + "."
	var versions []string
	for name := range r.services {
		if strings.HasPrefix(name, prefix) {
			versions = append(versions, strings.TrimPrefix(name, prefix))
		}
	}
	return versions
}

// MarkDeprecated flags name (optionally a specific version) as deprecated.
// This is advisory only — it does not block calls, it is consulted by
// admin/introspection surfaces.
func (r *Registry) MarkDeprecated(name, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.services[versionedName(name, version)]; ok {
		e.deprecated = true
	}
}

// IsDeprecated reports whether name (optionally a specific version) has been
// marked deprecated.
func (r *Registry) IsDeprecated(name, version string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.services[versionedName(name, version)]
	return ok && e.deprecated
}

// Clear removes every registered service. Used by CoreRuntime.Shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = make(map[string]*entry)
}
