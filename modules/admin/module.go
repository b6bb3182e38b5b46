// Package admin is the built-in module exposing CoreRuntime's health and
// metrics introspection (spec §4.13) the same way any plugin exposes its
// own services: as ordinary ServiceRegistry entries surfaced through
// HttpRegistry under /admin/v1/*, never as a bespoke handler bolted onto
// the gateway.
//
// It takes HealthFunc/MetricsFunc closures rather than a *runtime.CoreRuntime
// reference so that internal/runtime need not import this package — the
// same non-owning-pointer discipline spec §9 describes for plugins applies
// here to avoid an import cycle between the orchestrator and its own
// built-in module.
package admin

import (
	"context"
	"net/http"

	"github.com/homecore/kernel/internal/httpregistry"
	"github.com/homecore/kernel/internal/registry"
)

// HealthFunc reports the runtime's health status and per-check detail.
type HealthFunc func(ctx context.Context) (string, map[string]interface{})

// MetricsFunc reports the runtime's introspection snapshot.
type MetricsFunc func(ctx context.Context) any

// Module binds HealthFunc/MetricsFunc into the service and HTTP surface.
// It is OPTIONAL: a kernel still runs without its own introspection wired
// in, which only matters to operators, not to plugin correctness.
type Module struct {
	health  HealthFunc
	metrics MetricsFunc

	services *registry.Registry
	http     *httpregistry.Registry
}

// New constructs the admin module.
func New(health HealthFunc, metrics MetricsFunc, services *registry.Registry, httpReg *httpregistry.Registry) *Module {
	return &Module{health: health, metrics: metrics, services: services, http: httpReg}
}

func (m *Module) Name() string { return "admin" }

func (m *Module) Start(ctx context.Context) error {
	m.services.Register("admin.health", m.handleHealth, "")
	m.services.Register("admin.metrics", m.handleMetrics, "")

	if err := m.http.Register(httpregistry.Endpoint{Method: http.MethodGet, Path: "/admin/v1/health", Service: "admin.health", Description: "runtime health check"}); err != nil {
		return err
	}
	if err := m.http.Register(httpregistry.Endpoint{Method: http.MethodGet, Path: "/admin/v1/metrics", Service: "admin.metrics", Description: "runtime metrics snapshot"}); err != nil {
		return err
	}
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	m.services.Unregister("admin.health")
	m.services.Unregister("admin.metrics")
	m.http.Clear("admin")
	return nil
}

func (m *Module) handleHealth(ctx context.Context, args registry.Args) (any, error) {
	status, detail := m.health(ctx)
	return map[string]interface{}{"status": status, "detail": detail}, nil
}

func (m *Module) handleMetrics(ctx context.Context, args registry.Args) (any, error) {
	return m.metrics(ctx), nil
}
