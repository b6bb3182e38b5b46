// Package runtime provides CoreRuntime, the orchestrator that owns every
// kernel component and sequences startup/shutdown. Nothing outside main()
// constructs a CoreRuntime directly.
//
// Grounded in internal/app.Application (Attach/Start/Stop, functional-
// options RuntimeConfig, env-driven bootstrap) fused with system/bootstrap's
// wiring-sequence idiom. GetMetrics returns plain counts; the
// prometheus/client_golang gauges and shirou/gopsutil/v3 sampling live in
// modules/integrations.
package runtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/homecore/kernel/internal/auth"
	"github.com/homecore/kernel/internal/authz"
	"github.com/homecore/kernel/internal/config"
	"github.com/homecore/kernel/internal/eventbus"
	"github.com/homecore/kernel/internal/gateway"
	"github.com/homecore/kernel/internal/httpregistry"
	"github.com/homecore/kernel/internal/integrationregistry"
	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/modulemanager"
	"github.com/homecore/kernel/internal/plugin"
	"github.com/homecore/kernel/internal/pluginmanager"
	"github.com/homecore/kernel/internal/registry"
	"github.com/homecore/kernel/internal/requestlogger"
	"github.com/homecore/kernel/internal/stateengine"
	"github.com/homecore/kernel/internal/storage"
	"github.com/homecore/kernel/internal/storagemirror"
)

const runtimeStatusNamespace = "runtime"
const runtimeStatusKey = "status"

// CoreRuntime owns every kernel component and sequences their lifecycle.
type CoreRuntime struct {
	Config *config.RuntimeConfig
	Log    *logging.Logger

	EventBus     *eventbus.Bus
	Services     *registry.Registry
	State        *stateengine.Engine
	Storage      *storagemirror.Mirror
	Plugins      *pluginmanager.Manager
	Modules      *modulemanager.Manager
	HTTP         *httpregistry.Registry
	Integrations *integrationregistry.Registry
	Auth         *auth.Boundary
	Authz        *authz.Policy
	RequestLog   *requestlogger.Store
	Gateway      *gateway.Gateway

	router     *mux.Router
	server     *http.Server
	startedAt  time.Time
	pluginsDir string
}

// New constructs every component and wires them together, but does not
// start anything — call Start for that.
func New(cfg *config.RuntimeConfig, log *logging.Logger, pluginsDir string, newRuntime pluginmanager.RuntimeFactory) (*CoreRuntime, error) {
	ctx := context.Background()

	adapter, err := storage.NewFromEnv(ctx, cfg.StorageBackend, cfg.StorageDSN)
	if err != nil {
		return nil, err
	}
	facade := storage.NewFacade(adapter)
	state := stateengine.New()
	mirror := storagemirror.New(facade, state)

	rt := &CoreRuntime{
		Config:       cfg,
		Log:          log,
		EventBus:     eventbus.New(),
		Services:     registry.New(cfg.ServiceCallTimeout),
		State:        state,
		Storage:      mirror,
		Plugins:      pluginmanager.New(newRuntime, log),
		Modules:      modulemanager.New(log),
		HTTP:         httpregistry.New(),
		Integrations: integrationregistry.New(),
		Auth:         auth.New(facade, log),
		Authz:        authz.New(),
		RequestLog:   requestlogger.New(requestlogger.DefaultMaxOperations),
		pluginsDir:   pluginsDir,
	}

	rt.router = mux.NewRouter()
	rt.Gateway = gateway.New(rt.router, rt.HTTP, rt.Services, log)
	return rt, nil
}

// requiredModuleNames lists the built-in modules CoreRuntime.Start verifies
// are registered before proceeding, per spec §4.13.
var requiredModuleNames = []string{"logger", "requestlogger", "auth", "apigateway"}

// Start sequences startup per spec §4.13: auto-load plugins if none loaded
// yet, register REQUIRED built-in modules (done by the caller before
// calling Start — see cmd/kerneld), verify every REQUIRED module is
// present, start modules then plugins, and mark runtime.status = "running".
// Any failure during this sequence stops whatever modules did start (best
// effort, logged) and propagates the original error.
func (rt *CoreRuntime) Start(ctx context.Context) error {
	if len(rt.Plugins.ListPlugins()) == 0 {
		if err := rt.Plugins.LoadAll(ctx, rt.pluginsDir); err != nil {
			rt.Log.Warn(ctx, "auto plugin load failed", map[string]any{"error": err.Error()})
		}
	}

	if err := rt.Modules.VerifyRequired(requiredModuleNames); err != nil {
		return err
	}

	if err := rt.Modules.StartAll(ctx); err != nil {
		rt.Modules.StopAll(ctx)
		return err
	}

	if err := rt.Plugins.StartAll(ctx); err != nil {
		rt.Modules.StopAll(ctx)
		return err
	}

	rt.Gateway.MaterializeRoutes()
	rt.startedAt = time.Now()
	_ = rt.Storage.Set(ctx, runtimeStatusNamespace, runtimeStatusKey, map[string]interface{}{"status": "running"})
	return nil
}

// Stop is bounded by Config.ShutdownTimeout. It stops plugins then modules,
// closes storage, and marks runtime.status = "stopped". On timeout it
// force-flags stopped and returns the timeout error anyway.
func (rt *CoreRuntime) Stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(ctx, rt.Config.ShutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		rt.Plugins.StopAll(stopCtx)
		rt.Modules.StopAll(stopCtx)
		_ = rt.Storage.Close(stopCtx)
		close(done)
	}()

	select {
	case <-done:
		_ = rt.Storage.Set(context.Background(), runtimeStatusNamespace, runtimeStatusKey, map[string]interface{}{"status": "stopped"})
		return nil
	case <-stopCtx.Done():
		rt.State.Set(runtimeStatusNamespace+"."+runtimeStatusKey, map[string]interface{}{"status": "stopped"})
		return kernelerr.NewTimeout("runtime.stop")
	}
}

// Shutdown stops the runtime then clears every coordination primitive,
// releasing it for process exit.
func (rt *CoreRuntime) Shutdown(ctx context.Context) error {
	err := rt.Stop(ctx)
	rt.Modules.Clear()
	rt.EventBus.Clear()
	rt.Services.Clear()
	rt.State.Clear()
	return err
}

// HealthStatus is the result of HealthCheck.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Degraded  HealthStatus = "degraded"
	Unhealthy HealthStatus = "unhealthy"
)

// HealthCheck probes storage, REQUIRED modules, and plugin states.
func (rt *CoreRuntime) HealthCheck(ctx context.Context) (HealthStatus, map[string]interface{}) {
	details := map[string]interface{}{}
	status := Healthy

	if _, err := rt.Storage.ListKeys(ctx, runtimeStatusNamespace); err != nil {
		details["storage"] = err.Error()
		status = Unhealthy
	} else {
		details["storage"] = "ok"
	}

	for _, name := range requiredModuleNames {
		if !rt.Modules.IsRegistered(name) {
			details["module:"+name] = "missing"
			status = Unhealthy
		}
	}

	errorCount := 0
	for _, name := range rt.Plugins.ListPlugins() {
		if rt.Plugins.StateOf(name) == pluginmanager.Error {
			errorCount++
		}
	}
	if errorCount > 0 {
		details["plugins_in_error"] = errorCount
		if status == Healthy {
			status = Degraded
		}
	}

	return status, details
}

// Metrics reports uptime, plugin/module/service counts, HTTP endpoint
// counts by method, and storage liveness, per spec §4.13.
type Metrics struct {
	UptimeSeconds   float64
	PluginCount     int
	ModuleCount     int
	ServiceCount    int
	EndpointsByHTTP map[string]int
	StorageHealthy  bool
}

// GetMetrics gathers the introspection snapshot spec §4.13 describes.
func (rt *CoreRuntime) GetMetrics(ctx context.Context) Metrics {
	endpointsByMethod := map[string]int{}
	for _, ep := range rt.HTTP.List() {
		endpointsByMethod[ep.Method]++
	}

	_, storageErr := rt.Storage.ListKeys(ctx, runtimeStatusNamespace)

	uptime := 0.0
	if !rt.startedAt.IsZero() {
		uptime = time.Since(rt.startedAt).Seconds()
	}

	return Metrics{
		UptimeSeconds:   uptime,
		PluginCount:     len(rt.Plugins.ListPlugins()),
		ModuleCount:     len(rt.Modules.RequiredModules()),
		ServiceCount:    len(rt.Services.ListServices()),
		EndpointsByHTTP: endpointsByMethod,
		StorageHealthy:  storageErr == nil,
	}
}

// PluginRuntimeFor adapts CoreRuntime's primitives into the narrow
// plugin.Runtime surface a given plugin sees. It is the default
// RuntimeFactory CoreRuntime hands to PluginManager.
func PluginRuntimeFor(rt *CoreRuntime) pluginmanager.RuntimeFactory {
	return func(pluginName string) plugin.Runtime {
		return &pluginRuntime{name: pluginName, rt: rt}
	}
}
