// Command kerneld is the kernel's process entry point: it loads
// RuntimeConfig from the environment, constructs a CoreRuntime, registers
// the REQUIRED and OPTIONAL built-in modules (spec §4.8), starts the
// runtime, and blocks until SIGINT/SIGTERM, at which point it shuts down
// within Config.ShutdownTimeout.
//
// Flag-overridable listen address, context.Background() root context,
// signal.Notify on SIGINT/SIGTERM, and a bounded shutdown context.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/homecore/kernel/internal/config"
	"github.com/homecore/kernel/internal/gateway"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/plugin"
	"github.com/homecore/kernel/internal/pluginmanager"
	"github.com/homecore/kernel/internal/runtime"
	"github.com/homecore/kernel/modules/admin"
	"github.com/homecore/kernel/modules/apigateway"
	authmodule "github.com/homecore/kernel/modules/auth"
	"github.com/homecore/kernel/modules/integrations"
	loggermodule "github.com/homecore/kernel/modules/logger"
	requestloggermodule "github.com/homecore/kernel/modules/requestlogger"
	"github.com/homecore/kernel/modules/scheduler"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides RUNTIME_LISTEN_ADDR)")
	pluginsDir := flag.String("plugins", "./plugins", "directory to discover plugin.json manifests under")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if trimmed := strings.TrimSpace(*addr); trimmed != "" {
		cfg.ListenAddr = trimmed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := logging.New("kerneld", cfg.LogLevel, cfg.LogFormat)

	// PluginRuntimeFor needs the *CoreRuntime that New is about to build, so
	// the factory handed to New is a thin indirection filled in immediately
	// after construction — the plugin manager does not invoke it until
	// Start loads plugins, well after rtFactory is assigned.
	var rtFactory pluginmanager.RuntimeFactory
	rt, err := runtime.New(cfg, logger, *pluginsDir, func(name string) plugin.Runtime {
		return rtFactory(name)
	})
	if err != nil {
		log.Fatalf("construct runtime: %v", err)
	}
	rtFactory = runtime.PluginRuntimeFor(rt)

	if err := registerBuiltinModules(rt, cfg); err != nil {
		log.Fatalf("register built-in modules: %v", err)
	}

	rootCtx := context.Background()
	if err := rt.Start(rootCtx); err != nil {
		log.Fatalf("start runtime: %v", err)
	}
	logger.Info(rootCtx, "kernel running", map[string]interface{}{"addr": cfg.ListenAddr, "env": string(cfg.Env)})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(rootCtx, cfg.ShutdownTimeout)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}

// registerBuiltinModules registers every kernel module against rt.Modules,
// REQUIRED ones first so a failure there is attributable to the module
// that actually matters, per spec §4.8's REQUIRED/OPTIONAL split.
//
// logger, requestlogger, auth, and apigateway are REQUIRED: the runtime
// refuses to start without structured logging, request correlation,
// credential validation, or an HTTP listener. scheduler, integrations, and
// admin are OPTIONAL: the kernel still does its job without cron-style
// plugin scheduling, process-health sampling, or its own introspection
// surface.
func registerBuiltinModules(rt *runtime.CoreRuntime, cfg *config.RuntimeConfig) error {
	loggerMod := loggermodule.New(rt.Log)
	if err := rt.Modules.Register(loggerMod, true); err != nil {
		return err
	}

	reqLogMod := requestloggermodule.New(rt.RequestLog, rt.Services, rt.HTTP, rt.Gateway.Router(), rt.Log)
	if err := rt.Modules.Register(reqLogMod, true); err != nil {
		return err
	}

	authMod := authmodule.New(rt.Auth, rt.Services, rt.HTTP, rt.Log)
	if err := rt.Modules.Register(authMod, true); err != nil {
		return err
	}

	apiMod := apigateway.New(rt.Gateway.Router(), cfg.ListenAddr, rt.Log,
		gateway.SecurityHeaders(gateway.SecurityHeadersConfig{Production: cfg.IsProduction()}),
		rt.RequestLog.Middleware,
		rt.Auth.Middleware,
	)
	if err := rt.Modules.Register(apiMod, true); err != nil {
		return err
	}

	schedulerMod := scheduler.New(rt.EventBus, rt.Services, rt.Log)
	if err := rt.Modules.Register(schedulerMod, false); err != nil {
		return err
	}

	integrationsMod := integrations.New(rt.Integrations, prometheus.DefaultRegisterer, rt.Log)
	if err := rt.Modules.Register(integrationsMod, false); err != nil {
		return err
	}

	adminMod := admin.New(
		func(ctx context.Context) (string, map[string]interface{}) {
			status, detail := rt.HealthCheck(ctx)
			return string(status), detail
		},
		func(ctx context.Context) any { return rt.GetMetrics(ctx) },
		rt.Services, rt.HTTP,
	)
	if err := rt.Modules.Register(adminMod, false); err != nil {
		return err
	}

	return nil
}
