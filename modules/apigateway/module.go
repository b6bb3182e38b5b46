// Package apigateway is the built-in module that owns the kernel's HTTP
// listener. It composes the security-headers, request-correlation, and
// auth middleware onto the gateway's router and starts/stops the
// http.Server bound to Config.ListenAddr — the one piece of the kernel
// that genuinely must run after every other module and plugin has had a
// chance to register its routes, hence its place last in
// CoreRuntime.requiredModuleNames.
package apigateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/homecore/kernel/internal/logging"
)

// Module owns the http.Server fronting router.
type Module struct {
	router *mux.Router
	addr   string
	log    *logging.Logger
	mw     []mux.MiddlewareFunc

	server *http.Server
}

// New constructs the apigateway module. mw is applied to router, outermost
// first, before the server starts accepting connections.
func New(router *mux.Router, addr string, log *logging.Logger, mw ...mux.MiddlewareFunc) *Module {
	return &Module{router: router, addr: addr, log: log, mw: mw}
}

func (m *Module) Name() string { return "apigateway" }

func (m *Module) Start(ctx context.Context) error {
	for _, mw := range m.mw {
		m.router.Use(mw)
	}

	m.server = &http.Server{Addr: m.addr, Handler: m.router}
	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.log.Error(context.Background(), "apigateway listener failed", err, nil)
		}
	}()
	m.log.Info(ctx, "apigateway listening", map[string]interface{}{"addr": m.addr})
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
