// Package gateway is the HTTP surface the kernel presents to the outside
// world. At the end of CoreRuntime.Start, right after modules and plugins
// have started, the gateway takes a snapshot of the HttpRegistry and
// materializes one gorilla/mux route per endpoint; there is no waiting
// period, and an endpoint registered after that snapshot gets no route. Each
// route is a generic handler that extracts path/query/body arguments,
// confirms the backing service still exists, calls it through
// ServiceRegistry, and maps the result (or error) to an HTTP response.
//
// Grounded in infrastructure/httputil's generic HandleJSON[Req,Resp]-style
// wrapper and typed-error-to-status mapping, composed over gorilla/mux
// route registration; security headers supplemented from
// original_source/modules/api/security_headers.py.
package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/homecore/kernel/internal/httpregistry"
	internalhttputil "github.com/homecore/kernel/internal/httputil"
	"github.com/homecore/kernel/internal/kernelerr"
	"github.com/homecore/kernel/internal/logging"
	"github.com/homecore/kernel/internal/registry"
)

// Gateway materializes HttpRegistry endpoints into a gorilla/mux router
// backed by a ServiceRegistry.
type Gateway struct {
	router   *mux.Router
	http     *httpregistry.Registry
	services *registry.Registry
	log      *logging.Logger
}

// New constructs a Gateway. router is typically mux.NewRouter(); the caller
// owns wiring it into an http.Server.
func New(router *mux.Router, httpReg *httpregistry.Registry, serviceReg *registry.Registry, log *logging.Logger) *Gateway {
	return &Gateway{router: router, http: httpReg, services: serviceReg, log: log}
}

// MaterializeRoutes snapshots the HttpRegistry and registers one mux route
// per endpoint. It is not idempotent: calling it twice registers every route
// twice. CoreRuntime.Start calls it once, right after modules and plugins
// have started.
func (g *Gateway) MaterializeRoutes() {
	for _, endpoint := range g.http.List() {
		ep := endpoint
		g.router.HandleFunc(ep.Path, g.handlerFor(ep)).Methods(ep.Method)
	}
}

// Router exposes the underlying mux.Router, e.g. for mounting the admin
// live-tail websocket alongside generated routes.
func (g *Gateway) Router() *mux.Router {
	return g.router
}

func (g *Gateway) handlerFor(ep httpregistry.Endpoint) http.HandlerFunc {
	paramNames := pathParamNames(ep.Path)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if !g.services.HasService(ep.Service) {
			internalhttputil.WriteErrorResponse(w, r, http.StatusNotFound, "UNKNOWN_SERVICE", "backing service not registered", nil)
			return
		}

		args := registry.Args{Named: map[string]any{}}

		vars := mux.Vars(r)
		for _, name := range paramNames {
			if value, ok := vars[name]; ok {
				args.Named[name] = value
				args.Positional = append(args.Positional, value)
			}
		}

		for key, values := range r.URL.Query() {
			if len(values) == 1 {
				args.Named[key] = values[0]
			} else {
				args.Named[key] = values
			}
		}

		if r.Body != nil && r.ContentLength != 0 {
			var body interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				args.Named["body"] = body
			}
		}

		result, err := g.services.Call(ctx, ep.Service, args)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		internalhttputil.WriteJSON(w, http.StatusOK, result)
	}
}

// pathParamNames extracts the {name} tokens from ep.Path in left-to-right
// order, so the service can be called with its path params ordered the same
// way the route itself orders them — mux.Vars returns a map, which has no
// stable iteration order of its own.
func pathParamNames(path string) []string {
	var names []string
	for {
		start := strings.IndexByte(path, '{')
		if start == -1 {
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end == -1 {
			break
		}
		token := path[start+1 : start+end]
		if colon := strings.IndexByte(token, ':'); colon != -1 {
			token = token[:colon]
		}
		names = append(names, token)
		path = path[start+end+1:]
	}
	return names
}

// writeServiceError maps a service call's error to the status codes spec
// §4.11 requires: InvalidInput -> 400, Timeout -> 504, UnknownService ->
// 404, Unauthorized/Unauthenticated -> 403, anything else -> 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kerr, ok := kernelerr.As(err)
	if !ok {
		internalhttputil.WriteErrorResponse(w, r, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}

	status := kerr.HTTPStatus
	switch kerr.Code {
	case kernelerr.Timeout:
		status = http.StatusGatewayTimeout
	case kernelerr.Unauthorized, kernelerr.Unauthenticated:
		status = http.StatusForbidden
	}
	internalhttputil.WriteErrorResponse(w, r, status, string(kerr.Code), kerr.Message, kerr.Details)
}
