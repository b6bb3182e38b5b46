// Package httpregistry is the declarative catalog of HTTP contracts plugins
// register during OnLoad. It knows nothing about gorilla/mux or any running
// server — that binding happens in internal/gateway, which takes a snapshot
// of this catalog and materializes one live route per endpoint.
//
// Grounded in infrastructure/service's declarative route-descriptor style
// (HealthHandler/ReadinessHandler-style standard handlers registered against
// a BaseService), generalized here into a standalone catalog independent of
// any particular router.
package httpregistry

import (
	"strings"

	"github.com/homecore/kernel/internal/kernelerr"
)

// Endpoint is one HTTP contract: a method+path pair bound to a service name.
type Endpoint struct {
	Method      string
	Path        string
	Service     string
	Description string
	Version     string
	Deprecated  bool
}

type key struct {
	method string
	path   string
}

// Registry is the HttpRegistry coordination surface. The zero value is not
// usable; construct with New.
type Registry struct {
	endpoints map[key]*Endpoint
	order     []key
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{endpoints: make(map[key]*Endpoint)}
}

// NormalizePath removes a trailing slash except at root, matching the
// spec's normalization rule.
func NormalizePath(path string) string {
	if path != "/" && strings.HasSuffix(path, "/") {
		return strings.TrimSuffix(path, "/")
	}
	return path
}

// Register validates and adds endpoint to the catalog, rejecting a duplicate
// (method, normalized path) pair. version, when non-empty, is prefixed onto
// the path as a leading "/vN" segment.
func (r *Registry) Register(endpoint Endpoint) error {
	if endpoint.Method == "" {
		return kernelerr.NewInvalidInput("method", "must not be empty")
	}
	if !strings.HasPrefix(endpoint.Path, "/") {
		return kernelerr.NewInvalidInput("path", "must start with /")
	}
	if endpoint.Service == "" {
		return kernelerr.NewInvalidInput("service", "must not be empty")
	}

	method := strings.ToUpper(endpoint.Method)
	path := NormalizePath(endpoint.Path)
	if endpoint.Version != "" {
		path = NormalizePath("/" + endpoint.Version + path)
	}

	k := key{method: method, path: path}
	if _, exists := r.endpoints[k]; exists {
		return kernelerr.NewConflict("duplicate endpoint: " + method + " " + path)
	}

	endpoint.Method = method
	endpoint.Path = path
	r.endpoints[k] = &endpoint
	r.order = append(r.order, k)
	return nil
}

// List returns a snapshot of every registered endpoint, in registration order.
func (r *Registry) List() []Endpoint {
	out := make([]Endpoint, 0, len(r.order))
	for _, k := range r.order {
		if e, ok := r.endpoints[k]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// ownerOf returns the first dotted segment of a service name, which the
// spec treats as the owning plugin name.
func ownerOf(serviceName string) string {
	if idx := strings.Index(serviceName, "."); idx >= 0 {
		return serviceName[:idx]
	}
	return serviceName
}

// Clear removes every endpoint owned by pluginName (inferred from the first
// dotted segment of the endpoint's service name). An empty pluginName clears
// every endpoint.
func (r *Registry) Clear(pluginName string) {
	if pluginName == "" {
		r.endpoints = make(map[key]*Endpoint)
		r.order = nil
		return
	}
	newOrder := r.order[:0]
	for _, k := range r.order {
		e, ok := r.endpoints[k]
		if !ok {
			continue
		}
		if ownerOf(e.Service) == pluginName {
			delete(r.endpoints, k)
			continue
		}
		newOrder = append(newOrder, k)
	}
	r.order = newOrder
}

// GetVersions returns the distinct non-empty versions registered for a
// service name.
func (r *Registry) GetVersions(serviceName string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.endpoints {
		if e.Service == serviceName && e.Version != "" && !seen[e.Version] {
			seen[e.Version] = true
			out = append(out, e.Version)
		}
	}
	return out
}

// MarkDeprecated flags every endpoint bound to serviceName as deprecated.
func (r *Registry) MarkDeprecated(serviceName string) {
	for _, e := range r.endpoints {
		if e.Service == serviceName {
			e.Deprecated = true
		}
	}
}

// IsDeprecated reports whether any endpoint bound to serviceName is
// deprecated.
func (r *Registry) IsDeprecated(serviceName string) bool {
	for _, e := range r.endpoints {
		if e.Service == serviceName && e.Deprecated {
			return true
		}
	}
	return false
}

// OpenAPISchema renders an advisory OpenAPI-ish document describing the
// registered catalog. It has no runtime dependency on correctness of the
// services it describes; it exists purely for human/tool consumption.
func (r *Registry) OpenAPISchema() map[string]any {
	paths := make(map[string]any)
	for _, k := range r.order {
		e, ok := r.endpoints[k]
		if !ok {
			continue
		}
		methods, ok := paths[e.Path].(map[string]any)
		if !ok {
			methods = make(map[string]any)
			paths[e.Path] = methods
		}
		methods[strings.ToLower(e.Method)] = map[string]any{
			"operationId": e.Service,
			"description": e.Description,
			"deprecated":  e.Deprecated,
		}
	}
	return map[string]any{
		"openapi": "3.0.0",
		"info":    map[string]any{"title": "kernel", "version": "1"},
		"paths":   paths,
	}
}
