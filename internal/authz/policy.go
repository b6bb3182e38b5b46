// Package authz is the pure, side-effect-free authorization policy layer
// above the auth boundary: a static action -> required-scope map plus
// Check/Require. It never touches storage or the network.
//
// Grounded in the scope-carrying claims design visible in
// infrastructure/serviceauth, generalized into a standalone static map.
package authz

import (
	"strings"

	"github.com/homecore/kernel/internal/auth"
	"github.com/homecore/kernel/internal/kernelerr"
)

// ScopeMap is action -> required scope. Admin-prefixed actions (by
// convention, "admin.*") are handled separately from this map: they require
// the admin.* scope or RequestContext.IsAdmin, never a mapped action scope.
type ScopeMap map[string]string

// DefaultScopes is the kernel's built-in action->scope table. Plugins may
// extend a Policy with their own entries via WithScopes.
var DefaultScopes = ScopeMap{
	"devices.list":            "devices.read",
	"devices.get":             "devices.read",
	"devices.set_state":       "devices.write",
	"devices.create":          "devices.write",
	"devices.delete":          "devices.write",
	"automation.list":         "automation.read",
	"automation.create":       "automation.write",
	"automation.delete":       "automation.write",
	"integrations.list":       "integrations.read",
	"integrations.configure":  "integrations.write",
}

// Policy maps actions to required scopes and checks a RequestContext
// against that map.
type Policy struct {
	scopes ScopeMap
}

// New constructs a Policy from DefaultScopes.
func New() *Policy {
	return &Policy{scopes: DefaultScopes}
}

// WithScopes returns a Policy whose map is the union of p's scopes and
// extra, with extra taking precedence on key collision.
func (p *Policy) WithScopes(extra ScopeMap) *Policy {
	merged := make(ScopeMap, len(p.scopes)+len(extra))
	for k, v := range p.scopes {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &Policy{scopes: merged}
}

func hasScope(scopes map[string]bool, required string) bool {
	if scopes["*"] {
		return true
	}
	if scopes[required] {
		return true
	}
	if idx := strings.Index(required, "."); idx >= 0 {
		namespace := required[:idx]
		if scopes[namespace+".*"] {
			return true
		}
	}
	return false
}

// Check reports whether ctx is authorized to perform action, per spec §4.10:
//   - nil context -> false
//   - ctx.IsAdmin -> true
//   - ctx carries scope "*" -> true
//   - action has the "admin." prefix -> requires scope "admin.*" (IsAdmin
//     already short-circuited above)
//   - action is in the scope map -> satisfied by exact match or
//     "namespace.*" wildcard
//   - action is unmapped -> false
//
// resource is accepted for future per-object ACLs but currently ignored.
func (p *Policy) Check(ctx *auth.RequestContext, action string, resource string) bool {
	if ctx == nil {
		return false
	}
	if ctx.IsAdmin {
		return true
	}
	if ctx.Scopes["*"] {
		return true
	}
	if strings.HasPrefix(action, "admin.") {
		return hasScope(ctx.Scopes, "admin.*")
	}
	required, ok := p.scopes[action]
	if !ok {
		return false
	}
	return hasScope(ctx.Scopes, required)
}

// Require is Check but returns a kernelerr.Unauthorized/Unauthenticated
// error instead of a bool.
func (p *Policy) Require(ctx *auth.RequestContext, action string, resource string) error {
	if ctx == nil {
		return kernelerr.NewUnauthenticated("no credentials presented")
	}
	if !p.Check(ctx, action, resource) {
		return kernelerr.NewUnauthorized(action)
	}
	return nil
}
