// Package auth is the request-authentication boundary: JWT, API-key, and
// session validation, the two rate-limit buckets, credential revocation,
// audit logging, and password management. It runs exclusively as HTTP
// middleware in front of the gateway — it never enters ServiceRegistry or
// plugin code, and plugins never import it directly.
//
// Grounded in infrastructure/serviceauth (JWT claims shape, golang-jwt/jwt/v5
// usage), infrastructure/middleware.RateLimiter (per-key golang.org/x/time/rate
// limiter map), infrastructure/redaction.Redactor (log/header scrubbing), and
// golang.org/x/crypto/bcrypt for password hashing.
package auth

import "context"

// Source records which credential kind produced a RequestContext.
type Source string

const (
	SourceJWT     Source = "jwt"
	SourceAPIKey  Source = "api_key"
	SourceSession Source = "session"
)

// RequestContext is the outcome of successful credential validation. A nil
// *RequestContext means "no credentials presented or all three failed
// validation" — callers must treat nil as anonymous, never as an error.
type RequestContext struct {
	Source    Source
	Subject   string
	UserID    string
	SessionID string
	Scopes    map[string]bool
	IsAdmin   bool
}

// HasScope reports whether ctx carries scope exactly, the "*" wildcard, or
// the "namespace.*" wildcard covering scope's namespace.
func (rc *RequestContext) HasScope(scope string) bool {
	if rc == nil {
		return false
	}
	if rc.Scopes["*"] || rc.Scopes[scope] {
		return true
	}
	for i := len(scope) - 1; i >= 0; i-- {
		if scope[i] == '.' {
			if rc.Scopes[scope[:i]+".*"] {
				return true
			}
			break
		}
	}
	return false
}

type ctxKey string

const requestContextKey ctxKey = "auth_request_context"

// WithRequestContext attaches rc (which may be nil, representing an
// anonymous caller) to ctx.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext extracts the RequestContext middleware.go attached, or nil if
// none was attached (e.g. the request reached a handler that bypasses auth
// middleware entirely).
func FromContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey).(*RequestContext)
	return rc
}
