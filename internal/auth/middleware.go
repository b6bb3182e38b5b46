package auth

import (
	"net/http"
	"strconv"
	"strings"

	internalhttputil "github.com/homecore/kernel/internal/httputil"
)

// adminAuthPrefix marks the paths the strict "auth" rate-limit bucket
// applies to even before any credential has been validated.
const adminAuthPrefix = "/admin/auth/"

var sensitiveHeaders = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key"}

// RedactSensitiveHeaders returns a copy of headers with every
// sensitive-header value replaced by "***", for safe inclusion in logs.
func RedactSensitiveHeaders(headers http.Header) http.Header {
	redacted := headers.Clone()
	for _, name := range sensitiveHeaders {
		if redacted.Get(name) != "" {
			redacted.Set(name, "***")
		}
	}
	return redacted
}

// clientIdentifier picks the rate-limit identifier for r: the
// authenticated subject if one is known, otherwise the client IP.
func clientIdentifier(r *http.Request, rc *RequestContext) string {
	if rc != nil && rc.Subject != "" {
		return rc.Subject
	}
	return internalhttputil.ClientIP(r)
}

// Authenticate runs the spec §4.9 credential-acquisition sequence against r:
// Bearer JWT, then Bearer API key, then the session_id cookie, in that
// order. It returns (nil, true) for an anonymous request with no
// credentials presented at all — that is not a failure, just anonymity —
// and (nil, false) when a credential was presented but every validator
// rejected it.
func (b *Boundary) Authenticate(r *http.Request) (*RequestContext, bool) {
	ctx := r.Context()

	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		if looksLikeJWT(token) {
			rc, ok := b.jwt.ValidateJWT(ctx, token)
			return rc, ok
		}
		rc, ok := b.ValidateAPIKey(ctx, token)
		return rc, ok
	}

	if cookie, err := r.Cookie("session_id"); err == nil && cookie.Value != "" {
		rc, ok := b.ValidateSession(ctx, cookie.Value)
		return rc, ok
	}

	return nil, true
}

// Middleware is the HTTP middleware the gateway installs in front of every
// route. It authenticates the request, applies the auth/api rate-limit
// buckets, and attaches the resulting RequestContext (possibly nil, meaning
// anonymous) to the request context for downstream authz checks.
func (b *Boundary) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		bucket := BucketAPI
		if strings.HasPrefix(r.URL.Path, adminAuthPrefix) {
			bucket = BucketAuth
		}

		rc, ok := b.Authenticate(r)
		if !ok {
			bucket = BucketAuth
		}
		if rc != nil {
			bucket = BucketAPI
		}

		result := b.CheckRateLimit(ctx, bucket, clientIdentifier(r, rc))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			w.Header().Set("Retry-After", RetryAfterHeader(result.RetryAfter))
			internalhttputil.WriteErrorResponse(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}

		if !ok {
			b.audit(ctx, "auth_rejected", clientIdentifier(r, nil), false, map[string]interface{}{"path": r.URL.Path})
		}

		r = r.WithContext(WithRequestContext(ctx, rc))
		next.ServeHTTP(w, r)
	})
}
