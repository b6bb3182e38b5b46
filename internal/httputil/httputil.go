// Package httputil collects the small HTTP response/request helpers every
// handler in the gateway and the built-in modules shares, so no handler
// hand-rolls its own JSON envelope or client-IP extraction.
//
// Covers a WriteJSON/WriteErrorResponse envelope shape, DecodeJSON, and
// query-param helpers, plus trusted-proxy ClientIP extraction. Deliberately
// has no service-identity/mTLS concerns — those have no home in a
// domain-free kernel.
package httputil

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/homecore/kernel/internal/logging"
)

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Operation string      `json:"operation_id,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the standard error envelope, tagging it with
// the request's operation id when one was attached by RequestLogger.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details interface{}) {
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", status)
	}
	var opID string
	if r != nil {
		opID = logging.GetOperationID(r.Context())
	}
	WriteJSON(w, status, ErrorResponse{Code: code, Message: message, Details: details, Operation: opID})
}

// DecodeJSON decodes the request body into v, writing a 400 response and
// returning false on failure.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteErrorResponse(w, r, http.StatusBadRequest, "INVALID_BODY", "invalid request body", nil)
		return false
	}
	return true
}

// ClientIP extracts the best-effort client IP: trusts X-Forwarded-For /
// X-Real-IP only when the direct peer is on a private/loopback network
// (the typical shape of a request arriving through an ingress proxy),
// otherwise falls back to the direct peer address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	remoteIP := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remoteIP); err == nil {
		remoteIP = host
	}

	parsed := net.ParseIP(remoteIP)
	trustForwarded := parsed != nil && (parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast())
	if trustForwarded {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			if candidate := strings.TrimSpace(strings.Split(xff, ",")[0]); candidate != "" {
				if host, _, err := net.SplitHostPort(candidate); err == nil {
					candidate = host
				}
				return candidate
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	return remoteIP
}

// QueryInt extracts an integer query parameter, falling back to defaultVal.
func QueryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(val); err == nil {
		return n
	}
	return defaultVal
}

// QueryString extracts a string query parameter, falling back to defaultVal.
func QueryString(r *http.Request, key, defaultVal string) string {
	if val := r.URL.Query().Get(key); val != "" {
		return val
	}
	return defaultVal
}
