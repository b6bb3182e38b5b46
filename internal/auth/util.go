package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// sha256Hex hashes s and returns its hex digest, used to key revocation,
// rate-limit, and audit records without storing the raw credential.
func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// truncate shortens s to at most n runes, used everywhere a subject or
// identifier is written into an audit record or a log line.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// scopesFromRecord normalizes a scopes field read back out of storage into
// a set. Storage may hand back []string (memory adapter, which clones
// values without re-encoding them) or []interface{} (SQL adapter, which
// round-trips through JSON), so both are accepted.
func scopesFromRecord(raw interface{}) map[string]bool {
	scopeSet := make(map[string]bool)
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			scopeSet[s] = true
		}
	case []interface{}:
		for _, s := range v {
			if str, ok := s.(string); ok {
				scopeSet[str] = true
			}
		}
	}
	return scopeSet
}
