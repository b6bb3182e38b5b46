package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"
)

const apiKeyNamespace = "auth_api_keys"

// lastUsedThrottle bounds how often a live key's last_used field is
// rewritten — once per minute per key, so a hot key doesn't generate a
// storage write on every single request.
const lastUsedThrottle = time.Minute

// APIKeyRecord is the persisted shape of one API key.
type APIKeyRecord struct {
	Subject   string
	UserID    string
	Scopes    []string
	IsAdmin   bool
	ExpiresAt *time.Time
	LastUsed  time.Time
}

// apiKeyLastUsedTracker throttles last_used refreshes in memory so the
// storage write only happens at most once per lastUsedThrottle per key.
type apiKeyLastUsedTracker struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newAPIKeyLastUsedTracker() *apiKeyLastUsedTracker {
	return &apiKeyLastUsedTracker{seen: make(map[string]time.Time)}
}

func (t *apiKeyLastUsedTracker) due(key string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if last, ok := t.seen[key]; ok && now.Sub(last) < lastUsedThrottle {
		return false
	}
	t.seen[key] = now
	return true
}

// GenerateAPIKey returns a fresh random API key: 32 bytes of entropy,
// URL-safe base64 encoded.
func GenerateAPIKey() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CreateAPIKey persists a new key record and returns the key string the
// caller must hand back to the holder — it is not recoverable afterward.
func (b *Boundary) CreateAPIKey(ctx context.Context, subject, userID string, scopes []string, isAdmin bool, ttl time.Duration) (string, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}
	record := map[string]interface{}{
		"subject":  subject,
		"user_id":  userID,
		"scopes":   scopes,
		"is_admin": isAdmin,
	}
	if ttl != 0 {
		expiry := time.Now().Add(ttl).UTC().Format(time.RFC3339)
		record["expires_at"] = expiry
	}
	if err := b.storage.Set(ctx, apiKeyNamespace, key, record); err != nil {
		return "", err
	}
	b.audit(ctx, "api_key_created", subject, true, map[string]interface{}{"user_id": userID})
	return key, nil
}

// ValidateAPIKey implements the spec §4.9 API-key validation sequence:
// revocation short-circuit, storage lookup with a timing-equalizing dummy
// compare on miss, expiry enforcement, and a throttled last_used refresh.
func (b *Boundary) ValidateAPIKey(ctx context.Context, key string) (*RequestContext, bool) {
	if b.IsRevoked(ctx, key, KindAPIKey) {
		return nil, false
	}

	record, found, err := b.storage.Get(ctx, apiKeyNamespace, key)
	if err != nil {
		return nil, false
	}
	if !found {
		// Equalize timing against the found-but-rejected path below.
		subtle.ConstantTimeCompare([]byte(key), []byte(key))
		return nil, false
	}

	if expiresAtStr, ok := record["expires_at"].(string); ok && expiresAtStr != "" {
		expiresAt, parseErr := time.Parse(time.RFC3339, expiresAtStr)
		if parseErr == nil && time.Now().After(expiresAt) {
			_ = b.storage.Delete(ctx, apiKeyNamespace, key)
			b.audit(ctx, "api_key_expired", key, false, nil)
			_ = b.Revoke(ctx, key, KindAPIKey)
			return nil, false
		}
	}

	subject, _ := record["subject"].(string)
	userID, _ := record["user_id"].(string)
	isAdmin, _ := record["is_admin"].(bool)
	scopeSet := scopesFromRecord(record["scopes"])

	if b.apiKeyLastUsed.due(key, time.Now()) {
		go func() {
			bgCtx := context.Background()
			record["last_used"] = time.Now().UTC().Format(time.RFC3339)
			_ = b.storage.Set(bgCtx, apiKeyNamespace, key, record)
		}()
	}

	return &RequestContext{
		Source:  SourceAPIKey,
		Subject: subject,
		UserID:  userID,
		Scopes:  scopeSet,
		IsAdmin: isAdmin,
	}, true
}
