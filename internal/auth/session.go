package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

const (
	sessionNamespace = "auth_sessions"
	userNamespace    = "auth_users"
)

// DefaultSessionTTL is how long a newly created session lives absent an
// explicit override.
const DefaultSessionTTL = 24 * time.Hour

// GenerateSessionID returns a fresh random session identifier.
func GenerateSessionID() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CreateSession persists a new session bound to userID and returns its id.
func (b *Boundary) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	sessionID, err := GenerateSessionID()
	if err != nil {
		return "", err
	}
	record := map[string]interface{}{
		"user_id":    userID,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	}
	if err := b.storage.Set(ctx, sessionNamespace, sessionID, record); err != nil {
		return "", err
	}
	b.audit(ctx, "session_created", userID, true, nil)
	return sessionID, nil
}

// ValidateSession implements the spec §4.9 session validation sequence:
// revocation check, storage lookup, expiration enforcement, a linked-user
// lookup for scopes/admin flag, and a throttled last_used refresh. If the
// linked user record is absent, the session itself is deleted too — a
// session can never outlive the account it authenticates.
func (b *Boundary) ValidateSession(ctx context.Context, sessionID string) (*RequestContext, bool) {
	if b.IsRevoked(ctx, sessionID, KindSession) {
		return nil, false
	}

	session, found, err := b.storage.Get(ctx, sessionNamespace, sessionID)
	if err != nil || !found {
		return nil, false
	}

	if expiresAtStr, ok := session["expires_at"].(string); ok {
		expiresAt, parseErr := time.Parse(time.RFC3339, expiresAtStr)
		if parseErr == nil && time.Now().After(expiresAt) {
			_ = b.storage.Delete(ctx, sessionNamespace, sessionID)
			_ = b.Revoke(ctx, sessionID, KindSession)
			return nil, false
		}
	}

	userID, _ := session["user_id"].(string)
	user, userFound, err := b.storage.Get(ctx, userNamespace, userID)
	if err != nil {
		return nil, false
	}
	if !userFound {
		_ = b.storage.Delete(ctx, sessionNamespace, sessionID)
		return nil, false
	}

	if b.apiKeyLastUsed.due("session:"+sessionID, time.Now()) {
		go func() {
			bgCtx := context.Background()
			session["last_used"] = time.Now().UTC().Format(time.RFC3339)
			_ = b.storage.Set(bgCtx, sessionNamespace, sessionID, session)
		}()
	}

	isAdmin, _ := user["is_admin"].(bool)
	scopeSet := scopesFromRecord(user["scopes"])

	return &RequestContext{
		Source:    SourceSession,
		Subject:   userID,
		UserID:    userID,
		SessionID: sessionID,
		Scopes:    scopeSet,
		IsAdmin:   isAdmin,
	}, true
}
