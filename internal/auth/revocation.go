package auth

import (
	"context"
	"time"
)

const revocationNamespace = "auth_revoked"

// CredentialKind distinguishes what was revoked, so IsRevoked can be asked
// "is this specific refresh token/key/session revoked" without colliding
// hashes across kinds that might coincide.
type CredentialKind string

const (
	KindJWT     CredentialKind = "refresh_token"
	KindAPIKey  CredentialKind = "api_key"
	KindSession CredentialKind = "session"
)

// Revoker maintains the unified revocation namespace keyed by
// sha256(credential), tagged with its kind.
type Revoker struct {
	auth *Boundary
}

func revocationRecordKey(credential string) string {
	return sha256Hex(credential)
}

// Revoke writes a revocation record for credential and best-effort deletes
// the live credential record from its own table (api key or session). The
// best-effort delete failing does not fail Revoke itself — the revocation
// record alone is sufficient for IsRevoked to deny it from here on.
func (b *Boundary) Revoke(ctx context.Context, credential string, kind CredentialKind) error {
	key := revocationRecordKey(credential)
	record := map[string]interface{}{
		"type":       string(kind),
		"revoked_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := b.storage.Set(ctx, revocationNamespace, key, record); err != nil {
		return err
	}

	switch kind {
	case KindAPIKey:
		_ = b.storage.Delete(ctx, apiKeyNamespace, credential)
	case KindSession:
		_ = b.storage.Delete(ctx, sessionNamespace, credential)
	}

	b.audit(ctx, "credential_revoked", credential, true, map[string]interface{}{"kind": string(kind)})
	return nil
}

// IsRevoked reports whether credential has a revocation record of kind.
func (b *Boundary) IsRevoked(ctx context.Context, credential string, kind CredentialKind) bool {
	record, found, err := b.storage.Get(ctx, revocationNamespace, revocationRecordKey(credential))
	if err != nil || !found {
		return false
	}
	recordedKind, _ := record["type"].(string)
	return recordedKind == string(kind)
}
