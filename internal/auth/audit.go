package auth

import (
	"context"
	"fmt"
	"time"
)

const auditNamespace = "auth_audit_log"

// auditRecordKey builds the "millis_sha256(subject)[:16]" key the spec
// requires, millisecond-granular so two events in the same millisecond for
// different subjects never collide in practice.
func auditRecordKey(now time.Time, subject string) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), truncate(sha256Hex(subject), 16))
}

// audit writes one record for a validation outcome, rate-limit trip, or
// create/rotate/revoke action. Audit failures are logged, never
// propagated — an audit-log outage must not block the operation it would
// have recorded.
func (b *Boundary) audit(ctx context.Context, eventType, subject string, success bool, details map[string]interface{}) {
	now := time.Now().UTC()
	record := map[string]interface{}{
		"timestamp":  now.Format(time.RFC3339),
		"event_type": eventType,
		"subject":    truncate(subject, 16),
		"success":    success,
		"details":    details,
	}
	if err := b.storage.Set(ctx, auditNamespace, auditRecordKey(now, subject), record); err != nil && b.log != nil {
		b.log.Warn(ctx, "audit write failed", map[string]any{"event_type": eventType, "error": err.Error()})
	}
}
