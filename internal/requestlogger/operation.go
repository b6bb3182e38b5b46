package requestlogger

import (
	"context"

	"github.com/homecore/kernel/internal/logging"
)

// WithOperationScope is the supplemented feature (§2.3): a helper for
// background/scheduled work that is not triggered by an HTTP request. It
// mints a fresh operation id, tags it origin="system", logs operation.start,
// runs fn, logs operation.ok or operation.error depending on the outcome,
// and restores whatever operation id was previously on ctx before
// returning — so device sync, token refresh, and online-status polling
// each get their own traceable operation without borrowing an unrelated
// HTTP request's id.
func (s *Store) WithOperationScope(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	operationID := logging.NewOperationID()
	scoped := logging.WithOperationID(ctx, operationID)

	s.Log(operationID, "info", "operation.start", map[string]interface{}{"origin": "system", "name": name})
	err := fn(scoped)
	if err != nil {
		s.Log(operationID, "error", "operation.error", map[string]interface{}{"origin": "system", "name": name, "error": err.Error()})
	} else {
		s.Log(operationID, "info", "operation.ok", map[string]interface{}{"origin": "system", "name": name})
	}
	return err
}
