package requestlogger

import (
	"net/http"

	"github.com/homecore/kernel/internal/logging"
)

// Middleware assigns every request an operation id — the incoming
// X-Request-ID header if present, otherwise a fresh one — publishes it into
// the request context so the logger and the traced HTTP client pick it up,
// records request metadata, and echoes it back as X-Request-ID on the
// response so a caller can correlate their own logs against the admin UI.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operationID := r.Header.Get("X-Request-ID")
		if operationID == "" {
			operationID = logging.NewOperationID()
		}

		ctx := logging.WithOperationID(r.Context(), operationID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", operationID)

		s.SetRequestMetadata(operationID, &RequestMeta{
			Method: r.Method,
			URL:    r.URL.String(),
		}, nil)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.SetRequestMetadata(operationID, nil, &ResponseMeta{Status: rec.status})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}
