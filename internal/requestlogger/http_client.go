package requestlogger

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/homecore/kernel/internal/logging"
)

const bodySummaryLimit = 2048

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// tracedRoundTripper wraps an http.RoundTripper with a tracing hook that
// records method, URL, duration, and a truncated response-body summary
// tagged with the caller's operation id — grounded on
// infrastructure/serviceauth.ServiceTokenRoundTripper's clone-and-wrap
// technique, generalized from token injection to tracing.
type tracedRoundTripper struct {
	base  http.RoundTripper
	store *Store
}

// NewTracedClient wraps base (http.DefaultTransport if nil) with the traced
// RoundTripper, returning a ready-to-use *http.Client.
func NewTracedClient(base http.RoundTripper, store *Store) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &tracedRoundTripper{base: base, store: store}}
}

func (t *tracedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	operationID := logging.GetOperationID(req.Context())
	start := time.Now()

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if operationID == "" {
		return resp, err
	}

	if err != nil {
		t.store.Log(operationID, "error", "http.client.error", map[string]interface{}{
			"method": req.Method,
			"url":    req.URL.String(),
			"error":  err.Error(),
		})
		return resp, err
	}

	bodySummary := ""
	if resp.Body != nil {
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil {
			bodySummary = truncate(string(raw), bodySummaryLimit)
			// Restore a fresh reader over the full body so application code
			// can still consume it normally — it was read once here only to
			// produce the log summary.
			resp.Body = io.NopCloser(bytes.NewReader(raw))
		}
	}

	t.store.SetRequestMetadata(operationID, &RequestMeta{
		Method:      req.Method,
		URL:         req.URL.String(),
		BodySummary: bodySummary,
	}, &ResponseMeta{Status: resp.StatusCode, Duration: duration})

	return resp, err
}
