package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/praxis/pkg/idx"
)

// Transport logs outbound requests and stamps them with an X-Request-ID.
// The contextual logger (carrying req_id) is attached to the request context
// so inner transports can log against the same request.
func Transport(base http.RoundTripper, logger *slog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, logger: logger}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := req.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = idx.New().String()
		// RoundTrippers must not mutate the caller's request
		req = req.Clone(req.Context())
		req.Header.Set("X-Request-ID", reqID)
	}

	logger := t.logger.With(
		"req_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
	)
	req = req.WithContext(WithContext(req.Context(), logger))

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Warn("http_client_request", "error", err, "duration_ms", duration)
		return nil, err
	}

	logger.Debug("http_client_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
