package slogx_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/praxis/pkg/idx"
	"github.com/aussiebroadwan/praxis/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestTransportStampsRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Level: "debug", Output: &buf})
	client := &http.Client{Transport: slogx.Transport(nil, logger)}

	resp, err := client.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = idx.Parse(seen)
	require.NoError(t, err, "request id should be a ULID")
	require.Contains(t, buf.String(), "http_client_request")
	require.Contains(t, buf.String(), seen)
}

func TestTransportKeepsExistingRequestID(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))
	t.Cleanup(srv.Close)

	client := &http.Client{Transport: slogx.Transport(nil, slogx.Discard())}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "caller-chosen")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "caller-chosen", seen)
}
