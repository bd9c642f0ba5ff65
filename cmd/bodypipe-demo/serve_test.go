package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacoelho/bodypipe/internal/obs"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := newConfig("", 2, 8, "info")
	require.NoError(t, err)
	srv := httptest.NewServer(withQuery(newMux(cfg, io.Discard, prometheus.NewRegistry())))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string, error) {
	t.Helper()
	rsp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer rsp.Body.Close()
	body, err := io.ReadAll(rsp.Body)
	return rsp.StatusCode, string(body), err
}

func TestStream(t *testing.T) {
	srv := newTestServer(t)

	code, body, err := get(t, srv, "/stream?lines=3")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "line 0\nline 1\nline 2\n", body)
}

func TestStreamDelayed(t *testing.T) {
	srv := newTestServer(t)

	code, body, err := get(t, srv, "/stream?lines=2&delay=1ms")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "line 0\nline 1\n", body)
}

func TestStreamFailsBeforeOutput(t *testing.T) {
	srv := newTestServer(t)

	code, _, err := get(t, srv, "/stream?fail=0")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)

	code, _, err = get(t, srv, "/stream?lines=nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestStreamFailsMidway(t *testing.T) {
	srv := newTestServer(t)

	_, body, err := get(t, srv, "/stream?lines=5&delay=1ms&fail=2")
	require.Error(t, err)
	assert.Equal(t, "line 0\nline 1\n", body)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := get(t, srv, "/stream?lines=4")
	require.NoError(t, err)

	code, body, err := get(t, srv, "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, `bodypipe_channel_chunks_total{direction="dequeued"}`), body)
	assert.Contains(t, body, `bodypipe_channel_terminations_total{outcome="closed"} 1`)
}

func TestNewConfig(t *testing.T) {
	cfg, err := newConfig(":0", 1, 1, "DEBUG")
	require.NoError(t, err)
	assert.Equal(t, obs.Debug, cfg.level)

	_, err = newConfig(":0", 0, 1, "info")
	require.Error(t, err)
	_, err = newConfig(":0", 1, 0, "info")
	require.Error(t, err)
	_, err = newConfig(":0", 1, 1, "chatty")
	require.Error(t, err)
}
