package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arwahdevops/vaultprovider/internal/config"
	"github.com/arwahdevops/vaultprovider/internal/metrics"
	"github.com/arwahdevops/vaultprovider/internal/provider"
)

type fixedState provider.State

func (s fixedState) State() provider.State { return provider.State(s) }

func get(t *testing.T, handler http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestReadyz(t *testing.T) {
	testCases := []struct {
		name   string
		state  provider.State
		status int
		body   string
	}{
		{"Ready", provider.Ready, http.StatusOK, "Ready"},
		{"Unconfigured", provider.Unconfigured, http.StatusServiceUnavailable, "provider_state=unconfigured"},
		{"Authenticating", provider.Authenticating, http.StatusServiceUnavailable, "provider_state=authenticating"},
		{"Failed", provider.Failed, http.StatusServiceUnavailable, "provider_state=failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := NewMux(&config.HostConfig{}, metrics.NewMetricsStore(), fixedState(tc.state), zaptest.NewLogger(t))
			status, body := get(t, mux, "/readyz")
			assert.Equal(t, tc.status, status)
			assert.Contains(t, body, tc.body)
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	store := metrics.NewMetricsStore()
	store.ObserveRead("200", 0)
	mux := NewMux(&config.HostConfig{}, store, fixedState(provider.Ready), zaptest.NewLogger(t))

	status, body := get(t, mux, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", strings.TrimSpace(body))

	status, body = get(t, mux, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `vaultprovider_reads_total{status="200"} 1`)
}

func TestSchemaEndpoint(t *testing.T) {
	mux := NewMux(&config.HostConfig{}, metrics.NewMetricsStore(), fixedState(provider.Ready), zaptest.NewLogger(t))

	status, body := get(t, mux, "/schema")
	require.Equal(t, http.StatusOK, status)

	var keys []config.KeyDescriptor
	require.NoError(t, json.Unmarshal([]byte(body), &keys))
	assert.Len(t, keys, len(config.Schema()))
}

func TestPprofToggle(t *testing.T) {
	disabled := NewMux(&config.HostConfig{}, metrics.NewMetricsStore(), fixedState(provider.Ready), zaptest.NewLogger(t))
	status, _ := get(t, disabled, "/debug/pprof/")
	assert.Equal(t, http.StatusNotFound, status)

	enabled := NewMux(&config.HostConfig{EnablePprof: true}, metrics.NewMetricsStore(), fixedState(provider.Ready), zaptest.NewLogger(t))
	status, _ = get(t, enabled, "/debug/pprof/")
	assert.Equal(t, http.StatusOK, status)
}
