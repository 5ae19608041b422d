package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coderun/internal/executor"
	"github.com/sakif/coderun/internal/language"
	"github.com/sakif/coderun/internal/metrics"
	"github.com/sakif/coderun/internal/server"
)

type echoExecutor struct{}

func (echoExecutor) Execute(_ context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	return &executor.ExecutionResult{Stdout: req.Stdin, Stage: executor.StageRun}, nil
}

type fixedLanguages struct{}

func (fixedLanguages) Languages() []language.Profile {
	return language.NewTable(language.DefaultToolchains()).List()
}

func newTestServer(t *testing.T, m *metrics.Metrics) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := server.New(server.Config{Port: 0, WriteTimeout: time.Minute}, logger, echoExecutor{}, fixedLanguages{}, m)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t, metrics.New())

	t.Run("execute", func(t *testing.T) {
		body := `{"code":"print(input())","language":"python","stdin":"hi"}`
		resp, err := http.Post(ts.URL+"/api/execute", "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("Content-Type"))

		var res executor.ExecutionResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "hi", res.Stdout)
	})

	t.Run("execute rejects GET", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/execute")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("languages", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/languages")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(data), "coderun_executions_in_flight")
	})
}

func TestMetricsRouteIsOptional(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
