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

	"github.com/glintlabs/glint/internal/infrastructure/config"
)

// One server per test binary: collectors register on the process-wide
// Prometheus registerer.
func TestServerEndpoints(t *testing.T) {
	cfg := config.Default()
	cfg.Session.StoreDir = t.TempDir()
	cfg.Relay.URL = ""

	srv, err := New(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status         string `json:"status"`
			ActiveSessions int    `json:"active_sessions"`
			RelayConnected bool   `json:"relay_connected"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, 0, body.ActiveSessions)
		assert.False(t, body.RelayConnected)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "glint_"))
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/nope")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
