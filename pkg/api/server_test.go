package api

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterRequiresAPIKey(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(NewRouter(server))
	defer ts.Close()

	tests := []struct {
		name           string
		path           string
		key            string
		expectedStatus int
	}{
		{"health with key", "/api/v1/health", "test-key", http.StatusOK},
		{"health without key", "/api/v1/health", "", http.StatusUnauthorized},
		{"health with wrong key", "/api/v1/health", "nope", http.StatusUnauthorized},
		{"metrics are open", "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest("GET", ts.URL+tt.path, nil)
			require.NoError(t, err)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(server.metrics.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(server.metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestRouterStateFlow(t *testing.T) {
	server, _ := setupTestServer(t)
	ts := httptest.NewServer(NewRouter(server))
	defer ts.Close()

	post := func(path, body string) *http.Response {
		req, err := http.NewRequest("POST", ts.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("X-API-Key", "test-key")
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := post("/api/v1/accounts/"+testPayer.String()+"/airdrop", `{"lamports": 1000000000}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post("/api/v1/state", `{"payer":"`+testPayer.String()+`","owner":"`+testOwner.String()+`"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post("/api/v1/state", `{"payer":"`+testPayer.String()+`","owner":"`+testOwner.String()+`"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	m := server.metrics
	assert.Equal(t, float64(1), testutil.ToFloat64(m.instructionsTotal.WithLabelValues("ok", "0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.instructionsTotal.WithLabelValues("failed", "AlreadyInitialized")))
	assert.Equal(t, float64(1_000_000_000), testutil.ToFloat64(m.airdroppedLamports))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/v1/state", "200"))+
		testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/v1/state", "409")))

	// The exposition includes the engine counters.
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "statext_instructions_total")
}

func TestStartServerStopsOnCancel(t *testing.T) {
	_, l := setupTestServer(t)

	// Find a free port.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewServerFactory().CreateServerStarter().StartServer(ctx, l, ServerConfig{Port: port, APIKey: "k"}, zerolog.Nop())
	}()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewMetricsIndependentRegistries(t *testing.T) {
	// Two servers in one process must not collide on registration.
	a := NewMetrics()
	b := NewMetrics()
	a.RecordAirdrop(5)
	assert.Equal(t, float64(5), testutil.ToFloat64(a.airdroppedLamports))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.airdroppedLamports))
}
