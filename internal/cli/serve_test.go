package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/calltrack/cache"
	"github.com/jonwraymond/calltrack/health"
	"github.com/jonwraymond/calltrack/kv"
	"github.com/jonwraymond/calltrack/observe"
)

func newTestServer(t *testing.T, store kv.Store) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newServeMux("memory", store, observe.NopLogger()))
	t.Cleanup(srv.Close)
	return srv
}

func TestServeMux_Health(t *testing.T) {
	srv := newTestServer(t, kv.NewMemory())

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		})
	}
}

func TestServeMux_DetailedHealthReportsStore(t *testing.T) {
	srv := newTestServer(t, kv.NewMemory())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body health.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	require.Contains(t, body.Checks, "store")
	assert.Equal(t, "memory", body.Checks["store"].Details["backend"])
}

func TestServeMux_ReadyFailsWhenStoreClosed(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Close())
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServeMux_Replay(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	c, err := cache.New(ctx, store)
	require.NoError(t, err)
	key, err := c.Store(ctx, "foo")
	require.NoError(t, err)

	srv := newTestServer(t, store)

	tests := []struct {
		name  string
		query string
		want  cache.Report
	}{
		{
			name: "default",
			want: cache.Report{Name: cache.StoreOpName, Count: 1, Calls: []cache.Call{{Input: `("foo")`, Output: key}}},
		},
		{
			name:  "unknown operation",
			query: "?name=Other.Op",
			want:  cache.Report{Name: "Other.Op", Calls: []cache.Call{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/replay" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var got cache.Report
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServeMux_ReplayStoreError(t *testing.T) {
	store := kv.NewMemory()
	require.NoError(t, store.Close())
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/replay")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServeMux_Metrics(t *testing.T) {
	srv := newTestServer(t, kv.NewMemory())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	opts := memoryOptions(t)
	cmd := NewServeCommand(opts)
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
