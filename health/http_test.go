package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonwraymond/calltrack/kv"
)

func serve(t *testing.T, agg *Aggregator, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	RegisterHandlers(mux, agg)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLivenessHandler(t *testing.T) {
	rec := serve(t, NewAggregator(), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		wantCode int
		wantBody string
	}{
		{"healthy", StatusHealthy, http.StatusOK, "OK"},
		{"degraded", StatusDegraded, http.StatusOK, "DEGRADED"},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, "UNHEALTHY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			agg.Register("c", fixed(tt.status))

			rec := serve(t, agg, "/readyz")
			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("GET /readyz = %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestDetailedHandler(t *testing.T) {
	store := kv.NewMemory()
	agg := NewAggregator()
	agg.Register("store", NewStoreChecker("memory", store, StoreCheckerConfig{}))

	rec := serve(t, agg, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" || resp.Checks["store"].Details["backend"] != "memory" {
		t.Errorf("response = %+v", resp)
	}

	_ = store.Close()
	rec = serve(t, agg, "/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health after close = %d, want 503", rec.Code)
	}
	resp = HealthResponse{}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Checks["store"].Error == "" {
		t.Error("expected store error in response")
	}
}
