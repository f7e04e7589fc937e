package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/callaudit/pkg/audit/query"
	"mercator-hq/callaudit/pkg/audit/storage"
	"mercator-hq/callaudit/pkg/config"
	"mercator-hq/callaudit/pkg/security/auth"
	"mercator-hq/callaudit/pkg/server/handlers"
	"mercator-hq/callaudit/pkg/telemetry/health"
	"mercator-hq/callaudit/pkg/telemetry/metrics"
)

func newTestDeps(t *testing.T) (Dependencies, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()

	checker := health.New(time.Second)
	checker.RegisterCheck("storage", health.StorageCheck(store))

	return Dependencies{
		CallHistory: handlers.NewCallHistoryHandler(query.NewService(store, query.Limits{}), store),
		Health:      checker,
		Metrics:     metrics.NewCollector(metrics.Options{Enabled: true, Namespace: "test"}, nil),
		Version:     health.VersionInfo{Version: "1.2.3", Commit: "abc123"},
	}, store
}

func serve(h http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(config.DefaultConfig(), deps)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"call history list", http.MethodGet, "/api/v1/call-history", http.StatusOK},
		{"call history record", http.MethodGet, "/api/v1/call-history/99", http.StatusNotFound},
		{"liveness", http.MethodGet, "/health", http.StatusOK},
		{"liveness head", http.MethodHead, "/health", http.StatusOK},
		{"readiness", http.MethodGet, "/ready", http.StatusOK},
		{"version", http.MethodGet, "/version", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/api/v1/call-history", http.StatusMethodNotAllowed},
		{"examples not mounted", http.MethodGet, "/api/v1/examples", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, tt.method, tt.target, nil)
			if rec.Code != tt.status {
				t.Errorf("%s %s = %d, want %d (body %s)", tt.method, tt.target, rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestNewRouter_ErrorBodies(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(config.DefaultConfig(), deps)

	rec := serve(router, http.MethodGet, "/nope", map[string]string{"X-Correlation-ID": "corr-404"})

	var resp handlers.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("404 body is not an ErrorResponse: %v", err)
	}
	if resp.Status != http.StatusNotFound || resp.Path != "/nope" || resp.TraceID != "corr-404" {
		t.Errorf("response = %+v", resp)
	}
}

func TestNewRouter_ReadinessFailsWhenStorageClosed(t *testing.T) {
	deps, store := newTestDeps(t)
	router := NewRouter(config.DefaultConfig(), deps)

	_ = store.Close()

	if rec := serve(router, http.MethodGet, "/ready", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready = %d, want 503", rec.Code)
	}
	if rec := serve(router, http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("/health = %d, want 200; liveness must not depend on storage", rec.Code)
	}
}

func TestNewRouter_CORS(t *testing.T) {
	deps, _ := newTestDeps(t)
	cfg := config.DefaultConfig()
	cfg.Server.CORS.AllowedOrigins = []string{"https://ops.example.com"}
	router := NewRouter(cfg, deps)

	t.Run("preflight", func(t *testing.T) {
		rec := serve(router, http.MethodOptions, "/api/v1/call-history", map[string]string{
			"Origin":                        "https://ops.example.com",
			"Access-Control-Request-Method": http.MethodGet,
		})
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
		if rec.Code >= 300 {
			t.Errorf("preflight status = %d", rec.Code)
		}
	})

	t.Run("disallowed origin", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/call-history", map[string]string{
			"Origin": "https://evil.example.com",
		})
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Access-Control-Allow-Origin = %q, want none", got)
		}
	})

	t.Run("exposes correlation header", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/call-history", map[string]string{
			"Origin": "https://ops.example.com",
		})
		if got := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(got, "X-Correlation-Id") && !strings.Contains(got, "X-Correlation-ID") {
			t.Errorf("Access-Control-Expose-Headers = %q", got)
		}
	})
}

func TestNewRouter_Auth(t *testing.T) {
	deps, _ := newTestDeps(t)
	validator := auth.NewAPIKeyValidator([]*auth.APIKeyInfo{{Key: "k1", UserID: "ops", Enabled: true}})
	deps.Auth = auth.NewAPIKeyMiddleware(validator, auth.SourcesFromConfig(config.DefaultAPIKeySources)).Handle
	router := NewRouter(config.DefaultConfig(), deps)

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		status  int
	}{
		{"api without key", "/api/v1/call-history", nil, http.StatusUnauthorized},
		{"api with key", "/api/v1/call-history", map[string]string{"X-API-Key": "k1"}, http.StatusOK},
		{"api with bearer", "/api/v1/call-history", map[string]string{"Authorization": "Bearer k1"}, http.StatusOK},
		{"liveness stays open", "/health", nil, http.StatusOK},
		{"readiness stays open", "/ready", nil, http.StatusOK},
		{"metrics stay open", "/metrics", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := serve(router, http.MethodGet, tt.target, tt.headers); rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.target, rec.Code, tt.status)
			}
		})
	}
}

func TestNewRouter_MetricsRecordRoutePattern(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(config.DefaultConfig(), deps)

	serve(router, http.MethodGet, "/api/v1/call-history/7", nil)
	serve(router, http.MethodGet, "/api/v1/call-history/8", nil)

	body := serve(router, http.MethodGet, "/metrics", nil).Body.String()
	want := `test_audit_http_requests_total{code="404",method="GET",route="/api/v1/call-history/{id}"} 2`
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %q", want)
	}
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	deps, _ := newTestDeps(t)
	cfg := config.DefaultConfig()
	cfg.Telemetry.Metrics.Enabled = false
	router := NewRouter(cfg, deps)

	if rec := serve(router, http.MethodGet, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Errorf("/metrics = %d, want 404 when disabled", rec.Code)
	}
}

func TestServer_Lifecycle(t *testing.T) {
	deps, _ := newTestDeps(t)
	cfg := config.DefaultConfig()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second

	srv := NewServer(&cfg.Server, NewRouter(cfg, deps))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false after start")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.Addr()))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health = %d", resp.StatusCode)
	}

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start() should fail while running")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestServer_ListenError(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.ListenAddress = "256.0.0.1:http"

	err := NewServer(&cfg.Server, http.NotFoundHandler()).Start(context.Background())
	if err == nil {
		t.Fatal("Start() on an invalid address should fail")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected error %v", err)
	}
}
