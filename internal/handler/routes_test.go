package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relay-proxy/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstream.URL, nil)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /status", http.MethodGet, "/status", http.StatusOK},
		{"GET /proxy/items", http.MethodGet, "/proxy/items?limit=5", http.StatusOK},
		{"POST /proxy/items", http.MethodPost, "/proxy/items", http.StatusOK},
		{"DELETE /proxy/items/1", http.MethodDelete, "/proxy/items/1", http.StatusOK},
		{"GET /naive/items", http.MethodGet, "/naive/items", http.StatusOK},
		{"PATCH /naive/items/1", http.MethodPatch, "/naive/items/1", http.StatusOK},
		{"PURGE /proxy/items", "PURGE", "/proxy/items", http.StatusOK},
		{"MKCOL /naive/items", "MKCOL", "/naive/items", http.StatusOK},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
		{"GET /metrics disabled returns 404", http.MethodGet, "/metrics", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterRoutes_SecurityHeadersLocalOnly(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cache-Control", "max-age=60")
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	e := newTestEcho(t, upstream.URL, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("/healthz X-Content-Type-Options = %q, want %q", got, "nosniff")
	}

	req = httptest.NewRequest(http.MethodGet, "/proxy/cached", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "" {
		t.Errorf("relayed X-Content-Type-Options = %q, want none", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "max-age=60" {
		t.Errorf("relayed Cache-Control = %q, want upstream value", got)
	}
}

func TestRegisterRoutes_Metrics(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	m := metrics.New("/proxy", "/naive")
	cfg := testConfig(upstream.URL)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	e := newTestEchoWithConfig(t, cfg, m)

	req := httptest.NewRequest(http.MethodGet, "/proxy/items", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("proxy status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "relay_proxy_relayed_bytes_total") {
		t.Error("/metrics output missing relay_proxy_relayed_bytes_total")
	}
}
