package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New("/proxy", "/naive")

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Should include at least Go runtime and process collectors.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	m.RequestsTotal.WithLabelValues("GET", "200", "/proxy").Inc()

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "relay_proxy_http_requests_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected relay_proxy_http_requests_total in gathered metrics")
	}
}

func TestNew_RelayCounters(t *testing.T) {
	m := New()

	m.RelayedBytes.WithLabelValues("stream").Add(65536)
	m.RelayedBytes.WithLabelValues("buffered").Add(10)
	m.StreamChunks.Add(2)

	if got := testutil.ToFloat64(m.RelayedBytes.WithLabelValues("stream")); got != 65536 {
		t.Errorf("relayed stream bytes = %v, want 65536", got)
	}
	if got := testutil.ToFloat64(m.StreamChunks); got != 2 {
		t.Errorf("stream chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.StreamTruncations); got != 0 {
		t.Errorf("stream truncations = %v, want 0", got)
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"PUT", "PUT"},
		{"DELETE", "DELETE"},
		{"PATCH", "PATCH"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"X-CUSTOM", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := NormalizeMethod(tt.method)
			if got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	m := New("/proxy", "/naive", "/healthz", "/status", "/metrics")

	tests := []struct {
		path string
		want string
	}{
		{"/proxy/items", "/proxy"},
		{"/proxy/a/b/c", "/proxy"},
		{"/naive/submit", "/naive"},
		{"/healthz", "/healthz"},
		{"/status", "/status"},
		{"/metrics", "/metrics"},
		{"/proxyfoo", "other"},
		{"/unknown", "other"},
		{"/", "other"},
		{"/proxy", "/proxy"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := m.NormalizePath(tt.path)
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
