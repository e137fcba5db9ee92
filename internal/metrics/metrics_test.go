package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func TestCollector_SessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionResolved(true)
	c.RecordSessionResolved(false)
	c.RecordSessionEnded()

	active := findMetric(t, reg, "notes_console_session_active")
	if v := active.GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Fatalf("active sessions = %v, want 1", v)
	}
	resolved := findMetric(t, reg, "notes_console_session_resolved_total")
	if len(resolved.GetMetric()) != 2 {
		t.Fatalf("expected one series per profile_created label, got %d", len(resolved.GetMetric()))
	}
}

func TestCollector_ProfileMutationResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProfileMutation("update_field", true)
	c.RecordProfileMutation("update_field", false)
	c.RecordProfileMutation("update_field", false)

	mf := findMetric(t, reg, "notes_console_profile_mutations_total")
	total := 0.0
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "result" && l.GetValue() == "error" {
				total += m.GetCounter().GetValue()
			}
		}
	}
	if total != 2 {
		t.Fatalf("error mutations = %v, want 2", total)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPRequest(http.MethodGet, "/admin", http.StatusForbidden, 5*time.Millisecond)
	c.RecordAuthFailure("sign_in")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`notes_console_http_requests_total{method="GET",route="/admin",status_code="403"} 1`,
		`notes_console_auth_failures_total{operation="sign_in"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in scrape output", want)
		}
	}
}
