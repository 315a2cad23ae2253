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

// find returns the metric family named name, failing the test if absent.
func find(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRecordAuth_CountsByOpAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuth("login", "ok")
	c.RecordAuth("login", "ok")
	c.RecordAuth("login", "identity_error")

	mf := find(t, reg, "fitness_hub_auth_attempts_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 series, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		want := 1.0
		if labelValue(m, "outcome") == "ok" {
			want = 2
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("outcome=%s: got %v, want %v", labelValue(m, "outcome"), got, want)
		}
	}
}

func TestSetActiveVisitors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetActiveVisitors(3)
	c.SetActiveVisitors(2)

	mf := find(t, reg, "fitness_hub_active_visitors")
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 2 {
		t.Errorf("active visitors = %v, want 2", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("POST", 303, 20*time.Millisecond)

	mf := find(t, reg, "fitness_hub_http_requests_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "status_code") != "303" || labelValue(m, "method") != "POST" {
		t.Errorf("unexpected labels: %v", m.GetLabel())
	}
	if got := find(t, reg, "fitness_hub_http_request_duration_seconds").GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("latency samples = %d, want 1", got)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordContact("ok")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `fitness_hub_contact_submissions_total{outcome="ok"} 1`) {
		t.Errorf("metrics output missing contact counter:\n%s", body)
	}
}
