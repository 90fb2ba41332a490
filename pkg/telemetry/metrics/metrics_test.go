package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/cwlens/pkg/config"
)

func testCollector() *Collector {
	return NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, prometheus.NewRegistry())
}

func TestCollector_NewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(&config.MetricsConfig{Enabled: true}, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if collector.config.Namespace != "cwlens" {
		t.Errorf("Expected default namespace cwlens, got %q", collector.config.Namespace)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordReconcile(true, time.Millisecond)
	c.RecordDegraded("no_profiles")
	c.RecordSnapshot(true)
	c.RecordStaleDiscarded("profile")
	c.RecordUpstreamRequest("profiles", 200, time.Millisecond, nil)
	c.RecordCapabilityFallback()
	c.RecordStreamReconnect()
	c.RecordStreamMessage("context_window_snapshot")
	c.RecordHTTPRequest("/v1/view", 200, time.Millisecond)
	c.LiveClientConnected(1)
	c.SetEffectiveLimit(1, "model")
	c.SetModuleUtilization(map[string]float64{"a": 1})
}

func TestCollector_Disabled(t *testing.T) {
	c := NewCollector(&config.MetricsConfig{Enabled: false, Namespace: "test"}, prometheus.NewRegistry())
	c.RecordSnapshot(true)

	if got := testutil.ToFloat64(c.reconcile.snapshotsTotal); got != 0 {
		t.Errorf("Expected no recording when disabled, got %v", got)
	}
}

func TestCollector_Reconcile(t *testing.T) {
	c := testCollector()

	c.RecordReconcile(true, 2*time.Millisecond)
	c.RecordReconcile(false, time.Millisecond)
	c.RecordReconcile(true, time.Millisecond)

	if got := testutil.ToFloat64(c.reconcile.reconciliationsTotal.WithLabelValues("full")); got != 2 {
		t.Errorf("Expected 2 full reconciliations, got %v", got)
	}
	if got := testutil.ToFloat64(c.reconcile.reconciliationsTotal.WithLabelValues("static")); got != 1 {
		t.Errorf("Expected 1 static reconciliation, got %v", got)
	}
}

func TestCollector_Snapshots(t *testing.T) {
	c := testCollector()

	c.RecordSnapshot(false)
	c.RecordSnapshot(true)
	c.RecordSnapshot(false)

	if got := testutil.ToFloat64(c.reconcile.snapshotsTotal); got != 3 {
		t.Errorf("Expected 3 snapshots, got %v", got)
	}
	if got := testutil.ToFloat64(c.reconcile.outOfOrderTotal); got != 1 {
		t.Errorf("Expected 1 out-of-order snapshot, got %v", got)
	}
}

func TestCollector_EffectiveLimitSingleSeries(t *testing.T) {
	c := testCollector()

	c.SetEffectiveLimit(128000, "model")
	c.SetEffectiveLimit(50176, "session")

	if got := testutil.CollectAndCount(c.reconcile.effectiveLimit); got != 1 {
		t.Errorf("Expected a single series, got %d", got)
	}
	if got := testutil.ToFloat64(c.reconcile.effectiveLimit.WithLabelValues("session")); got != 50176 {
		t.Errorf("Expected 50176, got %v", got)
	}
}

func TestCollector_ModuleUtilizationReplaced(t *testing.T) {
	c := testCollector()

	c.SetModuleUtilization(map[string]float64{"system_prompt": 40, "tools": 10})
	c.SetModuleUtilization(map[string]float64{"system_prompt": 55})

	if got := testutil.CollectAndCount(c.reconcile.moduleUtilization); got != 1 {
		t.Errorf("Expected stale module series to be dropped, got %d series", got)
	}
}

func TestCollector_Upstream(t *testing.T) {
	c := testCollector()

	c.RecordUpstreamRequest("profiles", 200, 10*time.Millisecond, nil)
	c.RecordUpstreamRequest("profiles", 0, 5*time.Millisecond, errors.New("connection refused"))
	c.RecordUpstreamRequest("profiles", 503, 5*time.Millisecond, errors.New("unavailable"))
	c.RecordCapabilityFallback()

	for status, want := range map[string]float64{"200": 1, "error": 1, "503": 1} {
		if got := testutil.ToFloat64(c.upstream.requestsTotal.WithLabelValues("profiles", status)); got != want {
			t.Errorf("Expected %v requests with status %s, got %v", want, status, got)
		}
	}
	if got := testutil.ToFloat64(c.upstream.capabilityFallbackTotal); got != 1 {
		t.Errorf("Expected 1 fallback, got %v", got)
	}
}

func TestCollector_LiveClients(t *testing.T) {
	c := testCollector()

	c.LiveClientConnected(1)
	c.LiveClientConnected(1)
	c.LiveClientConnected(-1)

	if got := testutil.ToFloat64(c.server.liveClients); got != 1 {
		t.Errorf("Expected 1 live client, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := testCollector()
	c.RecordSnapshot(true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "test_snapshot_out_of_order_total 1") {
		t.Errorf("Expected out-of-order counter in exposition, got:\n%s", rec.Body.String())
	}
}
