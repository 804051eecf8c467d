package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounters(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}

	c.ObserveTick(5 * time.Millisecond)
	c.AddSent(6)
	c.AddDelivered(9)
	c.AddUnknownDestination(1)
	c.SetNodes(4)
	c.SetOutages(1)
	c.SetNeighborLinks(3)

	if got := testutil.ToFloat64(c.Ticks); got != 1 {
		t.Errorf("ticks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Sent); got != 6 {
		t.Errorf("sent = %v, want 6", got)
	}
	if got := testutil.ToFloat64(c.Delivered); got != 9 {
		t.Errorf("delivered = %v, want 9", got)
	}
	if got := testutil.ToFloat64(c.UnknownDest); got != 1 {
		t.Errorf("unknown = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Nodes); got != 4 {
		t.Errorf("nodes = %v, want 4", got)
	}
}

func TestCollectorDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewCollector(reg); err != nil {
		t.Fatal(err)
	}
	// A second collector against the same registry reuses the existing
	// metrics instead of failing.
	if _, err := NewCollector(reg); err != nil {
		t.Fatalf("second registration: %v", err)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	c.SetNodes(4)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, metric := range []string{"swarmnet_nodes", "swarmnet_ticks_total", "swarmnet_tick_duration_seconds"} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %s", metric)
		}
	}
}
