package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClassFor(t *testing.T) {
	cases := []struct {
		code int
		want string
	}{
		{200, StatusClass2xx},
		{201, StatusClass2xx},
		{404, StatusClass4xx},
		{429, StatusClass429},
		{500, StatusClass5xx},
		{503, StatusClass5xx},
		{302, "other"},
	}
	for _, tc := range cases {
		if got := StatusClassFor(tc.code); got != tc.want {
			t.Fatalf("status %d: expected %q, got %q", tc.code, tc.want, got)
		}
	}
}

func TestSyncMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSyncMetrics(registry, Config{
		ServiceName: "shopmirror",
		Environment: "test",
	})

	m.IncRequest("products", StatusClass2xx)
	m.IncRequest("products", StatusClass2xx)
	m.IncRetry("products", "throttle")
	m.IncPage("products")
	m.AddRowsMapped("product", 5)
	m.AddRowsUpserted("product", 5)
	m.AddRowsQuarantined("product", 1)
	m.IncFlushFailure("product")
	m.ObserveRequestDuration("products", 120*time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("products", StatusClass2xx)); got != 2 {
		t.Fatalf("expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.rowsMapped.WithLabelValues("product")); got != 5 {
		t.Fatalf("expected 5 mapped rows, got %v", got)
	}
	if got := testutil.ToFloat64(m.rowsQuarantined.WithLabelValues("product")); got != 1 {
		t.Fatalf("expected 1 quarantined row, got %v", got)
	}
}

func TestAddRowsIgnoresNonPositive(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSyncMetrics(registry, Config{ServiceName: "shopmirror", Environment: "test"})

	m.AddRowsUpserted("order", 0)
	m.AddRowsUpserted("order", -3)

	if got := testutil.ToFloat64(m.rowsUpserted.WithLabelValues("order")); got != 0 {
		t.Fatalf("expected 0 upserted rows, got %v", got)
	}
}
