package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusClass2xx = "2xx"
	StatusClass4xx = "4xx"
	StatusClass429 = "429"
	StatusClass5xx = "5xx"
	StatusClassNet = "network"
)

// Config carries the constant labels stamped on every sync metric.
type Config struct {
	ServiceName string
	Environment string
}

// SyncMetrics captures mirror pipeline health signals.
type SyncMetrics struct {
	requests        *prometheus.CounterVec
	retries         *prometheus.CounterVec
	pages           *prometheus.CounterVec
	rowsMapped      *prometheus.CounterVec
	rowsUpserted    *prometheus.CounterVec
	rowsQuarantined *prometheus.CounterVec
	flushFailures   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	syncMetricsOnce sync.Once
	syncMetrics     *SyncMetrics
)

// Sync returns the singleton sync metrics registry.
func Sync() *SyncMetrics {
	return SyncWithConfig(Config{})
}

// SyncWithConfig returns the singleton sync metrics registry using config labels.
func SyncWithConfig(cfg Config) *SyncMetrics {
	syncMetricsOnce.Do(func() {
		syncMetrics = newSyncMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return syncMetrics
}

// ResetSyncMetricsForTest resets the sync metrics singleton for tests.
func ResetSyncMetricsForTest() {
	syncMetricsOnce = sync.Once{}
	syncMetrics = nil
}

func newSyncMetrics(registerer prometheus.Registerer, cfg Config) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "shopmirror"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_requests_total",
		Help:        "Upstream API requests by resource and response status class.",
		ConstLabels: constLabels,
	}, []string{"resource", "status_class"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_request_retries_total",
		Help:        "Upstream request retries by resource and cause.",
		ConstLabels: constLabels,
	}, []string{"resource", "cause"})
	pages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_pages_total",
		Help:        "Listing pages fetched by resource.",
		ConstLabels: constLabels,
	}, []string{"resource"})
	rowsMapped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_rows_mapped_total",
		Help:        "Source rows mapped into local models by entity.",
		ConstLabels: constLabels,
	}, []string{"entity"})
	rowsUpserted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_rows_upserted_total",
		Help:        "Rows committed to the local store by entity.",
		ConstLabels: constLabels,
	}, []string{"entity"})
	rowsQuarantined := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_rows_quarantined_total",
		Help:        "Rows sidelined by mapping or storage failures, by entity.",
		ConstLabels: constLabels,
	}, []string{"entity"})
	flushFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "shopmirror_flush_failures_total",
		Help:        "Batch flush failures by entity.",
		ConstLabels: constLabels,
	}, []string{"entity"})
	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "shopmirror_request_duration_seconds",
		Help:        "Upstream request latency by resource.",
		Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		ConstLabels: constLabels,
	}, []string{"resource"})

	registerer.MustRegister(
		requests,
		retries,
		pages,
		rowsMapped,
		rowsUpserted,
		rowsQuarantined,
		flushFailures,
		requestDuration,
	)

	return &SyncMetrics{
		requests:        requests,
		retries:         retries,
		pages:           pages,
		rowsMapped:      rowsMapped,
		rowsUpserted:    rowsUpserted,
		rowsQuarantined: rowsQuarantined,
		flushFailures:   flushFailures,
		requestDuration: requestDuration,
	}
}

// IncRequest counts one upstream request outcome.
func (m *SyncMetrics) IncRequest(resource, statusClass string) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(resource, statusClass).Inc()
}

// IncRetry counts one retried upstream request.
func (m *SyncMetrics) IncRetry(resource, cause string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(resource, cause).Inc()
}

// IncPage counts one fetched listing page.
func (m *SyncMetrics) IncPage(resource string) {
	if m == nil || m.pages == nil {
		return
	}
	m.pages.WithLabelValues(resource).Inc()
}

// AddRowsMapped counts rows mapped for an entity.
func (m *SyncMetrics) AddRowsMapped(entity string, count int) {
	if m == nil || m.rowsMapped == nil || count <= 0 {
		return
	}
	m.rowsMapped.WithLabelValues(entity).Add(float64(count))
}

// AddRowsUpserted counts rows committed for an entity.
func (m *SyncMetrics) AddRowsUpserted(entity string, count int) {
	if m == nil || m.rowsUpserted == nil || count <= 0 {
		return
	}
	m.rowsUpserted.WithLabelValues(entity).Add(float64(count))
}

// AddRowsQuarantined counts rows sidelined for an entity.
func (m *SyncMetrics) AddRowsQuarantined(entity string, count int) {
	if m == nil || m.rowsQuarantined == nil || count <= 0 {
		return
	}
	m.rowsQuarantined.WithLabelValues(entity).Add(float64(count))
}

// IncFlushFailure counts one failed batch flush for an entity.
func (m *SyncMetrics) IncFlushFailure(entity string) {
	if m == nil || m.flushFailures == nil {
		return
	}
	m.flushFailures.WithLabelValues(entity).Inc()
}

// ObserveRequestDuration records upstream request latency.
func (m *SyncMetrics) ObserveRequestDuration(resource string, duration time.Duration) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.WithLabelValues(resource).Observe(duration.Seconds())
}

// StatusClassFor maps an HTTP status code to its metric label.
func StatusClassFor(statusCode int) string {
	switch {
	case statusCode == 429:
		return StatusClass429
	case statusCode >= 500:
		return StatusClass5xx
	case statusCode >= 400:
		return StatusClass4xx
	case statusCode >= 200 && statusCode < 300:
		return StatusClass2xx
	default:
		return "other"
	}
}
