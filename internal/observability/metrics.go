package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// ComputesTotal counts dashboard computations by outcome
	ComputesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdash_computes_total",
			Help: "Total number of dashboard computations",
		},
		[]string{"outcome"}, // outcome: ok, empty, error
	)

	// ComputeDuration measures one full filter + aggregation pass
	ComputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "opsdash_compute_duration_seconds",
			Help:    "Dashboard computation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
		},
	)

	// FilteredRows tracks the row count of the last filtered view
	FilteredRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opsdash_filtered_rows",
			Help: "Rows left after the last applied selection",
		},
	)

	// DatasetRows tracks the row count of the loaded dataset
	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "opsdash_dataset_rows",
			Help: "Rows in the loaded dataset",
		},
	)

	// CoercionFailures counts cells degraded to missing while loading
	CoercionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdash_coercion_failures_total",
			Help: "Cells that failed numeric or date coercion and became missing",
		},
		[]string{"column"},
	)

	// CacheHits counts dashboards served from the result cache
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsdash_cache_hits_total",
			Help: "Dashboards served from the result cache",
		},
	)

	// CacheMisses counts dashboards computed after a cache miss
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "opsdash_cache_misses_total",
			Help: "Dashboards computed after a cache miss",
		},
	)

	// SkippedRows counts rows dropped by a component
	SkippedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdash_skipped_rows_total",
			Help: "Rows skipped because they could not be read",
		},
		[]string{"component"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "opsdash_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordCompute records one dashboard computation
func RecordCompute(outcome string, rows int, duration float64) {
	ComputesTotal.WithLabelValues(outcome).Inc()
	ComputeDuration.Observe(duration)
	FilteredRows.Set(float64(rows))
}

// RecordCoercionFailure records a cell that became missing
func RecordCoercionFailure(column string) {
	CoercionFailures.WithLabelValues(column).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHits.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMisses.Inc()
}

// RecordSkippedRow records a row a component could not read
func RecordSkippedRow(component string) {
	SkippedRows.WithLabelValues(component).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
