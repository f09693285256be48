// Package metrics provides Prometheus metrics for docbridge scans.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docbridge"

var (
	// ScansTotal counts table scans by outcome.
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total table scans",
		},
		[]string{"table", "status"}, // status: success/error
	)

	// ScanLatency tracks the duration of complete scans.
	ScanLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_latency_seconds",
			Help:      "Table scan latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	// RowsTotal counts rows bound and emitted.
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Total rows emitted by scans",
		},
		[]string{"table"},
	)

	// PushdownTotal counts translated filters by how much of them reached
	// the store.
	PushdownTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushdown_total",
			Help:      "Total translated filters",
		},
		[]string{"table", "result"}, // result: full/partial/none
	)

	// CoercionErrors counts row failures by error kind.
	CoercionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coercion_errors_total",
			Help:      "Total documents rejected during binding",
		},
		[]string{"table", "kind"},
	)

	// ClientCacheSize is the number of connected store clients.
	ClientCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "client_cache_size",
			Help:      "Number of cached store clients",
		},
	)

	// ClientCacheOps counts client cache lookups and evictions.
	ClientCacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_cache_ops_total",
			Help:      "Total client cache operations",
		},
		[]string{"op"}, // op: hit/miss/evict
	)
)

// ObserveScan records a finished scan.
func ObserveScan(table string, latencySeconds float64, rows int64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	ScansTotal.WithLabelValues(table, status).Inc()
	ScanLatency.WithLabelValues(table).Observe(latencySeconds)
	if rows > 0 {
		RowsTotal.WithLabelValues(table).Add(float64(rows))
	}
}

// ObservePushdown records how a filter was translated.
func ObservePushdown(table string, pushed, exact bool) {
	result := "none"
	switch {
	case exact:
		result = "full"
	case pushed:
		result = "partial"
	}
	PushdownTotal.WithLabelValues(table, result).Inc()
}

// IncCoercionError records a rejected document.
func IncCoercionError(table, kind string) {
	CoercionErrors.WithLabelValues(table, kind).Inc()
}

// IncClientCache records a client cache operation.
func IncClientCache(op string) {
	ClientCacheOps.WithLabelValues(op).Inc()
}

// SetClientCacheSize sets the number of cached clients.
func SetClientCacheSize(n int) {
	ClientCacheSize.Set(float64(n))
}
