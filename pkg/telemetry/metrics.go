// Package telemetry provides the Prometheus metrics and correlation
// id wiring shared by the CLI and the query server. Every metric
// method is nil-safe: a nil *Metrics is a documented no-op so core
// packages (pkg/storage, pkg/btree) can accept one without forcing a
// registry on their own tests.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/ksuid"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus collectors registered once per
// process and shared by pkg/storage, pkg/btree, and pkg/api.
type Metrics struct {
	blockReadsTotal       prometheus.Counter
	blockWritesTotal      prometheus.Counter
	treeOperationsTotal   *prometheus.CounterVec
	treeOperationDuration *prometheus.HistogramVec
	nodeSplitsTotal       prometheus.Counter
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
}

// NewMetrics registers and returns the collectors. Call it once per
// process; it panics (via promauto) on duplicate registration, the
// same way promauto always does.
func NewMetrics() *Metrics {
	return &Metrics{
		blockReadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cordix_block_reads_total",
			Help: "Total number of 512-byte blocks read from an index file.",
		}),
		blockWritesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cordix_block_writes_total",
			Help: "Total number of 512-byte blocks written to an index file.",
		}),
		treeOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordix_tree_operations_total",
				Help: "Total number of B-tree operations, by operation and outcome.",
			},
			[]string{"operation", "status"},
		),
		treeOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cordix_tree_operation_duration_seconds",
				Help:    "B-tree operation duration in seconds, by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		nodeSplitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cordix_node_splits_total",
			Help: "Total number of node splits performed during insert.",
		}),
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cordix_http_requests_total",
				Help: "Total number of query server requests, by method, route, and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cordix_http_request_duration_seconds",
				Help:    "Query server request duration in seconds, by method and route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordBlockRead increments the block-read counter.
func (m *Metrics) RecordBlockRead() {
	if m == nil {
		return
	}
	m.blockReadsTotal.Inc()
}

// RecordBlockWrite increments the block-write counter.
func (m *Metrics) RecordBlockWrite() {
	if m == nil {
		return
	}
	m.blockWritesTotal.Inc()
}

// RecordTreeOperation records one completed tree operation (search,
// insert, traverse) along with its outcome and duration.
func (m *Metrics) RecordTreeOperation(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.treeOperationsTotal.WithLabelValues(operation, status).Inc()
	m.treeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordNodeSplit increments the node-split counter.
func (m *Metrics) RecordNodeSplit() {
	if m == nil {
		return
	}
	m.nodeSplitsTotal.Inc()
}

// RecordHTTPRequest records one completed query server request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// NewCorrelationID returns an opaque, sortable, per-invocation
// identifier for structured log lines.
func NewCorrelationID() string {
	return ksuid.New().String()
}
