// Package metrics declares the Prometheus collectors of the catalog. They
// register with the default registry and are served at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var treeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookcatalog_tree_mutations_total",
	Help: "Tree mutations by operation and outcome code",
}, []string{"op", "result"})

var treeMutationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "bookcatalog_tree_mutation_duration_seconds",
	Help:    "Time spent in tree mutations, lock wait included",
	Buckets: prometheus.DefBuckets,
}, []string{"op"})

var cacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookcatalog_book_cache_hits_total",
	Help: "Book listing cache hits",
}, []string{"kind"})

var cacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookcatalog_book_cache_misses_total",
	Help: "Book listing cache misses",
}, []string{"kind"})

var auditRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookcatalog_tree_audit_runs_total",
	Help: "Integrity audits by result",
}, []string{"result"})

var treeNodes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "bookcatalog_tree_nodes",
	Help: "Number of categories seen by the last successful audit",
})

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bookcatalog_http_requests_total",
	Help: "HTTP requests by method, route pattern and status",
}, []string{"method", "route", "status"})

var httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "bookcatalog_http_request_duration_seconds",
	Help:    "HTTP request latency by method and route pattern",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// Cache lookup kinds.
const (
	KindPage  = "page"
	KindCount = "count"
)

// Audit results.
const (
	AuditOK      = "ok"
	AuditCorrupt = "corrupt"
	AuditError   = "error"
)

// ObserveMutation records one finished mutation. result is "ok" or the
// failure code.
func ObserveMutation(op, result string, elapsed time.Duration) {
	treeMutations.WithLabelValues(op, result).Inc()
	treeMutationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// CacheLookup records a cache hit or miss.
func CacheLookup(kind string, hit bool) {
	if hit {
		cacheHits.WithLabelValues(kind).Inc()
		return
	}
	cacheMisses.WithLabelValues(kind).Inc()
}

// AuditRun records the outcome of an integrity audit.
func AuditRun(result string) {
	auditRuns.WithLabelValues(result).Inc()
}

// SetTreeNodes publishes the node count of the tree.
func SetTreeNodes(n int) {
	treeNodes.Set(float64(n))
}

// ObserveRequest records one served HTTP request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
