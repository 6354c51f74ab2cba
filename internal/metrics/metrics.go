// Package metrics registers the Prometheus collectors exported by
// `triage serve` at /metrics. Collectors are registered on the default
// registry at init.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"triage/internal/faults"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_decisions_total",
		Help: "Review decisions recorded, by decision and media type.",
	}, []string{"decision", "media_type"})

	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_moves_total",
		Help: "File move operations, by operation and outcome kind.",
	}, []string{"operation", "result"})

	scanCandidates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "triage_scan_candidates",
		Help: "Pending files queued by the most recent scan.",
	})

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triage_scan_duration_seconds",
		Help:    "Wall time of queue builds including the directory scan.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_http_requests_total",
		Help: "HTTP requests served, by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triage_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Decision counts one keep or reject.
func Decision(decision, mediaType string) {
	decisionsTotal.WithLabelValues(decision, mediaType).Inc()
}

// Move counts one move operation. A zero kind is recorded as "success".
func Move(operation string, kind faults.Kind) {
	result := string(kind)
	if kind == faults.KindNone {
		result = "success"
	}
	movesTotal.WithLabelValues(operation, result).Inc()
}

// Scan records the outcome of a queue build.
func Scan(queued int, elapsed time.Duration) {
	scanCandidates.Set(float64(queued))
	scanDuration.Observe(elapsed.Seconds())
}

// HTTPRequest records one served request.
func HTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
