// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the "result" label.
const (
	ResultOK       = "ok"
	ResultFailure  = "failure"
	ResultTimeout  = "timeout"
	ResultProtocol = "protocol_error"
)

// Metrics holds the collectors of one process run on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	// RequestsTotal counts requests by operation, server and result
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures the time from send to reply
	RequestDurationSeconds *prometheus.HistogramVec

	// DigestsTotal counts computed fingerprints by mode
	DigestsTotal *prometheus.CounterVec

	// CacheHitsTotal counts replies served from the response cache
	CacheHitsTotal *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamprint_requests_total",
				Help: "Total number of requests sent to servers",
			},
			[]string{"op", "server", "result"},
		),
		RequestDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spamprint_request_duration_seconds",
				Help:    "Round trip time of server requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"op"},
		),
		DigestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamprint_digests_total",
				Help: "Total number of fingerprints computed",
			},
			[]string{"mode"},
		),
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spamprint_cache_hits_total",
				Help: "Total number of replies served from the response cache",
			},
			[]string{"op"},
		),
	}
}

// DigestMode is the DigestsTotal label for a fingerprint.
func DigestMode(atomic bool) string {
	if atomic {
		return "atomic"
	}
	return "sampled"
}
