package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of counters and histograms the Redis provider's
// operations feed. It was promoted from an indirect teacher dependency
// (prometheus/client_golang, pulled in transitively by the chat gateway's
// gRPC stack) to a direct one, since a batched multi-user dispatch engine
// is exactly the kind of component that wants per-op and per-error-kind
// counters plus batch latency histograms.
type Metrics struct {
	Ops         *prometheus.CounterVec
	ErrorsByKnd *prometheus.CounterVec
	BatchLatSec *prometheus.HistogramVec
}

// NewMetrics registers a fresh Metrics set against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with other
// instances registered against the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activityfeed",
			Name:      "provider_ops_total",
			Help:      "Count of provider operations by feed and operation name.",
		}, []string{"feed", "op"}),
		ErrorsByKnd: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activityfeed",
			Name:      "provider_errors_total",
			Help:      "Count of per-user provider errors by feed, operation, and error kind.",
		}, []string{"feed", "op", "kind"}),
		BatchLatSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activityfeed",
			Name:      "dispatch_batch_seconds",
			Help:      "Latency of one dispatch.Run call, by feed and operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed", "op"}),
	}
	reg.MustRegister(m.Ops, m.ErrorsByKnd, m.BatchLatSec)
	return m
}

// NopMetrics returns a Metrics registered only against a private, throwaway
// registry (so nothing ever scrapes it), safe to use
// as a default when the caller doesn't care about observability, without
// the nil-check clutter of an optional pointer.
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
