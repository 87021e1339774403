// Package metrics defines the Prometheus collectors this client
// exposes for connection health, reconnect frequency, and event parse
// outcomes. Grounded on the teacher's go.mod carrying the full
// prometheus/client_golang stack (unexercised there) and its
// no-op-behind-an-interface metrics module in internal/defaults, now
// given a real implementation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors is the fixed set of counters and histograms this client
// registers. Construct one per process with New and pass it down to the
// realtime channel and gateway.
type Collectors struct {
	ConnectionsTotal prometheus.Counter
	ReconnectsTotal  prometheus.Counter
	EventsTotal      *prometheus.CounterVec
	EventsDropped    prometheus.Counter
	PrimeDuration    prometheus.Histogram
}

// New registers every collector against reg and returns the bundle. reg
// is typically prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer to join the process-wide one.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bragerone",
			Subsystem: "realtime",
			Name:      "connections_total",
			Help:      "Successful Engine.IO/Socket.IO handshakes completed.",
		}),
		ReconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bragerone",
			Subsystem: "realtime",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts the supervisor has made after a drop.",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bragerone",
			Subsystem: "realtime",
			Name:      "events_total",
			Help:      "Forwarded realtime events, labeled by canonical event name.",
		}, []string{"event"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "bragerone",
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Inbound events discarded: not in the forwarded-event allowlist.",
		}),
		PrimeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bragerone",
			Subsystem: "gateway",
			Name:      "prime_duration_seconds",
			Help:      "Wall-clock time spent fetching and ingesting a prime payload.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
