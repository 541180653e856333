package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// TransitionsTotal counts lifecycle operations by outcome.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "transitions_total",
			Help:      "Payment lifecycle operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// EventsDeliveredTotal counts events delivered to observers, per type.
	EventsDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "events_delivered_total",
			Help:      "Lifecycle events delivered to observers",
		},
		[]string{"type"},
	)

	// EventsDroppedTotal counts deliveries that failed for a single observer
	// (slow consumer, closed sink). These never fail the transition.
	EventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "events_dropped_total",
			Help:      "Per-observer event deliveries that failed",
		},
	)

	// ConnectedObservers tracks currently registered observer handles.
	ConnectedObservers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "settlement",
			Name:      "connected_observers",
			Help:      "Currently registered observers",
		},
	)

	// QuoteRequestsTotal counts upstream quote provider calls by outcome.
	QuoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "settlement",
			Name:      "quote_requests_total",
			Help:      "Quote provider calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	// QuoteLatency observes upstream quote provider latency.
	QuoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "settlement",
			Name:      "quote_latency_seconds",
			Help:      "Quote provider call latency",
			Buckets: []float64{
				0.05, 0.1, 0.2, 0.3, 0.5, 0.8, 1.2, 2, 3, 5, 8, 13,
			},
		},
		[]string{"endpoint"},
	)
)

func init() {
	prometheus.MustRegister(
		TransitionsTotal,
		EventsDeliveredTotal,
		EventsDroppedTotal,
		ConnectedObservers,
		QuoteRequestsTotal,
		QuoteLatency,
	)
}
