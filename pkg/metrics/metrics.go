package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Store related metrics
	StoreWrites    *prometheus.CounterVec
	StoreConflicts *prometheus.CounterVec
	StoreReseeds   *prometheus.CounterVec
	StoreLatency   *prometheus.HistogramVec

	// Domain metrics
	NotificationsEmitted *prometheus.CounterVec
	RemindersFired       *prometheus.CounterVec
	CallTransitions      *prometheus.CounterVec
	SimulatedCalls       prometheus.Counter

	// Assistant metrics
	AssistantRequests *prometheus.CounterVec
	AssistantLatency  *prometheus.HistogramVec

	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec

	// Realtime metrics
	EventClients prometheus.Gauge
}

// NewMetrics creates all application metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		StoreWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Total number of document writes",
		}, []string{"document", "status"}),
		StoreConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "revision_conflicts_total",
			Help:      "Total number of compare-and-swap conflicts on document writes",
		}, []string{"document"}),
		StoreReseeds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "reseeds_total",
			Help:      "Total number of times a document was replaced by its default",
		}, []string{"document", "reason"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of document store operations",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		NotificationsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_emitted_total",
			Help:      "Total number of notifications emitted",
		}, []string{"type", "recipient"}),
		RemindersFired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Total number of reminders fired",
		}, []string{"kind"}),
		CallTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_transitions_total",
			Help:      "Total number of call state transitions",
		}, []string{"status"}),
		SimulatedCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulated_calls_total",
			Help:      "Total number of ringing calls created by the simulator",
		}),

		AssistantRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "requests_total",
			Help:      "Total number of AI provider requests",
		}, []string{"model", "outcome"}),
		AssistantLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "request_duration_seconds",
			Help:      "Duration of AI provider requests",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"model"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
		}, []string{"method", "path", "status"}),
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		EventClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_clients",
			Help:      "Current number of connected change-event websocket clients",
		}),
	}
}

// New returns metrics registered on a private registry, for tests and tools.
func New(namespace string) *Metrics {
	return NewMetrics(namespace, prometheus.NewRegistry())
}
