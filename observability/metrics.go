package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "usersync"

// Metrics holds Prometheus instruments for the event pipeline. All methods
// are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	EventsReceived   prometheus.Counter
	EventsFiltered   *prometheus.CounterVec
	EventsRejected   *prometheus.CounterVec
	DeliveryAttempts *prometheus.CounterVec
	DeliveryOutcomes *prometheus.CounterVec
	DeliveryLatency  prometheus.Histogram
	QueueDepth       prometheus.Gauge
}

// NewMetrics creates the instruments and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_received_total",
			Help:      "Identity events offered to the listener.",
		}),
		EventsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_filtered_total",
			Help:      "Events dropped by the event-type or client filter.",
		}, []string{"reason"}),
		EventsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_rejected_total",
			Help:      "Accepted events that could not be turned into a payload.",
		}, []string{"reason"}),
		DeliveryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_attempts_total",
			Help:      "HTTP delivery attempts by result.",
		}, []string{"status"}),
		DeliveryOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_outcomes_total",
			Help:      "Terminal delivery outcomes.",
		}, []string{"outcome"}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_latency_seconds",
			Help:      "Latency of individual delivery attempts.",
			Buckets:   prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_queue_depth",
			Help:      "Deliveries waiting for a worker.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.EventsReceived,
			m.EventsFiltered,
			m.EventsRejected,
			m.DeliveryAttempts,
			m.DeliveryOutcomes,
			m.DeliveryLatency,
			m.QueueDepth,
		)
	}
	return m
}

// RecordReceived counts one incoming event.
func (m *Metrics) RecordReceived() {
	if m == nil {
		return
	}
	m.EventsReceived.Inc()
}

// RecordFiltered counts one filtered event.
func (m *Metrics) RecordFiltered(reason string) {
	if m == nil {
		return
	}
	m.EventsFiltered.WithLabelValues(reason).Inc()
}

// RecordRejected counts one event that failed extraction.
func (m *Metrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	m.EventsRejected.WithLabelValues(reason).Inc()
}

// RecordAttempt records a delivery attempt with the given status and latency.
func (m *Metrics) RecordAttempt(status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.DeliveryAttempts.WithLabelValues(status).Inc()
	m.DeliveryLatency.Observe(latency.Seconds())
}

// RecordOutcome counts one terminal delivery outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.DeliveryOutcomes.WithLabelValues(outcome).Inc()
}

// SetQueueDepth reports the number of queued deliveries.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
