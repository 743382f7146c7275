package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics records ticket lifecycle and USSD session activity.
type QueueMetrics struct {
	joins        *prometheus.CounterVec
	calls        prometheus.Counter
	ussdSessions *prometheus.CounterVec
	ussdDuration *prometheus.HistogramVec
	publishes    *prometheus.CounterVec
}

// NewQueueMetrics registers the queue metrics on the provided registerer.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	if reg == nil {
		return &QueueMetrics{}
	}
	joins := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "queue_tickets_joined_total",
		Help: "Tickets created, labeled by service type and channel.",
	}, []string{"service_type", "channel"})
	calls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "queue_tickets_called_total",
		Help: "Tickets dispatched to agents.",
	})
	ussdSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ussd_sessions_total",
		Help: "USSD callbacks served, labeled by flow and terminal state.",
	}, []string{"flow", "outcome"})
	ussdDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ussd_callback_duration_seconds",
		Help:    "Duration of USSD callback handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts, labeled by result.",
	}, []string{"result"})
	reg.MustRegister(joins, calls, ussdSessions, ussdDuration, publishes)
	return &QueueMetrics{
		joins:        joins,
		calls:        calls,
		ussdSessions: ussdSessions,
		ussdDuration: ussdDuration,
		publishes:    publishes,
	}
}

// IncJoin increments the ticket join counter.
func (m *QueueMetrics) IncJoin(serviceType, channel string) {
	if m == nil || m.joins == nil {
		return
	}
	m.joins.WithLabelValues(normalizeLabel(serviceType), normalizeLabel(channel)).Inc()
}

// IncCall increments the call-next counter.
func (m *QueueMetrics) IncCall() {
	if m == nil || m.calls == nil {
		return
	}
	m.calls.Inc()
}

// IncUSSDSession records a served USSD callback.
func (m *QueueMetrics) IncUSSDSession(flow, outcome string) {
	if m == nil || m.ussdSessions == nil {
		return
	}
	m.ussdSessions.WithLabelValues(normalizeLabel(flow), normalizeLabel(outcome)).Inc()
}

// ObserveUSSDDuration records callback handling time for the named flow.
func (m *QueueMetrics) ObserveUSSDDuration(flow string, duration time.Duration) {
	if m == nil || m.ussdDuration == nil {
		return
	}
	m.ussdDuration.WithLabelValues(normalizeLabel(flow)).Observe(duration.Seconds())
}

// IncPublish records an outbox publish attempt result ("ok"/"error").
func (m *QueueMetrics) IncPublish(result string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
