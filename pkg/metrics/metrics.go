// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ThreadsTotal tracks chat threads created, by thread type.
	ThreadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_threads_total",
			Help: "Total chat threads created",
		},
		[]string{"type"},
	)

	// MessagesTotal tracks messages persisted, by sender role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages persisted",
		},
		[]string{"role"},
	)

	// IntentClassificationsTotal tracks classifier outcomes by intent.
	IntentClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_intent_classifications_total",
			Help: "Total intent classifications by resulting intent",
		},
		[]string{"intent"},
	)

	// RepliesTotal tracks generated concierge replies by intent.
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_replies_total",
			Help: "Total concierge replies persisted",
		},
		[]string{"intent"},
	)

	// ReplyFailuresTotal tracks contained reply-generation failures.
	ReplyFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_reply_failures_total",
			Help: "Total reply generation or persist failures (contained)",
		},
	)

	// FeedEventsTotal tracks change feed events delivered, by topic.
	FeedEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_feed_events_total",
			Help: "Total change feed events delivered to subscribers",
		},
		[]string{"topic"},
	)

	// SSEConnectionsActive tracks active SSE stream connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
