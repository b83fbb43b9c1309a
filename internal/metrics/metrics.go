package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dfes_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dfes_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	MessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dfes_messages_published_total",
			Help: "Total messages appended to history and broadcast",
		},
	)

	Subscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dfes_stream_subscribers",
			Help: "Currently connected stream subscribers",
		},
	)

	SubscribersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dfes_stream_subscribers_dropped_total",
			Help: "Subscribers removed from the broadcast set",
		},
		[]string{"reason"}, // "slow" or "disconnect"
	)

	// Webhook metrics
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dfes_webhook_deliveries_total",
			Help: "Outbound webhook delivery attempts",
		},
		[]string{"kind", "outcome"}, // kind: "text"/"voice", outcome: "ok"/"error"
	)

	WebhookLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dfes_webhook_latency_seconds",
			Help:    "Outbound webhook round-trip latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)
