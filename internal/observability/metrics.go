package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "crowdship", Name: "requests_created_total", Help: "Total carry requests created"})
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "crowdship", Name: "request_status_transitions_total", Help: "Request status transitions applied"},
		[]string{"status"},
	)
	TravelersRegistered = promauto.NewCounter(prometheus.CounterOpts{Namespace: "crowdship", Name: "travelers_registered_total", Help: "Total traveler profiles created"})
	FeedConnections     = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "crowdship", Name: "feed_connections", Help: "Open live-feed websocket sessions"})
	EventsPublished     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "crowdship", Name: "events_published_total", Help: "Lifecycle events handed to Kafka"})
	EventPublishErrors  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "crowdship", Name: "event_publish_errors_total", Help: "Lifecycle events Kafka refused"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "crowdship", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "crowdship",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
