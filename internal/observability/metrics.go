package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Room fan-out metrics
	RoomSubscribersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "room_subscribers_active",
			Help: "Number of live subscriptions per room",
		},
		[]string{"room"},
	)

	RoomMessagesBroadcast = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_messages_broadcast_total",
			Help: "Total number of messages delivered to subscribers",
		},
		[]string{"room"},
	)

	RoomSubscribersDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "room_subscribers_dropped_total",
			Help: "Subscribers disconnected because their buffer overflowed",
		},
		[]string{"room"},
	)

	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_stored_total",
			Help: "Total number of messages durably stored",
		},
		[]string{"room"},
	)

	// Database metrics
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_in_use",
			Help: "Number of database connections currently in use",
		},
	)
)
