package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connections_active",
			Help: "Live connections registered on this node",
		},
	)

	RoomsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_rooms_active",
			Help: "Rooms with at least one member",
		},
	)

	HandshakesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_handshakes_total",
			Help: "Socket handshakes",
		},
		[]string{"kind", "result"},
	)

	// Fan-out metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_published_total",
			Help: "Events published through the dispatcher",
		},
		[]string{"type", "origin"}, // origin is "local" or "bridge"
	)

	EventRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_event_recipients",
			Help:    "Connections reached by one event",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	DeliveriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_deliveries_total",
			Help: "Frames handed to a transport",
		},
	)

	DeliveriesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_deliveries_dropped_total",
			Help: "Frames that could not be handed to a transport",
		},
		[]string{"reason"},
	)

	// Command metrics
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_commands_total",
			Help: "Client commands by verb and outcome",
		},
		[]string{"verb", "result"},
	)

	// Bridge metrics
	BridgeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_bridge_events_total",
			Help: "Events crossing the node bridge",
		},
		[]string{"direction", "result"},
	)

	// Runtime metrics
	QueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_queue_length",
			Help: "Buffered items waiting in an internal queue",
		},
		[]string{"queue"},
	)

	ProcessRSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_process_rss_bytes",
			Help: "Resident memory of the hub process",
		},
	)

	ProcessCPUPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_process_cpu_percent",
			Help: "CPU usage of the hub process",
		},
	)

	IdleConnectionsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_idle_connections_reaped_total",
			Help: "Connections closed for inactivity",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)
