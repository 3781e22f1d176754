package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_messages_sent_total",
			Help: "Total number of circle messages sent",
		},
		[]string{"automated"},
	)

	reactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_reactions_total",
			Help: "Total number of reaction changes",
		},
		[]string{"action"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "circles_websocket_connections",
			Help: "Number of open websocket connections",
		},
	)

	droppedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circles_websocket_dropped_frames_total",
			Help: "Frames dropped because a client could not keep up",
		},
	)
)
