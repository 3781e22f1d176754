package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_events_published_total",
			Help: "Total number of events published on the bus",
		},
		[]string{"topic"},
	)

	handlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_event_handler_panics_total",
			Help: "Total number of recovered event handler panics",
		},
		[]string{"topic"},
	)
)
