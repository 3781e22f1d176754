package facilitator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	repliesScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_facilitator_replies_scheduled_total",
			Help: "Total number of facilitator replies scheduled",
		},
		[]string{"category"},
	)

	repliesDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_facilitator_replies_delivered_total",
			Help: "Total number of facilitator replies delivered",
		},
		[]string{"category"},
	)

	promptsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circles_daily_prompts_generated_total",
			Help: "Total number of daily prompts generated",
		},
	)
)
