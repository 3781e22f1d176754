package milestones

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkInsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_check_ins_recorded_total",
			Help: "Total number of goal check-ins recorded",
		},
		[]string{"completed"},
	)

	milestonesReached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circles_milestones_reached_total",
			Help: "Total number of goal milestones reached",
		},
		[]string{"milestone"},
	)
)
