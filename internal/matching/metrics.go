package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "circles_match_scores",
			Help:    "Distribution of weighted circle match scores",
			Buckets: prometheus.LinearBuckets(0, 1, 9),
		},
	)

	recommendationsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "circles_recommendations_served_total",
			Help: "Total number of circle recommendations returned",
		},
	)
)
