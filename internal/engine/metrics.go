package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opcalcd",
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Operation executions by outcome",
		},
		[]string{"operation", "status"},
	)

	executeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opcalcd",
			Subsystem: "engine",
			Name:      "execute_duration_seconds",
			Help:      "End-to-end duration of operation requests (including queue wait)",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal, executeDuration)
}
