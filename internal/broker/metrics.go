package broker

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "opcalcd",
		Subsystem: "broker",
		Name:      "requests_total",
		Help:      "Total device access requests",
	})

	waitingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "opcalcd",
		Subsystem: "broker",
		Name:      "waiting_requests",
		Help:      "Requests currently waiting for the device gate",
	})

	busyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "opcalcd",
		Subsystem: "broker",
		Name:      "device_busy",
		Help:      "1 while a request holds the device, else 0",
	})

	waitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "opcalcd",
		Subsystem: "broker",
		Name:      "wait_seconds",
		Help:      "Time spent waiting for device admission",
		Buckets:   prometheus.DefBuckets,
	})

	maxWaitGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "opcalcd",
		Subsystem: "broker",
		Name:      "max_wait_seconds",
		Help:      "Largest observed admission wait since process start",
	})

	abandonedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "opcalcd",
		Subsystem: "broker",
		Name:      "abandoned_waits_total",
		Help:      "Waiters that gave up (context canceled) before admission",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, waitingGauge, busyGauge, waitSeconds, maxWaitGauge, abandonedTotal)
}
