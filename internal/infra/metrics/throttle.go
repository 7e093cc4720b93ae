package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(throttlePausesTotal, throttlePauseSeconds) }

var (
	throttlePausesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_pauses_total",
			Help: "Self-imposed job pauses, labeled by pressure reason.",
		},
		[]string{"reason"}, // cpu, memory
	)

	throttlePauseSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "throttle_pause_seconds_total",
			Help: "Total time jobs spent paused for resource pressure.",
		},
		[]string{"reason"},
	)
)

func ObserveThrottle(reason string, pause time.Duration) {
	throttlePausesTotal.WithLabelValues(norm(reason)).Inc()
	throttlePauseSeconds.WithLabelValues(norm(reason)).Add(pause.Seconds())
}
