package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(streamsOpen, streamsClosedTotal, sessionsTracked, resultsEvictedTotal) }

var (
	streamsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_streams_open",
			Help: "Progress subscribers currently attached.",
		},
	)

	streamsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_streams_closed_total",
			Help: "Progress streams closed, labeled by reason.",
		},
		[]string{"reason"}, // succeeded, failed, cancelled, stale, gone, client
	)

	sessionsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "progress_sessions",
			Help: "Sessions currently held in the progress table.",
		},
	)

	resultsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "job_results_evicted_total",
			Help: "Job results removed by the janitor after their TTL.",
		},
	)
)

func StreamOpened() { streamsOpen.Inc() }

func StreamClosed(reason string) {
	streamsOpen.Dec()
	streamsClosedTotal.WithLabelValues(norm(reason)).Inc()
}

func SetSessions(n int) { sessionsTracked.Set(float64(n)) }

func AddResultsEvicted(n int) { resultsEvictedTotal.Add(float64(n)) }
