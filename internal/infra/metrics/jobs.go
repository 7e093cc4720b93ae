package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(jobsStartedTotal, jobsFinishedTotal, jobsInFlight, jobDurationSeconds, jobsRejectedTotal)
}

var (
	jobsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_started_total",
			Help: "Background jobs accepted, labeled by kind.",
		},
		[]string{"kind"},
	)

	jobsFinishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_finished_total",
			Help: "Background jobs finished, labeled by kind and terminal status.",
		},
		[]string{"kind", "status"}, // succeeded, failed, cancelled
	)

	jobsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_rejected_total",
			Help: "Start requests rejected because the worker queue was full.",
		},
		[]string{"kind"},
	)

	jobsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobs_in_flight",
			Help: "Jobs currently executing on a worker.",
		},
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Wall time of finished jobs.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 900},
		},
		[]string{"kind"},
	)
)

func IncJobStarted(kind string) {
	jobsStartedTotal.WithLabelValues(norm(kind)).Inc()
}

func IncJobRejected(kind string) {
	jobsRejectedTotal.WithLabelValues(norm(kind)).Inc()
}

func ObserveJobFinished(kind, status string, d time.Duration) {
	jobsFinishedTotal.WithLabelValues(norm(kind), norm(status)).Inc()
	jobDurationSeconds.WithLabelValues(norm(kind)).Observe(d.Seconds())
}

func JobInFlight(delta float64) {
	jobsInFlight.Add(delta)
}
