package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildInfo, historyPoolConns, historyWriteErrorsTotal) }

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wildfire_dashboard_build_info",
			Help: "Always 1; labels carry the running version and commit.",
		},
		[]string{"version", "commit"},
	)

	historyPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "job_history_pool_conns",
			Help: "Connections of the job history pool, by state.",
		},
		[]string{"state"}, // total, idle, acquired
	)

	historyWriteErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_history_write_errors_total",
			Help: "Job history writes that failed, by operation.",
		},
		[]string{"op"}, // start, finish
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func SetHistoryPool(total, idle, acquired int32) {
	historyPoolConns.WithLabelValues("total").Set(float64(total))
	historyPoolConns.WithLabelValues("idle").Set(float64(idle))
	historyPoolConns.WithLabelValues("acquired").Set(float64(acquired))
}

func IncHistoryWriteError(op string) {
	historyWriteErrorsTotal.WithLabelValues(norm(op)).Inc()
}
