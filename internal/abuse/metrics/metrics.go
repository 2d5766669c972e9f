package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	WindowsRecordedTotal   *prometheus.CounterVec
	LimitedTotal           *prometheus.CounterVec
	IdentitiesClearedTotal prometheus.Counter
	CleanupRunsTotal       *prometheus.CounterVec
	CleanupPurgedTotal     prometheus.Counter
	CleanupDurationSeconds prometheus.Histogram
	StoreFailuresTotal     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		WindowsRecordedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_ratelimit_records_total",
			Help: "Total number of rate limit increments, labeled by route",
		}, []string{"route"}),
		LimitedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_ratelimit_limited_total",
			Help: "Total number of checks that found a window at its limit, labeled by route",
		}, []string{"route"}),
		IdentitiesClearedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "otpgate_ratelimit_identities_cleared_total",
			Help: "Total number of identity forgiveness operations after successful verification",
		}),
		CleanupRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_ratelimit_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		}, []string{"status"}),
		CleanupPurgedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "otpgate_ratelimit_cleanup_purged_total",
			Help: "Total number of expired rows removed by the cleanup worker",
		}),
		CleanupDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "otpgate_ratelimit_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
		StoreFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_ratelimit_store_failures_total",
			Help: "Total number of rate limit store errors, labeled by operation",
		}, []string{"operation"}),
	}
}
