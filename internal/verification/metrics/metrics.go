// Package metrics exposes Prometheus collectors for the verification
// attempt ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	InvalidAttemptsTotal prometheus.Counter
	CyclesResetTotal     prometheus.Counter
	StoreFailuresTotal   *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		InvalidAttemptsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "otpgate_verification_invalid_attempts_total",
			Help: "Total number of invalid verification attempts recorded",
		}),
		CyclesResetTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "otpgate_verification_cycles_reset_total",
			Help: "Total number of attempt cycles reset by resend or success",
		}),
		StoreFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_verification_store_failures_total",
			Help: "Total number of attempt store errors, labeled by operation",
		}, []string{"operation"}),
	}
}
