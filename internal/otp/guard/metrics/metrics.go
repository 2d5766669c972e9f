// Package metrics exposes Prometheus collectors for the OTP guard
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SendsTotal      *prometheus.CounterVec
	VerifiesTotal   *prometheus.CounterVec
	LockoutsTotal   *prometheus.CounterVec
	FlowResetsTotal *prometheus.CounterVec
	WrongEmailTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SendsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_otp_sends_total",
			Help: "Total number of send-otp decisions, labeled by flow and outcome",
		}, []string{"flow", "outcome"}),
		VerifiesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_otp_verifies_total",
			Help: "Total number of verify-otp decisions, labeled by flow and outcome",
		}, []string{"flow", "outcome"}),
		LockoutsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_otp_lockouts_total",
			Help: "Total number of timed lockouts armed, labeled by flow",
		}, []string{"flow"}),
		FlowResetsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_otp_flow_resets_total",
			Help: "Total number of forced flow restarts after exceeded attempts, labeled by flow",
		}, []string{"flow"}),
		WrongEmailTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "otpgate_otp_wrong_email_total",
			Help: "Total number of guarded unknown-email responses, labeled by flow",
		}, []string{"flow"}),
	}
}
