package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		otpChecks,
		emailDeliveries,
		resetRequests,
	)
}

var (
	otpChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_checks_total",
			Help: "Email OTP checks by outcome.",
		},
		[]string{"outcome"},
	)

	emailDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_deliveries_total",
			Help: "Outgoing emails by template and status.",
		},
		[]string{"kind", "status"},
	)

	resetRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "password_reset_total",
			Help: "Password reset requests and redemptions by outcome.",
		},
		[]string{"stage", "outcome"},
	)
)

func IncOTPCheck(outcome string) {
	otpChecks.WithLabelValues(norm(outcome)).Inc()
}

func IncEmail(kind string, ok bool) {
	status := "sent"
	if !ok {
		status = "failed"
	}
	emailDeliveries.WithLabelValues(norm(kind), status).Inc()
}

func IncReset(stage, outcome string) {
	resetRequests.WithLabelValues(norm(stage), norm(outcome)).Inc()
}
