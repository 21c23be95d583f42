package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivated,
		activationFailures,
		provisioning,
	)
}

var (
	subscriptionsActivated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscriptions created from completed orders.",
		},
	)

	activationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_activation_failures_total",
			Help: "Activation attempts that did not create a subscription, by reason.",
		},
		[]string{"reason"},
	)

	provisioning = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hosting_provisioning_total",
			Help: "Hosting panel provisioning attempts by status.",
		},
		[]string{"status"},
	)
)

func IncSubscriptionActivated() {
	subscriptionsActivated.Inc()
}

func IncActivationFailure(reason string) {
	activationFailures.WithLabelValues(norm(reason)).Inc()
}

func IncProvisioning(status string) {
	provisioning.WithLabelValues(norm(status)).Inc()
}
