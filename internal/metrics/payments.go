package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersCreated,
		orderTransitions,
		paymentCallbacks,
		gatewayLatency,
	)
}

var (
	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders opened at checkout.",
		},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions by target status.",
		},
		[]string{"to"},
	)

	paymentCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway callbacks by handling result (applied/duplicate/ignored/rejected/unknown_order).",
		},
		[]string{"result"},
	)

	gatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_latency_seconds",
			Help:    "Latency of payment gateway calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "success"},
	)
)

func IncOrderCreated() {
	ordersCreated.Inc()
}

func IncOrderTransition(to string) {
	orderTransitions.WithLabelValues(norm(to)).Inc()
}

func IncCallback(result string) {
	paymentCallbacks.WithLabelValues(norm(result)).Inc()
}

func ObserveGateway(op string, seconds float64, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	gatewayLatency.WithLabelValues(norm(op), s).Observe(seconds)
}
