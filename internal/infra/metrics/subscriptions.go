package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionTransitions,
		subscriptionsExpired,
	)
}

var (
	subscriptionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription lifecycle transitions by target status.",
		},
		[]string{"status"},
	)

	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions canceled by the expiry sweep.",
		},
	)
)

func IncSubscriptionTransition(status string) {
	subscriptionTransitions.WithLabelValues(norm(status)).Inc()
}

func AddSubscriptionsExpired(n int) {
	subscriptionsExpired.Add(float64(n))
}
