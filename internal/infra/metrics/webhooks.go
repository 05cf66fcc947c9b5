package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookEventsTotal,
		webhookDuplicatesTotal,
		webhookSignatureFailures,
	)
}

var (
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound webhook events by type and outcome (processed/ignored/failed).",
		},
		[]string{"type", "outcome"},
	)

	webhookDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_duplicate_deliveries_total",
			Help: "Deliveries acknowledged without reprocessing because the event id was already claimed.",
		},
	)

	webhookSignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Deliveries rejected for a missing or invalid signature.",
		},
	)
)

func IncWebhookEvent(eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(norm(eventType), norm(outcome)).Inc()
}

func IncWebhookDuplicate() { webhookDuplicatesTotal.Inc() }

func IncWebhookSignatureFailure() { webhookSignatureFailures.Inc() }
