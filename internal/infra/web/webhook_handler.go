package web

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82/webhook"

	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/infra/logging"
	"viraliza-billing/internal/infra/metrics"
)

// The platform signs the exact bytes; cap the body so a hostile sender
// cannot buffer us to death.
const webhookBodyLimit = 1 << 20 // 1 MiB

// handleStripeWebhook authenticates the delivery and hands it to the
// pipeline. It must not mutate any state itself: everything after signature
// verification happens behind the idempotency gate.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.With(r.Context(), s.log)

	if s.webhookSecret == "" {
		// Fail closed: a deployment without the secret must never accept.
		log.Error().Msg("stripe webhook secret is not configured")
		http.Error(w, "webhook not configured", http.StatusInternalServerError)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if sigHeader == "" {
		metrics.IncWebhookSignatureFailure()
		http.Error(w, "missing signature", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyLimit))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, sigHeader, s.webhookSecret)
	if err != nil {
		metrics.IncWebhookSignatureFailure()
		log.Warn().Err(err).Msg("webhook signature verification failed")
		http.Error(w, "signature verification failed", http.StatusBadRequest)
		return
	}

	ev, err := model.NewWebhookEvent(event.ID, model.EventType(event.Type), event.Data.Raw)
	if err != nil {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	ctx := logging.WithEventID(r.Context(), ev.ID)
	outcome, err := s.webhookUC.Process(ctx, ev)
	if err != nil {
		// Transient failure: non-2xx makes the platform redeliver, which is
		// safe because the claim was rolled back with everything else.
		log.Error().Err(err).Str("event_id", ev.ID).Msg("event processing failed")
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"received": true,
		"outcome":  string(outcome),
	})
}
