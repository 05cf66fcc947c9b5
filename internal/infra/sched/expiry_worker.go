package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"viraliza-billing/internal/infra/metrics"
	"viraliza-billing/internal/usecase"
)

// ExpiryWorker periodically finishes subscriptions whose paid period ended.
// Webhooks are the primary lifecycle driver; this sweep is the backstop for
// deliveries that never arrived.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.subUC.FinishExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
			if n > 0 {
				metrics.AddSubscriptionsExpired(n)
				w.log.Info().Int("count", n).Msg("expired subscriptions finished")
			}
		}
	}
}
