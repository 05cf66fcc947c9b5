package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	red "viraliza-billing/internal/infra/redis"
	"viraliza-billing/internal/usecase"
)

const (
	payoutLockKey = "lock:payout_batch"
	payoutLockTTL = 10 * time.Minute
	payoutBatch   = 500
)

// PayoutWorker settles eligible pending commissions on a schedule. The batch
// runs under a distributed lock so multiple instances never settle the same
// window concurrently; MarkPaid is conditional anyway, the lock just avoids
// wasted work.
type PayoutWorker struct {
	interval time.Duration
	affUC    usecase.AffiliateUseCase
	locker   red.Locker
	log      *zerolog.Logger
}

func NewPayoutWorker(interval time.Duration, affUC usecase.AffiliateUseCase, locker red.Locker, logger *zerolog.Logger) *PayoutWorker {
	payLog := logger.With().Str("component", "PayoutWorker").Logger()
	if interval <= 0 {
		interval = time.Hour
	}
	return &PayoutWorker{
		interval: interval,
		affUC:    affUC,
		locker:   locker,
		log:      &payLog,
	}
}

func (w *PayoutWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting payout worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payout worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PayoutWorker) tick(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, payoutLockKey, payoutLockTTL)
	if err != nil {
		if errors.Is(err, red.ErrLockHeld) {
			w.log.Debug().Msg("payout batch running elsewhere")
			return
		}
		w.log.Error().Err(err).Msg("payout lock acquisition failed")
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, payoutLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("payout lock release failed")
		}
	}()

	settled, err := w.affUC.SettlePayable(ctx, time.Now().UTC(), payoutBatch)
	if err != nil {
		w.log.Error().Err(err).Msg("payout batch error")
		return
	}
	if settled > 0 {
		w.log.Info().Int("settled", settled).Msg("commissions paid out")
	}
}
