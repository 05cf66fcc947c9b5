// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase maintains subscription state driven by platform events.
// All mutating methods take the caller's transaction so they compose with the
// webhook pipeline.
type SubscriptionUseCase interface {
	// Activate creates or reactivates the subscription with the given
	// external id and supersedes any other active subscription the user
	// holds. Duplicate activations for the same external id are safe.
	Activate(ctx context.Context, tx repository.Tx, externalID, userID, planTag string, periodStart, periodEnd time.Time) (*model.Subscription, error)

	// ApplyUpdate propagates status, billing period and the
	// cancel-at-period-end flag from a subscription-updated event.
	// A canceled subscription stays canceled.
	ApplyUpdate(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayload) error

	// Cancel is the subscription-deleted handler. Idempotent.
	Cancel(ctx context.Context, tx repository.Tx, externalID string) error

	// MarkPastDue is the invoice-payment-failed handler.
	MarkPastDue(ctx context.Context, tx repository.Tx, externalID string) error

	// FinishExpired cancels subscriptions whose period ended while
	// cancel_at_period_end was set. Used by the expiry sweep.
	FinishExpired(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	l := logger.With().Str("component", "SubscriptionUC").Logger()
	return &subscriptionUC{subs: subs, log: &l}
}

func (u *subscriptionUC) Activate(ctx context.Context, tx repository.Tx, externalID, userID, planTag string, periodStart, periodEnd time.Time) (*model.Subscription, error) {
	if externalID == "" || userID == "" {
		return nil, domain.ErrInvalidPayload
	}

	s, err := u.subs.FindByExternalID(ctx, tx, externalID)
	switch {
	case err == nil:
		if s.Status == model.SubscriptionStatusCanceled {
			// terminal; a late activation for a canceled id is a no-op
			return s, nil
		}
	case errors.Is(err, domain.ErrNotFound):
		s, err = model.NewSubscription(uuid.NewString(), externalID, userID, planTag)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if planTag != "" {
		s.PlanTag = planTag
	}
	s.Activate(periodStart, periodEnd)

	// The partial unique index on (user_id) WHERE status='active' is the
	// backstop; superseding here keeps the happy path conflict-free.
	if n, err := u.subs.CancelOtherActive(ctx, tx, userID, externalID); err != nil {
		return nil, err
	} else if n > 0 {
		u.log.Info().Str("user_id", userID).Int("superseded", n).Msg("previous active subscription canceled")
	}

	if err := u.subs.Save(ctx, tx, s); err != nil {
		return nil, err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusActive))
	return s, nil
}

func (u *subscriptionUC) ApplyUpdate(ctx context.Context, tx repository.Tx, p *model.SubscriptionPayload) error {
	if p == nil || p.ID == "" {
		return domain.ErrInvalidPayload
	}
	s, err := u.subs.FindByExternalID(ctx, tx, p.ID)
	if err != nil {
		return err
	}
	if s.Status == model.SubscriptionStatusCanceled {
		return nil
	}

	switch p.Status {
	case "active", "trialing":
		s.Status = model.SubscriptionStatusActive
	case "past_due", "unpaid":
		s.Status = model.SubscriptionStatusPastDue
	case "canceled":
		s.Status = model.SubscriptionStatusCanceled
	case "incomplete", "incomplete_expired":
		s.Status = model.SubscriptionStatusPending
	}
	if p.CurrentPeriodStart > 0 {
		start := time.Unix(p.CurrentPeriodStart, 0)
		s.PeriodStart = &start
	}
	if p.CurrentPeriodEnd > 0 {
		end := time.Unix(p.CurrentPeriodEnd, 0)
		s.PeriodEnd = &end
	}
	s.CancelAtPeriodEnd = p.CancelAtPeriodEnd
	if tag := p.PlanTag(); tag != "" {
		s.PlanTag = tag
	}
	s.UpdatedAt = time.Now()

	if err := u.subs.Save(ctx, tx, s); err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(s.Status))
	return nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, tx repository.Tx, externalID string) error {
	if externalID == "" {
		return domain.ErrInvalidPayload
	}
	err := u.subs.UpdateStatus(ctx, tx, externalID, model.SubscriptionStatusCanceled)
	if err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusCanceled))
	return nil
}

func (u *subscriptionUC) MarkPastDue(ctx context.Context, tx repository.Tx, externalID string) error {
	if externalID == "" {
		return domain.ErrInvalidPayload
	}
	err := u.subs.UpdateStatus(ctx, tx, externalID, model.SubscriptionStatusPastDue)
	if err != nil {
		return err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusPastDue))
	return nil
}

func (u *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	expiring, err := u.subs.ListExpiring(ctx, repository.NoTX, time.Now(), 200)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, s := range expiring {
		if !s.CancelAtPeriodEnd {
			continue
		}
		if err := u.subs.UpdateStatus(ctx, repository.NoTX, s.ExternalID, model.SubscriptionStatusCanceled); err != nil {
			u.log.Error().Err(err).Str("subscription", s.ExternalID).Msg("expiry cancel failed")
			continue
		}
		n++
	}
	return n, nil
}
