// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

var _ WebhookUseCase = (*webhookUC)(nil)

// Outcome describes how one delivery was concluded. Every outcome except
// a transient error is acknowledged to the platform with a success status.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed" // permanent handler failure, recorded
)

type WebhookUseCase interface {
	// Process runs the idempotency gate, the router and the event bookkeeping
	// inside one transaction. A returned error means the whole delivery was
	// rolled back — including the idempotency claim — and the platform should
	// retry. Business failures that redelivery cannot fix are recorded on the
	// event instead and do not surface as errors.
	Process(ctx context.Context, ev *model.WebhookEvent) (Outcome, error)
}

type webhookUC struct {
	tm          repository.TransactionManager
	events      repository.WebhookEventRepository
	subs        SubscriptionUseCase
	subRepo     repository.SubscriptionRepository
	commissions CommissionUseCase
	toolAccess  repository.ToolAccessRepository
	activities  repository.ActivityRepository
	log         *zerolog.Logger
}

func NewWebhookUseCase(
	tm repository.TransactionManager,
	events repository.WebhookEventRepository,
	subs SubscriptionUseCase,
	subRepo repository.SubscriptionRepository,
	commissions CommissionUseCase,
	toolAccess repository.ToolAccessRepository,
	activities repository.ActivityRepository,
	logger *zerolog.Logger,
) *webhookUC {
	l := logger.With().Str("component", "WebhookUC").Logger()
	return &webhookUC{
		tm:          tm,
		events:      events,
		subs:        subs,
		subRepo:     subRepo,
		commissions: commissions,
		toolAccess:  toolAccess,
		activities:  activities,
		log:         &l,
	}
}

func (u *webhookUC) Process(ctx context.Context, ev *model.WebhookEvent) (Outcome, error) {
	if ev == nil || ev.ID == "" {
		return OutcomeFailed, domain.ErrInvalidArgument
	}

	outcome := OutcomeProcessed
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		admitted, err := u.events.Claim(ctx, tx, ev)
		if err != nil {
			return err
		}
		if !admitted {
			outcome = OutcomeDuplicate
			return nil
		}

		res := model.EventResult{Outcome: string(OutcomeProcessed)}
		herr := u.dispatch(ctx, tx, ev)
		switch {
		case herr == nil:
		case errors.Is(herr, domain.ErrUnknownEventType):
			outcome = OutcomeIgnored
			res = model.EventResult{Outcome: string(OutcomeIgnored), Detail: string(ev.Type)}
		case domain.Permanent(herr):
			// Redelivery cannot fix these; record and acknowledge so the
			// platform stops retrying.
			outcome = OutcomeFailed
			res = model.EventResult{Outcome: string(OutcomeFailed), Detail: herr.Error()}
			u.log.Warn().Err(herr).Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("handler failed permanently")
		default:
			// Transient. Roll back everything, claim included, and let the
			// platform redeliver.
			return herr
		}
		return u.events.MarkProcessed(ctx, tx, ev.ID, res.Marshal(), time.Now())
	})
	if err != nil {
		metrics.IncWebhookEvent(string(ev.Type), "error")
		return OutcomeFailed, err
	}

	if outcome == OutcomeDuplicate {
		metrics.IncWebhookDuplicate()
	} else {
		metrics.IncWebhookEvent(string(ev.Type), string(outcome))
	}
	u.log.Debug().Str("event_id", ev.ID).Str("type", string(ev.Type)).Str("outcome", string(outcome)).Msg("event concluded")
	return outcome, nil
}

// dispatch routes by event type. Exactly one handler per type; unknown types
// bubble up as ErrUnknownEventType and are acknowledged as no-ops.
func (u *webhookUC) dispatch(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	switch ev.Type {
	case model.EventCheckoutSessionCompleted:
		return u.handleCheckoutCompleted(ctx, tx, ev)
	case model.EventSubscriptionCreated, model.EventSubscriptionUpdated:
		return u.handleSubscriptionUpserted(ctx, tx, ev)
	case model.EventSubscriptionDeleted:
		return u.handleSubscriptionDeleted(ctx, tx, ev)
	case model.EventInvoicePaymentSucceeded:
		return u.handleInvoicePaid(ctx, tx, ev)
	case model.EventInvoicePaymentFailed:
		return u.handleInvoiceFailed(ctx, tx, ev)
	case model.EventPaymentIntentSucceeded:
		return u.handlePaymentIntent(ctx, tx, ev)
	default:
		return domain.ErrUnknownEventType
	}
}

func (u *webhookUC) handleCheckoutCompleted(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	var p model.CheckoutSessionPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("%w: checkout session: %v", domain.ErrInvalidPayload, err)
	}
	buyerID := p.Metadata["user_id"]
	if buyerID == "" {
		return fmt.Errorf("%w: checkout session %s has no user_id metadata", domain.ErrInvalidPayload, p.ID)
	}

	if p.Mode == "subscription" && p.Subscription != "" {
		start := ev.ReceivedAt
		end := start.AddDate(0, 1, 0) // refined by the subscription-updated event
		if _, err := u.subs.Activate(ctx, tx, p.Subscription, buyerID, p.Metadata["plan_id"], start, end); err != nil {
			return err
		}
	}

	if p.Mode == "payment" {
		switch p.Metadata["product_type"] {
		case "tool", "ad":
			grant, err := model.NewToolAccess(ulid.Make().String(), buyerID, p.Metadata["product_id"], p.ID)
			if err != nil {
				return err
			}
			if err := u.toolAccess.Save(ctx, tx, grant); err != nil {
				return err
			}
		}
	}

	_, err := u.commissions.Register(ctx, tx, Sale{
		BuyerUserID: buyerID,
		SaleID:      p.ID,
		Amount:      p.AmountTotal,
		Currency:    p.Currency,
		BuyerEmail:  p.CustomerDetails.Email,
		ProductName: p.Metadata["product_name"],
		Date:        ev.ReceivedAt,
	})
	return err
}

func (u *webhookUC) handleSubscriptionUpserted(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	var p model.SubscriptionPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("%w: subscription: %v", domain.ErrInvalidPayload, err)
	}

	if ev.Type == model.EventSubscriptionCreated {
		userID := p.Metadata["user_id"]
		if userID == "" {
			userID = p.Customer
		}
		start := time.Unix(p.CurrentPeriodStart, 0)
		end := time.Unix(p.CurrentPeriodEnd, 0)
		_, err := u.subs.Activate(ctx, tx, p.ID, userID, p.PlanTag(), start, end)
		return err
	}
	return u.subs.ApplyUpdate(ctx, tx, &p)
}

func (u *webhookUC) handleSubscriptionDeleted(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	var p model.SubscriptionPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("%w: subscription: %v", domain.ErrInvalidPayload, err)
	}
	return u.subs.Cancel(ctx, tx, p.ID)
}

func (u *webhookUC) handleInvoicePaid(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	var p model.InvoicePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("%w: invoice: %v", domain.ErrInvalidPayload, err)
	}
	// Only the invoice that marks a brand-new subscription's first charge
	// registers a commission; renewals just log.
	if p.BillingReason != model.BillingReasonSubscriptionCreate {
		u.log.Info().Str("invoice", p.ID).Str("billing_reason", p.BillingReason).Msg("renewal invoice paid")
		return nil
	}

	buyerID := p.Metadata["user_id"]
	if buyerID == "" && p.Subscription != "" {
		// Checkout-created subscriptions carry no invoice metadata; resolve
		// the buyer through the subscription row.
		s, err := u.subsOwner(ctx, tx, p.Subscription)
		if err != nil {
			return err
		}
		buyerID = s
	}
	if buyerID == "" {
		return fmt.Errorf("%w: invoice %s has no resolvable buyer", domain.ErrInvalidPayload, p.ID)
	}

	_, err := u.commissions.Register(ctx, tx, Sale{
		BuyerUserID: buyerID,
		SaleID:      p.ID,
		Amount:      p.AmountPaid,
		Currency:    p.Currency,
		BuyerEmail:  p.CustomerEmail,
		ProductName: "Assinatura",
		Date:        ev.ReceivedAt,
	})
	return err
}

func (u *webhookUC) handleInvoiceFailed(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	var p model.InvoicePayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("%w: invoice: %v", domain.ErrInvalidPayload, err)
	}
	if p.Subscription == "" {
		return fmt.Errorf("%w: failed invoice %s not tied to a subscription", domain.ErrInvalidPayload, p.ID)
	}
	if err := u.subs.MarkPastDue(ctx, tx, p.Subscription); err != nil {
		return err
	}
	return u.activities.Append(ctx, tx, &model.Activity{
		ID:        ulid.Make().String(),
		UserID:    p.Metadata["user_id"],
		Kind:      "invoice_payment_failed",
		Detail:    p.ID,
		Amount:    p.AmountDue,
		CreatedAt: time.Now(),
	})
}

func (u *webhookUC) handlePaymentIntent(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) error {
	var p model.PaymentIntentPayload
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		return fmt.Errorf("%w: payment intent: %v", domain.ErrInvalidPayload, err)
	}
	userID := p.Metadata["user_id"]
	if userID == "" {
		// Payment intents without our metadata belong to other flows.
		u.log.Debug().Str("payment_intent", p.ID).Msg("payment intent without user metadata, skipping")
		return nil
	}
	return u.activities.Append(ctx, tx, &model.Activity{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Kind:      "standalone_payment",
		Detail:    p.ID,
		Amount:    p.Amount,
		CreatedAt: time.Now(),
	})
}

// subsOwner resolves the owning user of an external subscription id.
func (u *webhookUC) subsOwner(ctx context.Context, tx repository.Tx, externalID string) (string, error) {
	s, err := u.subRepo.FindByExternalID(ctx, tx, externalID)
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}
