// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/ports/adapter"
	"viraliza-billing/internal/domain/ports/repository"
)

var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase creates outbound checkout sessions. The metadata written
// here is what the webhook pipeline reads back when the session completes.
type CheckoutUseCase interface {
	// StartPlanCheckout opens a subscription checkout for a plan and returns
	// the redirect URL.
	StartPlanCheckout(ctx context.Context, userID, planID string) (string, error)
	// StartToolCheckout opens a one-off payment checkout for a tool.
	StartToolCheckout(ctx context.Context, userID, toolID, toolName string, priceCents int64, currency string) (string, error)
}

type checkoutUC struct {
	plans      repository.PlanRepository
	gateway    adapter.CheckoutGateway
	successURL string
	cancelURL  string
	log        *zerolog.Logger
}

func NewCheckoutUseCase(plans repository.PlanRepository, gateway adapter.CheckoutGateway, successURL, cancelURL string, logger *zerolog.Logger) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{plans: plans, gateway: gateway, successURL: successURL, cancelURL: cancelURL, log: &l}
}

func (u *checkoutUC) StartPlanCheckout(ctx context.Context, userID, planID string) (string, error) {
	if userID == "" || planID == "" {
		return "", domain.ErrInvalidArgument
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return "", err
	}
	if !plan.Active {
		return "", domain.ErrNotFound
	}

	sessionID, redirect, err := u.gateway.CreateSession(ctx, adapter.CheckoutParams{
		Mode:        "subscription",
		AmountCents: plan.PriceCents,
		Currency:    plan.Currency,
		ProductName: plan.Name,
		SuccessURL:  u.successURL,
		CancelURL:   u.cancelURL,
		CustomerRef: userID,
		Metadata: map[string]string{
			"user_id":      userID,
			"plan_id":      plan.ID,
			"product_name": plan.Name,
		},
	})
	if err != nil {
		return "", err
	}
	u.log.Info().Str("user_id", userID).Str("plan_id", planID).Str("session", sessionID).Msg("plan checkout created")
	return redirect, nil
}

func (u *checkoutUC) StartToolCheckout(ctx context.Context, userID, toolID, toolName string, priceCents int64, currency string) (string, error) {
	if userID == "" || toolID == "" || priceCents <= 0 {
		return "", domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "brl"
	}

	sessionID, redirect, err := u.gateway.CreateSession(ctx, adapter.CheckoutParams{
		Mode:        "payment",
		AmountCents: priceCents,
		Currency:    currency,
		ProductName: toolName,
		SuccessURL:  u.successURL,
		CancelURL:   u.cancelURL,
		CustomerRef: userID,
		Metadata: map[string]string{
			"user_id":      userID,
			"product_type": "tool",
			"product_id":   toolID,
			"product_name": toolName,
		},
	})
	if err != nil {
		return "", err
	}
	u.log.Info().Str("user_id", userID).Str("tool_id", toolID).Str("session", sessionID).Msg("tool checkout created")
	return redirect, nil
}
