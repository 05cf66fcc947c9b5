package payment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/ports/adapter"
)

var _ adapter.CheckoutGateway = (*StripeGateway)(nil)

// StripeGateway creates hosted checkout sessions. Amounts stay in minor
// units end to end; Stripe already speaks cents.
type StripeGateway struct {
	log *zerolog.Logger
}

func NewStripeGateway(secretKey string, logger *zerolog.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		return nil, domain.ErrInvalidArgument
	}
	stripe.Key = secretKey
	l := logger.With().Str("component", "StripeGateway").Logger()
	return &StripeGateway{log: &l}, nil
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateSession(ctx context.Context, p adapter.CheckoutParams) (string, string, error) {
	if p.AmountCents <= 0 || p.Mode == "" {
		return "", "", domain.ErrInvalidArgument
	}

	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(p.Currency),
		UnitAmount: stripe.Int64(p.AmountCents),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(p.ProductName),
		},
	}
	if p.Mode == "subscription" {
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String("month"),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(p.Mode),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.CustomerRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{PriceData: priceData, Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.Mode == "subscription" {
		// Propagate the metadata onto the subscription object so
		// customer.subscription.* events carry it too.
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: p.Metadata,
		}
	}

	s, err := session.New(params)
	if err != nil {
		g.log.Error().Err(err).Str("mode", p.Mode).Msg("checkout session creation failed")
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.ID, s.URL, nil
}
