// File: internal/usecase/commission_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

// Compile-time check
var _ CommissionUseCase = (*commissionUC)(nil)

// CommissionUseCase credits affiliates for qualifying sales.
type CommissionUseCase interface {
	// Register creates one pending ledger row and credits the referring
	// affiliate. Returns (nil, nil) when the buyer was not referred or the
	// affiliate cannot earn — those are ordinary no-ops, not errors.
	//
	// Register is NOT idempotent on its own: calling it twice for the same
	// sale double-credits. Exactly-once is owed entirely to the webhook
	// pipeline's idempotency claim, which runs in the same transaction.
	Register(ctx context.Context, tx repository.Tx, sale Sale) (*model.Commission, error)
}

// Sale is the commission-relevant slice of a revenue-bearing event.
// Amount is minor units; the platform already delivers cents, so nothing in
// this pipeline ever touches float money.
type Sale struct {
	BuyerUserID string
	SaleID      string
	Amount      int64
	Currency    string
	BuyerEmail  string
	ProductName string
	Date        time.Time
}

type commissionUC struct {
	referrals   repository.ReferralRepository
	affiliates  repository.AffiliateRepository
	settings    repository.AffiliateSettingsRepository
	commissions repository.CommissionRepository
	log         *zerolog.Logger
}

func NewCommissionUseCase(
	referrals repository.ReferralRepository,
	affiliates repository.AffiliateRepository,
	settings repository.AffiliateSettingsRepository,
	commissions repository.CommissionRepository,
	logger *zerolog.Logger,
) *commissionUC {
	l := logger.With().Str("component", "CommissionUC").Logger()
	return &commissionUC{
		referrals:   referrals,
		affiliates:  affiliates,
		settings:    settings,
		commissions: commissions,
		log:         &l,
	}
}

func (u *commissionUC) Register(ctx context.Context, tx repository.Tx, sale Sale) (*model.Commission, error) {
	if sale.BuyerUserID == "" || sale.SaleID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if sale.Date.IsZero() {
		sale.Date = time.Now()
	}

	ref, err := u.referrals.FindSignupByReferredUser(ctx, tx, sale.BuyerUserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil // buyer was not referred
		}
		return nil, err
	}

	aff, err := u.affiliates.FindByID(ctx, tx, ref.AffiliateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("affiliate_id", ref.AffiliateID).Msg("referral points at missing affiliate")
			return nil, nil
		}
		return nil, err
	}
	if !aff.Active() {
		return nil, nil
	}

	// Settings are read outside the transaction on purpose: they change
	// rarely and the cached copy is good enough for rate resolution.
	cfg, err := u.settings.Get(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	rate := aff.EffectiveRate(cfg.DefaultRate)
	c, err := model.NewCommission(
		ulid.Make().String(),
		aff.ID, sale.SaleID, sale.BuyerUserID, sale.BuyerEmail, sale.ProductName,
		sale.Amount, rate, cfg.MaxCommission, sale.Date, cfg.PayoutDelayDays,
	)
	if err != nil {
		return nil, err
	}

	if err := u.commissions.Save(ctx, tx, c); err != nil {
		return nil, err
	}
	// Single atomic increment; current stored values never pass through here.
	if err := u.affiliates.Credit(ctx, tx, aff.ID, c.Value); err != nil {
		return nil, err
	}
	metrics.IncCommission(sale.Currency, c.Value)

	u.log.Info().
		Str("affiliate_id", aff.ID).
		Str("sale_id", sale.SaleID).
		Int64("value", c.Value).
		Float64("rate", rate).
		Msg("commission registered")
	return c, nil
}
