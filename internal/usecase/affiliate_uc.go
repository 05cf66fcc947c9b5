// File: internal/usecase/affiliate_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

var _ AffiliateUseCase = (*affiliateUC)(nil)

// AffiliateUseCase serves the admin surface and the payout batch.
type AffiliateUseCase interface {
	Stats(ctx context.Context, affiliateID string) (*AffiliateStats, error)
	ListCommissions(ctx context.Context, affiliateID string, limit, offset int) ([]*model.Commission, error)

	// SettlePayable marks eligible pending commissions paid and releases the
	// corresponding pending balances. Each commission settles in its own
	// transaction so one bad row cannot wedge the whole batch.
	SettlePayable(ctx context.Context, asOf time.Time, limit int) (int, error)
}

type AffiliateStats struct {
	Affiliate      *model.Affiliate `json:"affiliate"`
	PendingLedger  int64            `json:"pending_ledger"` // sum of pending commission rows
	TotalEarnings  int64            `json:"total_earnings"`
	PendingBalance int64            `json:"pending_balance"`
}

type affiliateUC struct {
	tm          repository.TransactionManager
	affiliates  repository.AffiliateRepository
	commissions repository.CommissionRepository
	log         *zerolog.Logger
}

func NewAffiliateUseCase(
	tm repository.TransactionManager,
	affiliates repository.AffiliateRepository,
	commissions repository.CommissionRepository,
	logger *zerolog.Logger,
) *affiliateUC {
	l := logger.With().Str("component", "AffiliateUC").Logger()
	return &affiliateUC{tm: tm, affiliates: affiliates, commissions: commissions, log: &l}
}

func (u *affiliateUC) Stats(ctx context.Context, affiliateID string) (*AffiliateStats, error) {
	aff, err := u.affiliates.FindByID(ctx, repository.NoTX, affiliateID)
	if err != nil {
		return nil, err
	}
	pending, err := u.commissions.SumPendingByAffiliate(ctx, repository.NoTX, affiliateID)
	if err != nil {
		return nil, err
	}
	return &AffiliateStats{
		Affiliate:      aff,
		PendingLedger:  pending,
		TotalEarnings:  aff.TotalEarnings,
		PendingBalance: aff.PendingBalance,
	}, nil
}

func (u *affiliateUC) ListCommissions(ctx context.Context, affiliateID string, limit, offset int) ([]*model.Commission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.commissions.ListByAffiliate(ctx, repository.NoTX, affiliateID, limit, offset)
}

func (u *affiliateUC) SettlePayable(ctx context.Context, asOf time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 500
	}
	payable, err := u.commissions.ListPayable(ctx, repository.NoTX, asOf, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	settled := 0
	for _, c := range payable {
		c := c
		flipped := false
		err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			ok, err := u.commissions.MarkPaid(ctx, tx, c.ID, asOf)
			if err != nil {
				return err
			}
			if !ok {
				return nil // lost the race to another instance
			}
			flipped = true
			return u.affiliates.DebitPending(ctx, tx, c.AffiliateID, c.Value)
		})
		if err != nil {
			u.log.Error().Err(err).Str("commission", c.ID).Msg("payout settlement failed")
			continue
		}
		if flipped {
			settled++
		}
	}
	if settled > 0 {
		metrics.AddCommissionsPaid(settled)
	}
	return settled, nil
}
