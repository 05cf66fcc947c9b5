package repository

import (
	"context"
	"time"

	"viraliza-billing/internal/domain/model"
)

type AffiliateRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Affiliate) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Affiliate, error)
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Affiliate, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.Affiliate, error)

	// Credit adds delta to both total_earnings and pending_balance as a
	// single atomic SQL increment. Never read-modify-write: concurrent sales
	// for the same affiliate race in separate request handlers.
	Credit(ctx context.Context, tx Tx, affiliateID string, delta int64) error

	// DebitPending subtracts delta from pending_balance only, for payout
	// settlement. Fails with ErrOperationFailed if the balance would go
	// negative.
	DebitPending(ctx context.Context, tx Tx, affiliateID string, delta int64) error
}

type ReferralRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Referral) error
	// FindSignupByReferredUser returns the most recent signup referral for
	// the user, or ErrNotFound.
	FindSignupByReferredUser(ctx context.Context, tx Tx, referredUserID string) (*model.Referral, error)
}

type CommissionRepository interface {
	Save(ctx context.Context, tx Tx, c *model.Commission) error
	FindBySaleID(ctx context.Context, tx Tx, saleID string) (*model.Commission, error)
	ListByAffiliate(ctx context.Context, tx Tx, affiliateID string, limit, offset int) ([]*model.Commission, error)
	// ListPayable returns pending commissions whose eligible date has passed.
	ListPayable(ctx context.Context, tx Tx, asOf time.Time, limit int) ([]*model.Commission, error)
	// MarkPaid flips pending -> paid; a row already paid is not touched.
	MarkPaid(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
	SumPendingByAffiliate(ctx context.Context, tx Tx, affiliateID string) (int64, error)
}

// AffiliateSettingsRepository serves the single global settings row. The
// Redis cache decorator wraps the Postgres implementation.
type AffiliateSettingsRepository interface {
	Get(ctx context.Context, tx Tx) (*model.AffiliateSettings, error)
	Update(ctx context.Context, tx Tx, s *model.AffiliateSettings) error
}
