package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

var _ repository.AffiliateRepository = (*affiliateRepo)(nil)

type affiliateRepo struct{ pool *pgxpool.Pool }

func NewAffiliateRepo(pool *pgxpool.Pool) *affiliateRepo {
	return &affiliateRepo{pool: pool}
}

const affiliateCols = `id, user_id, referral_code, commission_rate, status, total_earnings, pending_balance, created_at, updated_at`

func (r *affiliateRepo) Save(ctx context.Context, tx repository.Tx, a *model.Affiliate) error {
	const q = `
INSERT INTO affiliates (
  id, user_id, referral_code, commission_rate, status, total_earnings, pending_balance, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  referral_code=$3, commission_rate=$4, status=$5, updated_at=$9;`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.ReferralCode, a.CommissionRate, string(a.Status), a.TotalEarnings, a.PendingBalance, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			metrics.IncDBError("affiliates")
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *affiliateRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Affiliate, error) {
	const q = `SELECT ` + affiliateCols + ` FROM affiliates WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanAffiliate(row)
}

func (r *affiliateRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Affiliate, error) {
	const q = `SELECT ` + affiliateCols + ` FROM affiliates WHERE user_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanAffiliate(row)
}

func (r *affiliateRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.Affiliate, error) {
	const q = `SELECT ` + affiliateCols + ` FROM affiliates WHERE referral_code=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanAffiliate(row)
}

// Credit is a single atomic increment. The database applies the delta to the
// current stored values, so concurrent sales for the same affiliate cannot
// lose updates.
func (r *affiliateRepo) Credit(ctx context.Context, tx repository.Tx, affiliateID string, delta int64) error {
	const q = `
UPDATE affiliates
   SET total_earnings  = total_earnings + $2,
       pending_balance = pending_balance + $2,
       updated_at      = NOW()
 WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, affiliateID, delta)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("affiliates")
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *affiliateRepo) DebitPending(ctx context.Context, tx repository.Tx, affiliateID string, delta int64) error {
	const q = `
UPDATE affiliates
   SET pending_balance = pending_balance - $2,
       updated_at      = NOW()
 WHERE id = $1
   AND pending_balance >= $2;`

	tag, err := execSQL(ctx, r.pool, tx, q, affiliateID, delta)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("affiliates")
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		// Either the affiliate is gone or the balance would go negative.
		return domain.ErrOperationFailed
	}
	return nil
}

func scanAffiliate(row pgx.Row) (*model.Affiliate, error) {
	a := &model.Affiliate{}
	var status string
	if err := row.Scan(&a.ID, &a.UserID, &a.ReferralCode, &a.CommissionRate, &status, &a.TotalEarnings, &a.PendingBalance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	a.Status = model.AffiliateStatus(status)
	return a, nil
}
