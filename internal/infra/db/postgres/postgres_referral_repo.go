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

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

func (r *referralRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	const q = `
INSERT INTO referrals (id, affiliate_id, referred_user_id, referral_type, created_at)
VALUES ($1,$2,$3,$4,$5);`

	_, err := execSQL(ctx, r.pool, tx, q, ref.ID, ref.AffiliateID, ref.ReferredUserID, string(ref.Type), ref.CreatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			metrics.IncDBError("referrals")
			return domain.ErrOperationFailed
		}
	}
	return nil
}

// FindSignupByReferredUser returns only the most recent signup referral,
// ties broken by created_at descending.
func (r *referralRepo) FindSignupByReferredUser(ctx context.Context, tx repository.Tx, referredUserID string) (*model.Referral, error) {
	const q = `
SELECT id, affiliate_id, referred_user_id, referral_type, created_at
  FROM referrals
 WHERE referred_user_id=$1 AND referral_type='signup'
 ORDER BY created_at DESC
 LIMIT 1;`

	row, err := pickRow(ctx, r.pool, tx, q, referredUserID)
	if err != nil {
		return nil, err
	}

	ref := &model.Referral{}
	var typ string
	if err := row.Scan(&ref.ID, &ref.AffiliateID, &ref.ReferredUserID, &typ, &ref.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	ref.Type = model.ReferralType(typ)
	return ref, nil
}
