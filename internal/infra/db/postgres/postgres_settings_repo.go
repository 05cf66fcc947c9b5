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

var _ repository.AffiliateSettingsRepository = (*settingsRepo)(nil)

// settingsRepo serves the single affiliate_settings row (id is fixed at 1).
type settingsRepo struct{ pool *pgxpool.Pool }

func NewSettingsRepo(pool *pgxpool.Pool) *settingsRepo {
	return &settingsRepo{pool: pool}
}

func (r *settingsRepo) Get(ctx context.Context, tx repository.Tx) (*model.AffiliateSettings, error) {
	const q = `SELECT default_rate, max_commission, payout_delay_days, updated_at FROM affiliate_settings WHERE id=1;`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	s := &model.AffiliateSettings{}
	if err := row.Scan(&s.DefaultRate, &s.MaxCommission, &s.PayoutDelayDays, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *settingsRepo) Update(ctx context.Context, tx repository.Tx, s *model.AffiliateSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	const q = `
INSERT INTO affiliate_settings (id, default_rate, max_commission, payout_delay_days, updated_at)
VALUES (1,$1,$2,$3,NOW())
ON CONFLICT (id) DO UPDATE SET
  default_rate=$1, max_commission=$2, payout_delay_days=$3, updated_at=NOW();`

	_, err := execSQL(ctx, r.pool, tx, q, s.DefaultRate, s.MaxCommission, s.PayoutDelayDays)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("affiliate_settings")
		return domain.ErrOperationFailed
	}
	return nil
}
