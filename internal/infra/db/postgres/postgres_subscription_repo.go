package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionCols = `id, external_id, user_id, plan_tag, status, period_start, period_end, cancel_at_period_end, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, external_id, user_id, plan_tag, status, period_start, period_end, cancel_at_period_end, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (external_id) DO UPDATE SET
  plan_tag=$4, status=$5, period_start=$6, period_end=$7, cancel_at_period_end=$8, updated_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.ExternalID, s.UserID, s.PlanTag, s.Status, s.PeriodStart, s.PeriodEnd, s.CancelAtPeriodEnd, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				// partial unique index: another active subscription for the user
				return domain.ErrAlreadyExists
			}
			metrics.IncDBError("subscriptions")
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *subscriptionRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE external_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	const q = `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE user_id=$1 AND status='active' LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, externalID string, status model.SubscriptionStatus) error {
	const q = `UPDATE subscriptions SET status=$2, updated_at=NOW() WHERE external_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, externalID, string(status))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("subscriptions")
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) CancelOtherActive(ctx context.Context, tx repository.Tx, userID, keepExternalID string) (int, error) {
	const q = `UPDATE subscriptions SET status='canceled', updated_at=NOW() WHERE user_id=$1 AND status='active' AND external_id <> $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, keepExternalID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		metrics.IncDBError("subscriptions")
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *subscriptionRepo) ListExpiring(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE status='active' AND period_end IS NOT NULL AND period_end < $1 ORDER BY period_end ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, before, limit)
	if err != nil {
		metrics.IncDBError("subscriptions")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *subscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[string]int, error) {
	const q = `SELECT status, COUNT(*) FROM subscriptions GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		metrics.IncDBError("subscriptions")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out[status] = n
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	var status string
	if err := row.Scan(&s.ID, &s.ExternalID, &s.UserID, &s.PlanTag, &status, &s.PeriodStart, &s.PeriodEnd, &s.CancelAtPeriodEnd, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	s.Status = model.SubscriptionStatus(status)
	return s, nil
}
