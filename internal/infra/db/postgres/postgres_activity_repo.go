package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

var _ repository.ActivityRepository = (*activityRepo)(nil)

// activityRepo is the append-only audit log. No updates, no deletes.
type activityRepo struct{ pool *pgxpool.Pool }

func NewActivityRepo(pool *pgxpool.Pool) *activityRepo {
	return &activityRepo{pool: pool}
}

func (r *activityRepo) Append(ctx context.Context, tx repository.Tx, a *model.Activity) error {
	const q = `
INSERT INTO activity_log (id, user_id, kind, detail, amount, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.UserID, a.Kind, a.Detail, a.Amount, a.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("activity_log")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *activityRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, since time.Time, limit int) ([]*model.Activity, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, user_id, kind, detail, amount, created_at FROM activity_log WHERE user_id=$1 AND created_at >= $2 ORDER BY id DESC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, since, limit)
	if err != nil {
		metrics.IncDBError("activity_log")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Activity
	for rows.Next() {
		a := &model.Activity{}
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.Detail, &a.Amount, &a.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	return out, nil
}
