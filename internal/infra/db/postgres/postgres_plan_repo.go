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

var _ repository.PlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planCols = `id, name, price_cents, currency, interval_days, active, created_at`

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, price_cents, currency, interval_days, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price_cents=$3, currency=$4, interval_days=$5, active=$6;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.PriceCents, p.Currency, p.IntervalDays, p.Active, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("plans")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE active=true ORDER BY price_cents ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		metrics.IncDBError("plans")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	p := &model.Plan{}
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Currency, &p.IntervalDays, &p.Active, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
