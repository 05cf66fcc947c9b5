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

var _ repository.CommissionRepository = (*commissionRepo)(nil)

type commissionRepo struct{ pool *pgxpool.Pool }

func NewCommissionRepo(pool *pgxpool.Pool) *commissionRepo {
	return &commissionRepo{pool: pool}
}

const commissionCols = `id, affiliate_id, sale_id, buyer_user_id, buyer_email, product_name, sale_amount, rate_applied, value, status, sale_date, week_number, week_year, eligible_at`

// Save inserts only. Ledger rows are immutable; status moves through MarkPaid.
func (r *commissionRepo) Save(ctx context.Context, tx repository.Tx, c *model.Commission) error {
	const q = `
INSERT INTO commissions (
  id, affiliate_id, sale_id, buyer_user_id, buyer_email, product_name,
  sale_amount, rate_applied, value, status, sale_date, week_number, week_year, eligible_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14);`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.AffiliateID, c.SaleID, c.BuyerUserID, c.BuyerEmail, c.ProductName,
		c.SaleAmount, c.RateApplied, c.Value, string(c.Status), c.SaleDate, c.WeekNumber, c.WeekYear, c.EligibleAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			metrics.IncDBError("commissions")
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *commissionRepo) FindBySaleID(ctx context.Context, tx repository.Tx, saleID string) (*model.Commission, error) {
	const q = `SELECT ` + commissionCols + ` FROM commissions WHERE sale_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, saleID)
	if err != nil {
		return nil, err
	}
	return scanCommission(row)
}

func (r *commissionRepo) ListByAffiliate(ctx context.Context, tx repository.Tx, affiliateID string, limit, offset int) ([]*model.Commission, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `SELECT ` + commissionCols + ` FROM commissions WHERE affiliate_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, affiliateID, limit, offset)
	if err != nil {
		metrics.IncDBError("commissions")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanCommissions(rows)
}

func (r *commissionRepo) ListPayable(ctx context.Context, tx repository.Tx, asOf time.Time, limit int) ([]*model.Commission, error) {
	if limit <= 0 {
		limit = 500
	}
	const q = `SELECT ` + commissionCols + ` FROM commissions WHERE status='pending' AND eligible_at <= $1 ORDER BY eligible_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, asOf, limit)
	if err != nil {
		metrics.IncDBError("commissions")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()
	return scanCommissions(rows)
}

// MarkPaid flips pending -> paid atomically; false means another instance
// already settled the row.
func (r *commissionRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `UPDATE commissions SET status='paid', paid_at=$2 WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		metrics.IncDBError("commissions")
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *commissionRepo) SumPendingByAffiliate(ctx context.Context, tx repository.Tx, affiliateID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(value),0) FROM commissions WHERE affiliate_id=$1 AND status='pending';`
	row, err := pickRow(ctx, r.pool, tx, q, affiliateID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func scanCommission(row pgx.Row) (*model.Commission, error) {
	c := &model.Commission{}
	var status string
	if err := row.Scan(&c.ID, &c.AffiliateID, &c.SaleID, &c.BuyerUserID, &c.BuyerEmail, &c.ProductName,
		&c.SaleAmount, &c.RateApplied, &c.Value, &status, &c.SaleDate, &c.WeekNumber, &c.WeekYear, &c.EligibleAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	c.Status = model.CommissionStatus(status)
	return c, nil
}

func scanCommissions(rows pgx.Rows) ([]*model.Commission, error) {
	var out []*model.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
