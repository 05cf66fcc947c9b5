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

var _ repository.ToolAccessRepository = (*toolAccessRepo)(nil)

type toolAccessRepo struct{ pool *pgxpool.Pool }

func NewToolAccessRepo(pool *pgxpool.Pool) *toolAccessRepo {
	return &toolAccessRepo{pool: pool}
}

func (r *toolAccessRepo) Save(ctx context.Context, tx repository.Tx, t *model.ToolAccess) error {
	const q = `
INSERT INTO tool_access (id, user_id, tool_id, sale_id, granted_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, tool_id) DO NOTHING;`

	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.ToolID, t.SaleID, t.GrantedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("tool_access")
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *toolAccessRepo) HasAccess(ctx context.Context, tx repository.Tx, userID, toolID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM tool_access WHERE user_id=$1 AND tool_id=$2);`
	row, err := pickRow(ctx, r.pool, tx, q, userID, toolID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}

func (r *toolAccessRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.ToolAccess, error) {
	const q = `SELECT id, user_id, tool_id, sale_id, granted_at FROM tool_access WHERE user_id=$1 ORDER BY granted_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		metrics.IncDBError("tool_access")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.ToolAccess
	for rows.Next() {
		t := &model.ToolAccess{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.ToolID, &t.SaleID, &t.GrantedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	return out, nil
}
