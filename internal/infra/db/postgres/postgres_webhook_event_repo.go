package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"viraliza-billing/internal/domain"
	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

const webhookEventCols = `id, event_type, payload, received_at, processed, result, processed_at`

// Claim inserts the placeholder keyed by the platform event id. ON CONFLICT
// DO NOTHING closes the race between two concurrent deliveries: the second
// one reports zero rows affected, never an error.
func (r *webhookEventRepo) Claim(ctx context.Context, tx repository.Tx, ev *model.WebhookEvent) (bool, error) {
	const q = `
INSERT INTO webhook_events (id, event_type, payload, received_at, processed)
VALUES ($1,$2,$3,$4,false)
ON CONFLICT (id) DO NOTHING;`

	tag, err := execSQL(ctx, r.pool, tx, q, ev.ID, string(ev.Type), []byte(ev.Payload), ev.ReceivedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		metrics.IncDBError("webhook_events")
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, eventID string, result json.RawMessage, at time.Time) error {
	const q = `UPDATE webhook_events SET processed=true, result=$2, processed_at=$3 WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q, eventID, []byte(result), at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		metrics.IncDBError("webhook_events")
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *webhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, eventID string) (*model.WebhookEvent, error) {
	const q = `SELECT ` + webhookEventCols + ` FROM webhook_events WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, eventID)
	if err != nil {
		return nil, err
	}
	return scanWebhookEvent(row)
}

func (r *webhookEventRepo) ListUnprocessed(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + webhookEventCols + ` FROM webhook_events WHERE processed=false AND received_at < $1 ORDER BY received_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		metrics.IncDBError("webhook_events")
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.WebhookEvent
	for rows.Next() {
		ev, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func scanWebhookEvent(row pgx.Row) (*model.WebhookEvent, error) {
	ev := &model.WebhookEvent{}
	var typ string
	var payload, result []byte
	if err := row.Scan(&ev.ID, &typ, &payload, &ev.ReceivedAt, &ev.Processed, &result, &ev.ProcessedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	ev.Type = model.EventType(typ)
	ev.Payload = payload
	ev.Result = result
	return ev, nil
}
