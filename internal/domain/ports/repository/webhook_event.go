package repository

import (
	"context"
	"encoding/json"
	"time"

	"viraliza-billing/internal/domain/model"
)

// WebhookEventRepository persists the inbound event log, which doubles as
// the idempotency gate.
type WebhookEventRepository interface {
	// Claim inserts an unprocessed placeholder keyed by the platform event
	// id. Returns false (no error) when the id already exists — the caller
	// must acknowledge without reprocessing. The insert is unique-constrained
	// rather than read-then-write so two concurrent deliveries of the same
	// event cannot both claim it.
	Claim(ctx context.Context, tx Tx, ev *model.WebhookEvent) (bool, error)

	// MarkProcessed stamps the outcome exactly once.
	MarkProcessed(ctx context.Context, tx Tx, eventID string, result json.RawMessage, at time.Time) error

	FindByID(ctx context.Context, tx Tx, eventID string) (*model.WebhookEvent, error)
	ListUnprocessed(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.WebhookEvent, error)
}
