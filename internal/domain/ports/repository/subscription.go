package repository

import (
	"context"
	"time"

	"viraliza-billing/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByExternalID(ctx context.Context, tx Tx, externalID string) (*model.Subscription, error)
	FindActiveByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)

	// UpdateStatus touches only the lifecycle column; returns ErrNotFound
	// when no row matches the external id.
	UpdateStatus(ctx context.Context, tx Tx, externalID string, status model.SubscriptionStatus) error

	// CancelOtherActive cancels any active subscription the user holds other
	// than keepExternalID, backing the one-active-per-user partial unique
	// index. Returns the number of rows it touched.
	CancelOtherActive(ctx context.Context, tx Tx, userID, keepExternalID string) (int, error)

	ListExpiring(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Subscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[string]int, error)
}
