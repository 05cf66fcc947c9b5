package repository

import (
	"context"
	"time"

	"viraliza-billing/internal/domain/model"
)

type PlanRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}

type ToolAccessRepository interface {
	Save(ctx context.Context, tx Tx, t *model.ToolAccess) error
	HasAccess(ctx context.Context, tx Tx, userID, toolID string) (bool, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.ToolAccess, error)
}

type ActivityRepository interface {
	Append(ctx context.Context, tx Tx, a *model.Activity) error
	ListByUser(ctx context.Context, tx Tx, userID string, since time.Time, limit int) ([]*model.Activity, error)
}
