package model

import (
	"time"

	"viraliza-billing/internal/domain"
)

// ToolAccess grants a user one-off access to a paid tool, created when a
// mode=payment checkout completes with tool metadata.
type ToolAccess struct {
	ID        string // UUID
	UserID    string
	ToolID    string
	SaleID    string // checkout session that paid for the grant
	GrantedAt time.Time
}

func NewToolAccess(id, userID, toolID, saleID string) (*ToolAccess, error) {
	if id == "" || userID == "" || toolID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &ToolAccess{
		ID:        id,
		UserID:    userID,
		ToolID:    toolID,
		SaleID:    saleID,
		GrantedAt: time.Now(),
	}, nil
}
