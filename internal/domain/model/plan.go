package model

import (
	"time"

	"viraliza-billing/internal/domain"
)

// Plan is a sellable subscription tier. Prices are minor units (centavos).
type Plan struct {
	ID           string // stable tag used in checkout metadata and price mapping
	Name         string
	PriceCents   int64
	Currency     string
	IntervalDays int
	Active       bool
	CreatedAt    time.Time
}

func NewPlan(id, name string, priceCents int64, currency string, intervalDays int) (*Plan, error) {
	if id == "" || name == "" || priceCents <= 0 || intervalDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "brl"
	}
	return &Plan{
		ID:           id,
		Name:         name,
		PriceCents:   priceCents,
		Currency:     currency,
		IntervalDays: intervalDays,
		Active:       true,
		CreatedAt:    time.Now(),
	}, nil
}
