package model

import (
	"time"

	"viraliza-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Subscription is one user's recurring billing relationship, keyed by the
// platform-assigned subscription id. At most one active row per user.
type Subscription struct {
	ID                string // UUID
	ExternalID        string // platform subscription id
	UserID            string
	PlanTag           string
	Status            SubscriptionStatus
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewSubscription(id, externalID, userID, planTag string) (*Subscription, error) {
	if id == "" || externalID == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:         id,
		ExternalID: externalID,
		UserID:     userID,
		PlanTag:    planTag,
		Status:     SubscriptionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Activate moves the subscription to active and stamps the billing period.
func (s *Subscription) Activate(periodStart, periodEnd time.Time) {
	s.Status = SubscriptionStatusActive
	s.PeriodStart = &periodStart
	s.PeriodEnd = &periodEnd
	s.UpdatedAt = time.Now()
}

// Cancel is terminal; duplicate deletion events keep the row canceled.
func (s *Subscription) Cancel() {
	s.Status = SubscriptionStatusCanceled
	s.UpdatedAt = time.Now()
}
