package model

import (
	"time"

	"viraliza-billing/internal/domain"
)

type AffiliateStatus string

const (
	AffiliateStatusActive   AffiliateStatus = "active"
	AffiliateStatusInactive AffiliateStatus = "inactive"
)

// Affiliate is a referrer account. Balances are integer minor units
// (centavos) and only ever move through atomic increments in the repository,
// never through read-modify-write in application code.
type Affiliate struct {
	ID             string // UUID
	UserID         string
	ReferralCode   string
	CommissionRate *float64 // percentage; nil falls back to the global default
	Status         AffiliateStatus
	TotalEarnings  int64 // lifetime, minor units
	PendingBalance int64 // unpaid, minor units; <= TotalEarnings
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (a *Affiliate) Active() bool { return a.Status == AffiliateStatusActive }

// EffectiveRate resolves the affiliate's individual rate over the global default.
func (a *Affiliate) EffectiveRate(defaultRate float64) float64 {
	if a.CommissionRate != nil && *a.CommissionRate > 0 {
		return *a.CommissionRate
	}
	return defaultRate
}

// AffiliateSettings is the single global configuration row for the
// commission pipeline.
type AffiliateSettings struct {
	DefaultRate     float64 // percentage
	MaxCommission   int64   // per-sale cap in minor units; 0 disables the cap
	PayoutDelayDays int
	UpdatedAt       time.Time
}

func (s *AffiliateSettings) Validate() error {
	if s.DefaultRate < 0 || s.DefaultRate > 100 || s.MaxCommission < 0 || s.PayoutDelayDays < 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

type ReferralType string

const ReferralTypeSignup ReferralType = "signup"

// Referral links an affiliate to a user they referred. Lookups by referred
// user return only the most recent signup referral.
type Referral struct {
	ID             string // UUID
	AffiliateID    string
	ReferredUserID string
	Type           ReferralType
	CreatedAt      time.Time
}
