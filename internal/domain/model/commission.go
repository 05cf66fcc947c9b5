package model

import (
	"math"
	"time"

	"viraliza-billing/internal/domain"
)

type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
)

// Commission is one immutable ledger row for one qualifying sale. The value
// is computed once at creation; only Status ever changes afterwards, and only
// pending -> paid via the payout batch.
type Commission struct {
	ID          string // ULID, sortable by creation time
	AffiliateID string
	SaleID      string // external sale id (checkout session / invoice)
	BuyerUserID string
	BuyerEmail  string
	ProductName string
	SaleAmount  int64   // minor units
	RateApplied float64 // percentage
	Value       int64   // minor units
	Status      CommissionStatus
	SaleDate    time.Time
	WeekNumber  int // ISO week of the sale, for payout batching
	WeekYear    int
	EligibleAt  time.Time // end of the sale's ISO week + payout delay
}

// ComputeCommission applies rate (percent) to an amount in minor units and
// clamps to cap when cap > 0. Rounds half away from zero.
func ComputeCommission(amount int64, rate float64, cap int64) (int64, error) {
	if amount < 0 || rate < 0 || rate > 100 || cap < 0 {
		return 0, domain.ErrInvalidArgument
	}
	v := int64(math.Round(float64(amount) * rate / 100))
	if cap > 0 && v > cap {
		v = cap
	}
	return v, nil
}

// EndOfISOWeek returns midnight UTC of the Sunday closing t's ISO week.
func EndOfISOWeek(t time.Time) time.Time {
	day := t.UTC()
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO weeks run Monday(1) .. Sunday(7)
	}
	sunday := day.AddDate(0, 0, 7-weekday)
	return time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, time.UTC)
}

// NewCommission builds a pending ledger row. Payouts are batched weekly, so
// the eligible date anchors on the end of the sale's ISO week rather than the
// sale itself.
func NewCommission(id, affiliateID, saleID, buyerUserID, buyerEmail, productName string, amount int64, rate float64, cap int64, saleDate time.Time, payoutDelayDays int) (*Commission, error) {
	if id == "" || affiliateID == "" || saleID == "" {
		return nil, domain.ErrInvalidArgument
	}
	value, err := ComputeCommission(amount, rate, cap)
	if err != nil {
		return nil, err
	}
	year, week := saleDate.UTC().ISOWeek()
	return &Commission{
		ID:          id,
		AffiliateID: affiliateID,
		SaleID:      saleID,
		BuyerUserID: buyerUserID,
		BuyerEmail:  buyerEmail,
		ProductName: productName,
		SaleAmount:  amount,
		RateApplied: rate,
		Value:       value,
		Status:      CommissionStatusPending,
		SaleDate:    saleDate,
		WeekNumber:  week,
		WeekYear:    year,
		EligibleAt:  EndOfISOWeek(saleDate).AddDate(0, 0, payoutDelayDays),
	}, nil
}
