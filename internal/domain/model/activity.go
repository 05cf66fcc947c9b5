package model

import "time"

// Activity is one append-only audit row. Replaces the process-local decision
// log: multi-instance deployments need this durable, not in a slice.
type Activity struct {
	ID        string // ULID
	UserID    string
	Kind      string // e.g. standalone_payment, subscription_activated
	Detail    string
	Amount    int64 // minor units, 0 when not monetary
	CreatedAt time.Time
}
