package model

import (
	"encoding/json"
	"time"

	"viraliza-billing/internal/domain"
)

// EventType is the closed set of platform notifications this system reacts to.
// Anything else is acknowledged as a no-op so the platform stops redelivering.
type EventType string

const (
	EventCheckoutSessionCompleted EventType = "checkout.session.completed"
	EventSubscriptionCreated      EventType = "customer.subscription.created"
	EventSubscriptionUpdated      EventType = "customer.subscription.updated"
	EventSubscriptionDeleted      EventType = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     EventType = "invoice.payment_failed"
	EventPaymentIntentSucceeded   EventType = "payment_intent.succeeded"
)

// Handled reports whether the router has a handler for t.
func (t EventType) Handled() bool {
	switch t {
	case EventCheckoutSessionCompleted,
		EventSubscriptionCreated,
		EventSubscriptionUpdated,
		EventSubscriptionDeleted,
		EventInvoicePaymentSucceeded,
		EventInvoicePaymentFailed,
		EventPaymentIntentSucceeded:
		return true
	}
	return false
}

// WebhookEvent is the persisted record of one inbound platform notification.
// Rows are never deleted; the table doubles as the idempotency log.
type WebhookEvent struct {
	ID          string // platform-assigned event id, globally unique
	Type        EventType
	Payload     json.RawMessage // raw data.object document
	ReceivedAt  time.Time
	Processed   bool
	Result      json.RawMessage // handler outcome, nil until processed
	ProcessedAt *time.Time
}

func NewWebhookEvent(id string, typ EventType, payload json.RawMessage) (*WebhookEvent, error) {
	if id == "" || typ == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &WebhookEvent{
		ID:         id,
		Type:       typ,
		Payload:    payload,
		ReceivedAt: time.Now(),
	}, nil
}

// EventResult is what gets stored in the Result column once the router is done.
type EventResult struct {
	Outcome string `json:"outcome"` // processed | ignored | failed
	Detail  string `json:"detail,omitempty"`
}

func (r EventResult) Marshal() json.RawMessage {
	b, _ := json.Marshal(r)
	return b
}

// --- type-specific payload documents (wire format of data.object) ---

// CheckoutSessionPayload carries the fields the router needs from a
// checkout.session.completed event.
type CheckoutSessionPayload struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"` // subscription | payment
	AmountTotal     int64             `json:"amount_total"`
	Currency        string            `json:"currency"`
	Customer        string            `json:"customer"`
	Subscription    string            `json:"subscription"`
	PaymentStatus   string            `json:"payment_status"`
	Metadata        map[string]string `json:"metadata"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
}

// SubscriptionPayload covers customer.subscription.{created,updated,deleted}.
type SubscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// PlanTag returns the plan identifier carried by the subscription, preferring
// explicit metadata over the first line item's price id.
func (p *SubscriptionPayload) PlanTag() string {
	if tag := p.Metadata["plan_id"]; tag != "" {
		return tag
	}
	if len(p.Items.Data) > 0 {
		return p.Items.Data[0].Price.ID
	}
	return ""
}

// InvoicePayload covers invoice.payment_{succeeded,failed}.
type InvoicePayload struct {
	ID            string            `json:"id"`
	BillingReason string            `json:"billing_reason"`
	Subscription  string            `json:"subscription"`
	Customer      string            `json:"customer"`
	CustomerEmail string            `json:"customer_email"`
	AmountPaid    int64             `json:"amount_paid"`
	AmountDue     int64             `json:"amount_due"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// BillingReasonSubscriptionCreate marks the first charge of a new
// subscription; only that invoice registers a commission.
const BillingReasonSubscriptionCreate = "subscription_create"

// PaymentIntentPayload covers payment_intent.succeeded.
type PaymentIntentPayload struct {
	ID           string            `json:"id"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	ReceiptEmail string            `json:"receipt_email"`
	Metadata     map[string]string `json:"metadata"`
}
