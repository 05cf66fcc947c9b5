package adapter

import "context"

// CheckoutParams describes one outbound session-creation call to the payment
// platform. Amounts are minor units; Metadata round-trips through the
// checkout.session.completed webhook.
type CheckoutParams struct {
	Mode        string // subscription | payment
	AmountCents int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	CustomerRef string
	Metadata    map[string]string
}

// CheckoutGateway is the outbound port to the payment platform.
type CheckoutGateway interface {
	Name() string
	// CreateSession returns the platform session id and the redirect URL the
	// buyer must visit.
	CreateSession(ctx context.Context, p CheckoutParams) (sessionID, redirectURL string, err error)
}
