package payment

import (
	"context"
	"errors"
)

// EventCheckoutSessionCompleted is the only provider event that changes order state.
const EventCheckoutSessionCompleted = "checkout.session.completed"

var (
	ErrInvalidSignature = errors.New("payment: webhook signature verification failed")
	ErrMalformedEvent   = errors.New("payment: malformed webhook event")
)

// LineItem is a priced cart line. Amounts are in currency subunits.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
	Currency   string
}

type ShippingOption struct {
	DisplayName string
	Amount      int64
	Currency    string
}

type CheckoutSessionParams struct {
	LineItems  []LineItem
	Shipping   ShippingOption
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// WebhookEvent is a verified provider notification. The checkout fields are
// only populated for EventCheckoutSessionCompleted; AmountTotal stays nil when
// the provider omitted it.
type WebhookEvent struct {
	ID           string
	Type         string
	SessionID    string
	OrderID      string
	RestaurantID string
	AmountTotal  *int64
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	// ParseWebhookEvent verifies payload against the signature header. payload
	// must be the request body exactly as received.
	ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}
