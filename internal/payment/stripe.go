package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/vasiliy-maslov/food-ordering/internal/config"
)

const (
	MetadataOrderID      = "orderId"
	MetadataRestaurantID = "restaurantId"
)

type StripeGateway struct {
	sc            *client.API
	webhookSecret string
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	sc := &client.API{}
	sc.Init(cfg.APIKey, nil)

	return &StripeGateway{
		sc:            sc,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, in CheckoutSessionParams) (*CheckoutSession, error) {
	params := newCheckoutSessionParams(in)
	params.Context = ctx

	session, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		log.Error().Err(err).Str("order_id", in.Metadata[MetadataOrderID]).Msg("payment: stripe checkout session creation failed")
		return nil, fmt.Errorf("payment: failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func newCheckoutSessionParams(in CheckoutSessionParams) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(item.Currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		LineItems: lineItems,
		ShippingOptions: []*stripe.CheckoutSessionShippingOptionParams{
			{
				ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
					DisplayName: stripe.String(in.Shipping.DisplayName),
					Type:        stripe.String("fixed_amount"),
					FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
						Amount:   stripe.Int64(in.Shipping.Amount),
						Currency: stripe.String(in.Shipping.Currency),
					},
				},
			},
		},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	return params
}

// checkoutSessionObject decodes only what reconciliation needs. amount_total
// is a pointer so an absent or null value can be told apart from zero.
type checkoutSessionObject struct {
	ID          string            `json:"id"`
	AmountTotal *int64            `json:"amount_total"`
	Metadata    map[string]string `json:"metadata"`
}

func (g *StripeGateway) ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if out.Type != EventCheckoutSessionCompleted {
		return out, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, event.ID)
	}

	var session checkoutSessionObject
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out.SessionID = session.ID
	out.OrderID = session.Metadata[MetadataOrderID]
	out.RestaurantID = session.Metadata[MetadataRestaurantID]
	out.AmountTotal = session.AmountTotal

	return out, nil
}
