package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/vasiliy-maslov/food-ordering/internal/config"
)

const testWebhookSecret = "whsec_test_secret"

func newTestGateway() *StripeGateway {
	return NewStripeGateway(config.StripeConfig{
		APIKey:        "sk_test_123",
		WebhookSecret: testWebhookSecret,
		Currency:      "inr",
	})
}

func sign(t *testing.T, payload string, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "amount_total": 34000,
      "metadata": {"orderId": "6f1c1d4e-0000-4000-8000-000000000001", "restaurantId": "r-1"}
    }
  }
}`

func TestParseWebhookEvent_Completed(t *testing.T) {
	g := newTestGateway()

	event, err := g.ParseWebhookEvent([]byte(completedEvent), sign(t, completedEvent, testWebhookSecret))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutSessionCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, "6f1c1d4e-0000-4000-8000-000000000001", event.OrderID)
	assert.Equal(t, "r-1", event.RestaurantID)
	require.NotNil(t, event.AmountTotal)
	assert.Equal(t, int64(34000), *event.AmountTotal)
}

func TestParseWebhookEvent_MissingAmount(t *testing.T) {
	g := newTestGateway()
	payload := `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_2","amount_total":null,"metadata":{"orderId":"o-2"}}}}`

	event, err := g.ParseWebhookEvent([]byte(payload), sign(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "o-2", event.OrderID)
	assert.Nil(t, event.AmountTotal)
}

func TestParseWebhookEvent_OtherType(t *testing.T) {
	g := newTestGateway()
	payload := `{"id":"evt_3","object":"event","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`

	event, err := g.ParseWebhookEvent([]byte(payload), sign(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", event.Type)
	assert.Empty(t, event.OrderID)
	assert.Nil(t, event.AmountTotal)
}

func TestParseWebhookEvent_InvalidSignature(t *testing.T) {
	g := newTestGateway()

	tests := []struct {
		name      string
		payload   string
		signature string
	}{
		{name: "wrong_secret", payload: completedEvent, signature: sign(t, completedEvent, "whsec_other")},
		{name: "empty_header", payload: completedEvent, signature: ""},
		{name: "tampered_body", payload: completedEvent + " ", signature: sign(t, completedEvent, testWebhookSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := g.ParseWebhookEvent([]byte(tt.payload), tt.signature)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSignature))
			assert.Nil(t, event)
		})
	}
}

func TestNewCheckoutSessionParams(t *testing.T) {
	params := newCheckoutSessionParams(CheckoutSessionParams{
		LineItems: []LineItem{
			{Name: "Margherita", UnitAmount: 15000, Quantity: 2, Currency: "inr"},
		},
		Shipping:   ShippingOption{DisplayName: "Delivery", Amount: 4000, Currency: "inr"},
		SuccessURL: "http://localhost:5173/order-status?success=true",
		CancelURL:  "http://localhost:5173/detail/r-1?cancelled=true",
		Metadata:   map[string]string{MetadataOrderID: "o-1", MetadataRestaurantID: "r-1"},
	})

	require.Len(t, params.LineItems, 1)
	item := params.LineItems[0]
	assert.Equal(t, int64(15000), *item.PriceData.UnitAmount)
	assert.Equal(t, int64(2), *item.Quantity)
	assert.Equal(t, "inr", *item.PriceData.Currency)
	assert.Equal(t, "Margherita", *item.PriceData.ProductData.Name)

	require.Len(t, params.ShippingOptions, 1)
	rate := params.ShippingOptions[0].ShippingRateData
	assert.Equal(t, "Delivery", *rate.DisplayName)
	assert.Equal(t, "fixed_amount", *rate.Type)
	assert.Equal(t, int64(4000), *rate.FixedAmount.Amount)

	assert.Equal(t, "payment", *params.Mode)
	assert.Equal(t, "o-1", params.Metadata[MetadataOrderID])
	assert.Equal(t, "r-1", params.Metadata[MetadataRestaurantID])
}
