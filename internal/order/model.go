package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
)

type Status string

const (
	StatusPlaced         Status = "placed"
	StatusPaid           Status = "paid"
	StatusInProgress     Status = "inProgress"
	StatusOutForDelivery Status = "outForDelivery"
	StatusDelivered      Status = "delivered"
)

func (s Status) String() string {
	return string(s)
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusPlaced: {
		StatusPaid: true,
	},
	StatusPaid: {
		StatusInProgress: true,
	},
	StatusInProgress: {
		StatusOutForDelivery: true,
	},
	StatusOutForDelivery: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
}

// ownerSettable are the statuses a restaurant owner may move an order into.
// placed and paid are owned by checkout and payment confirmation.
var ownerSettable = map[Status]bool{
	StatusInProgress:     true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether next directly follows s. Statuses never
// move backwards and a status never transitions to itself.
func (s Status) CanTransitionTo(next Status) bool {
	return allowedTransitions[s][next]
}

// OwnerSettable reports whether a restaurant owner may request s.
func (s Status) OwnerSettable() bool {
	return ownerSettable[s]
}

type CartItem struct {
	MenuItemID uuid.UUID `json:"menuItemId"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
}

type DeliveryDetails struct {
	Email          string `json:"email" validate:"required,email"`
	Name           string `json:"name" validate:"required"`
	AddressLineOne string `json:"addressLineOne" validate:"required"`
	City           string `json:"city" validate:"required"`
}

type Order struct {
	ID                uuid.UUID       `json:"_id"`
	RestaurantID      uuid.UUID       `json:"restaurantId"`
	UserID            uuid.UUID       `json:"user"`
	DeliveryDetails   DeliveryDetails `json:"deliveryDetails"`
	CartItems         []CartItem      `json:"cartItems"`
	TotalAmount       *float64        `json:"totalAmount,omitempty"`
	Status            Status          `json:"status"`
	CheckoutSessionID string          `json:"checkoutSessionId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// View is an order together with the restaurant it was placed at, as the
// order listing endpoints return it.
type View struct {
	Order
	Restaurant *restaurant.Restaurant `json:"restaurant"`
}

// CartLine is a cart entry as the client sends it. Quantity is a decimal
// string and is parsed during pricing. Name is accepted for display only;
// pricing takes the name from the menu.
type CartLine struct {
	MenuItemID string `json:"menuItemId" validate:"required"`
	Name       string `json:"name,omitempty"`
	Quantity   string `json:"quantity" validate:"required"`
}

type CheckoutRequest struct {
	CartItems       []CartLine      `json:"cartItems" validate:"required,min=1,dive"`
	DeliveryDetails DeliveryDetails `json:"deliveryDetails"`
	RestaurantID    string          `json:"restaurantId" validate:"required"`
}

type CheckoutSession struct {
	URL string `json:"url"`
}
