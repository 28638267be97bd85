// Package events publishes order lifecycle notifications for downstream
// consumers such as restaurant dashboards and notification workers.
package events

import (
	"context"
	"time"
)

const TypeOrderStatusChanged = "order.status_changed"

// StatusChanged is emitted after an order's status is persisted.
type StatusChanged struct {
	OrderID      string    `json:"orderId"`
	RestaurantID string    `json:"restaurantId"`
	UserID       string    `json:"userId"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
	TotalAmount  *float64  `json:"totalAmount,omitempty"`
	ChangedAt    time.Time `json:"changedAt"`
}

type Publisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChanged) error
	Close() error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishStatusChanged(context.Context, StatusChanged) error { return nil }

func (NopPublisher) Close() error { return nil }
