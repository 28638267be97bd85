package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/events"
	"github.com/vasiliy-maslov/food-ordering/internal/money"
	"github.com/vasiliy-maslov/food-ordering/internal/payment"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
)

var (
	ErrRestaurantNotFound      = errors.New("restaurant not found")
	ErrForbidden               = errors.New("order does not belong to your restaurant")
	ErrMissingAmount           = errors.New("payment confirmation has no amount total")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrPaymentProvider         = errors.New("payment provider error")
	ErrCheckoutURLMissing      = errors.New("payment provider returned no checkout url")
)

const deliveryShippingName = "Delivery"

// ConfirmationOutcome describes what a verified webhook delivery did.
type ConfirmationOutcome int

const (
	OutcomeIgnored ConfirmationOutcome = iota
	OutcomeApplied
	OutcomeAlreadyApplied
)

func (o ConfirmationOutcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyApplied:
		return "already_applied"
	default:
		return "ignored"
	}
}

type Settings struct {
	// Currency is used for every amount sent to and read from the provider.
	Currency    string
	FrontendURL string
}

type Service interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutSession, error)
	ConfirmPayment(ctx context.Context, payload []byte, signature string) (ConfirmationOutcome, error)
	GetMyOrders(ctx context.Context, userID uuid.UUID) ([]View, error)
	GetRestaurantOrders(ctx context.Context, ownerID uuid.UUID) ([]View, error)
	UpdateOrderStatus(ctx context.Context, ownerID, orderID uuid.UUID, newStatus Status) (*Order, error)
}

type service struct {
	orderRepo      Repository
	restaurantRepo restaurant.Repository
	gateway        payment.Gateway
	publisher      events.Publisher
	settings       Settings
}

func NewService(orderRepo Repository, restaurantRepo restaurant.Repository, gateway payment.Gateway, publisher events.Publisher, settings Settings) Service {
	return &service{
		orderRepo:      orderRepo,
		restaurantRepo: restaurantRepo,
		gateway:        gateway,
		publisher:      publisher,
		settings:       settings,
	}
}

func (s *service) CreateCheckoutSession(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutSession, error) {
	rest, err := s.loadRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}

	lineItems, cartItems, err := BuildLineItems(req.CartItems, rest.MenuItems, s.settings.Currency)
	if err != nil {
		log.Warn().Err(err).Stringer("restaurant_id", rest.ID).Msg("service: cannot price cart")
		return nil, err
	}

	deliveryAmount, err := money.ToSubunits(rest.DeliveryPrice)
	if err != nil {
		return nil, fmt.Errorf("service: invalid delivery price on restaurant %s: %w", rest.ID, err)
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order id: %w", err)
	}
	now := time.Now().UTC()
	newOrder := &Order{
		ID:              orderID,
		RestaurantID:    rest.ID,
		UserID:          userID,
		DeliveryDetails: req.DeliveryDetails,
		CartItems:       cartItems,
		Status:          StatusPlaced,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutSessionParams{
		LineItems: lineItems,
		Shipping: payment.ShippingOption{
			DisplayName: deliveryShippingName,
			Amount:      deliveryAmount,
			Currency:    s.settings.Currency,
		},
		SuccessURL: s.settings.FrontendURL + "/order-status?success=true",
		CancelURL:  fmt.Sprintf("%s/detail/%s?cancelled=true", s.settings.FrontendURL, rest.ID),
		Metadata: map[string]string{
			payment.MetadataOrderID:      orderID.String(),
			payment.MetadataRestaurantID: rest.ID.String(),
		},
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: checkout session request failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}
	if session.URL == "" {
		log.Error().Stringer("order_id", orderID).Str("session_id", session.ID).Msg("service: checkout session has no url")
		return nil, ErrCheckoutURLMissing
	}

	newOrder.CheckoutSessionID = session.ID
	if err := s.orderRepo.Create(ctx, newOrder); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to save order: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("user_id", userID).Str("session_id", session.ID).Msg("service: order placed")
	return &CheckoutSession{URL: session.URL}, nil
}

func (s *service) loadRestaurant(ctx context.Context, rawID string) (*restaurant.Restaurant, error) {
	id, err := uuid.FromString(rawID)
	if err != nil {
		return nil, ErrRestaurantNotFound
	}

	rest, err := s.restaurantRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			log.Warn().Stringer("restaurant_id", id).Msg("service: checkout for unknown restaurant")
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("service: failed to get restaurant %s: %w", id, err)
	}

	return rest, nil
}

func (s *service) ConfirmPayment(ctx context.Context, payload []byte, signature string) (ConfirmationOutcome, error) {
	event, err := s.gateway.ParseWebhookEvent(payload, signature)
	if err != nil {
		log.Error().Err(err).Msg("service: rejected webhook delivery")
		return OutcomeIgnored, err
	}

	if event.Type != payment.EventCheckoutSessionCompleted {
		log.Debug().Str("event_id", event.ID).Str("event_type", event.Type).Msg("service: ignoring webhook event")
		return OutcomeIgnored, nil
	}

	orderID, err := uuid.FromString(event.OrderID)
	if err != nil {
		log.Warn().Str("event_id", event.ID).Str("order_id", event.OrderID).Msg("service: webhook event references no valid order")
		return OutcomeIgnored, ErrOrderNotFound
	}

	current, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Str("event_id", event.ID).Stringer("order_id", orderID).Msg("service: webhook event for unknown order")
			return OutcomeIgnored, ErrOrderNotFound
		}
		return OutcomeIgnored, fmt.Errorf("service: failed to get order %s: %w", orderID, err)
	}

	if event.AmountTotal == nil {
		log.Warn().Str("event_id", event.ID).Stringer("order_id", orderID).Msg("service: webhook event has no amount total")
		return OutcomeIgnored, ErrMissingAmount
	}

	if current.Status != StatusPlaced {
		log.Info().Str("event_id", event.ID).Stringer("order_id", orderID).Stringer("status", current.Status).Msg("service: payment already applied")
		return OutcomeAlreadyApplied, nil
	}

	total := money.FromSubunits(*event.AmountTotal)
	err = s.orderRepo.UpdateStatus(ctx, orderID, StatusPlaced, StatusPaid, &total)
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			// a concurrent delivery of the same event got there first
			log.Info().Str("event_id", event.ID).Stringer("order_id", orderID).Msg("service: payment applied concurrently")
			return OutcomeAlreadyApplied, nil
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to mark order paid")
		return OutcomeIgnored, fmt.Errorf("service: failed to mark order paid: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Float64("total_amount", total).Msg("service: order paid")
	s.publishStatusChanged(ctx, current, StatusPlaced, StatusPaid, &total)

	return OutcomeApplied, nil
}

func (s *service) GetMyOrders(ctx context.Context, userID uuid.UUID) ([]View, error) {
	orders, err := s.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}

	restaurants := make(map[uuid.UUID]*restaurant.Restaurant)
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		rest, ok := restaurants[o.RestaurantID]
		if !ok {
			rest, err = s.restaurantRepo.GetByID(ctx, o.RestaurantID)
			if err != nil && !errors.Is(err, restaurant.ErrNotFound) {
				return nil, fmt.Errorf("service: failed to get restaurant for order %s: %w", o.ID, err)
			}
			restaurants[o.RestaurantID] = rest
		}
		views = append(views, View{Order: o, Restaurant: rest})
	}

	return views, nil
}

func (s *service) GetRestaurantOrders(ctx context.Context, ownerID uuid.UUID) ([]View, error) {
	rest, err := s.restaurantRepo.GetByUserID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("service: failed to get owner restaurant: %w", err)
	}

	orders, err := s.orderRepo.ListByRestaurantID(ctx, rest.ID)
	if err != nil {
		log.Error().Err(err).Stringer("restaurant_id", rest.ID).Msg("service: failed to fetch restaurant orders in repository")
		return nil, fmt.Errorf("service: failed to fetch restaurant orders: %w", err)
	}

	views := make([]View, 0, len(orders))
	for _, o := range orders {
		views = append(views, View{Order: o, Restaurant: rest})
	}

	return views, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, ownerID, orderID uuid.UUID, newStatus Status) (*Order, error) {
	if !newStatus.OwnerSettable() {
		log.Warn().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: status cannot be set by restaurant")
		return nil, ErrInvalidStatusTransition
	}

	current, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order not found, cannot update status")
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to get order for status update")
		return nil, fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	rest, err := s.restaurantRepo.GetByID(ctx, current.RestaurantID)
	if err != nil {
		if errors.Is(err, restaurant.ErrNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("service: failed to get order restaurant: %w", err)
	}
	if rest.UserID != ownerID {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", ownerID).Msg("service: status update by non-owner")
		return nil, ErrForbidden
	}

	if current.Status == newStatus {
		log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return current, nil
	}

	if !current.Status.CanTransitionTo(newStatus) {
		log.Warn().
			Stringer("order_id", orderID).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return nil, fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, current.Status, newStatus, nil); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			log.Warn().Stringer("order_id", orderID).Msg("service: order status changed during update")
			return nil, ErrStatusConflict
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	oldStatus := current.Status
	current.Status = newStatus
	current.UpdatedAt = time.Now().UTC()

	log.Info().Stringer("order_id", orderID).Stringer("old_status", oldStatus).Stringer("new_status", newStatus).Msg("service: order status updated")
	s.publishStatusChanged(ctx, current, oldStatus, newStatus, current.TotalAmount)

	return current, nil
}

// publishStatusChanged never fails the caller; the status is already stored.
func (s *service) publishStatusChanged(ctx context.Context, o *Order, oldStatus, newStatus Status, totalAmount *float64) {
	event := events.StatusChanged{
		OrderID:      o.ID.String(),
		RestaurantID: o.RestaurantID.String(),
		UserID:       o.UserID.String(),
		OldStatus:    oldStatus.String(),
		NewStatus:    newStatus.String(),
		TotalAmount:  totalAmount,
		ChangedAt:    time.Now().UTC(),
	}
	if err := s.publisher.PublishStatusChanged(ctx, event); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to publish status change")
	}
}
