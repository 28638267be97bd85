package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/order"
	"github.com/vasiliy-maslov/food-ordering/internal/payment"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "Stripe-Signature"
)

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service, validate *validator.Validate) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validate,
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, mw Middlewares) {
	// signed by the payment provider, not by the identity provider
	router.Post("/api/order/checkout/webhook", h.handleWebhook)

	router.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RequireUser)
		r.Get("/api/order", h.handleGetMyOrders)
		r.Post("/api/order/checkout/create-checkout-session", h.handleCreateCheckoutSession)
		r.Get("/api/my/restaurant/order", h.handleGetRestaurantOrders)
		r.Patch("/api/my/restaurant/order/{orderId}/status", h.handleUpdateOrderStatus)
	})
}

func (h *OrderHandler) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var requestPayload order.CheckoutRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	session, err := h.service.CreateCheckoutSession(r.Context(), userID, requestPayload)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Str("restaurant_id", requestPayload.RestaurantID).Msg("Failed to create checkout session via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Error creating checkout session"))
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

func (h *OrderHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read webhook body")
		respondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	outcome, err := h.service.ConfirmPayment(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		if errors.Is(err, payment.ErrInvalidSignature) {
			log.Error().Err(err).Msg("Webhook signature verification failed")
			respondWithError(w, statusCode, "Webhook error: signature verification failed")
			return
		}
		log.Error().Err(err).Int("status", statusCode).Msg("Failed to confirm payment via service")
		respondWithError(w, statusCode, clientMessage(err, "Webhook error"))
		return
	}

	respondWithJSON(w, http.StatusOK, WebhookResponse{Received: true, Outcome: outcome.String()})
}

func (h *OrderHandler) handleGetMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetMyOrders(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to get user orders via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Something went wrong"))
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetRestaurantOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetRestaurantOrders(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to get restaurant orders via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Something went wrong"))
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	idParam := chi.URLParam(r, "orderId")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse orderId parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid orderId parameter")
		return
	}

	var requestPayload UpdateOrderStatusRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), userID, orderID, order.Status(requestPayload.Status))
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Str("status", requestPayload.Status).Msg("Failed to update order status via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Unable to update order status"))
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
