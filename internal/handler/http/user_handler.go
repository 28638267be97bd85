package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/auth"
	"github.com/vasiliy-maslov/food-ordering/internal/user"
)

type CreateUserRequest struct {
	Auth0ID string `json:"auth0Id"`
	Email   string `json:"email" validate:"required,email"`
}

type UpdateUserRequest struct {
	Name           string `json:"name" validate:"required"`
	AddressLineOne string `json:"addressLineOne" validate:"required"`
	City           string `json:"city" validate:"required"`
	Country        string `json:"country" validate:"required"`
}

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service, validate *validator.Validate) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validate,
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router, mw Middlewares) {
	router.Route("/api/my/user", func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Post("/", h.handleCreateCurrentUser)
		r.With(mw.RequireUser).Get("/", h.handleGetCurrentUser)
		r.With(mw.RequireUser).Put("/", h.handleUpdateCurrentUser)
	})
}

func (h *UserHandler) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	currentUser, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to get current user via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to get user"))
		return
	}

	respondWithJSON(w, http.StatusOK, currentUser)
}

func (h *UserHandler) handleCreateCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var requestPayload CreateUserRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}
	if requestPayload.Auth0ID != "" && requestPayload.Auth0ID != identity.Auth0ID {
		log.Warn().Str("auth0_id", identity.Auth0ID).Msg("auth0Id in body does not match token subject")
		respondWithError(w, http.StatusForbidden, "auth0Id does not match token")
		return
	}

	result, created, err := h.service.CreateCurrentUser(r.Context(), &user.User{
		Auth0ID: identity.Auth0ID,
		Email:   requestPayload.Email,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to create user"))
		return
	}

	if !created {
		respondWithJSON(w, http.StatusOK, result)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

func (h *UserHandler) handleUpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var requestPayload UpdateUserRequest
	if err := decodeJSON(r, &requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return
	}
	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	updated, err := h.service.UpdateCurrentUser(r.Context(), userID, user.Profile{
		Name:           requestPayload.Name,
		AddressLineOne: requestPayload.AddressLineOne,
		City:           requestPayload.City,
		Country:        requestPayload.Country,
	})
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to update user via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Failed to update user"))
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}
