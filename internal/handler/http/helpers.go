package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/auth"
	"github.com/vasiliy-maslov/food-ordering/internal/media"
	"github.com/vasiliy-maslov/food-ordering/internal/order"
	"github.com/vasiliy-maslov/food-ordering/internal/payment"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
	"github.com/vasiliy-maslov/food-ordering/internal/user"
)

// Middlewares are applied per route group by the handlers. Authenticate
// verifies the bearer token; RequireUser additionally resolves the caller to
// a stored user.
type Middlewares struct {
	Authenticate func(http.Handler) http.Handler
	RequireUser  func(http.Handler) http.Handler
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		return
	}

	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: formatValidationErrors(validationErrors),
	})
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("Field '%s' is required", fe.Field())
		case "email":
			msg = fmt.Sprintf("Field '%s' must be a valid email", fe.Field())
		case "min":
			msg = fmt.Sprintf("Field '%s' must be at least %s", fe.Field(), fe.Param())
		case "gte":
			msg = fmt.Sprintf("Field '%s' must be greater than or equal to %s", fe.Field(), fe.Param())
		case "gt":
			msg = fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("Field '%s' failed on the '%s' rule", fe.Field(), fe.Tag())
		}
		details[fieldPath(fe)] = msg
	}
	return details
}

// fieldPath is the namespace without the root struct name, e.g.
// cartItems[0].quantity.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, restaurant.ErrNotFound),
		errors.Is(err, restaurant.ErrCityNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrRestaurantNotFound):
		return http.StatusNotFound
	case errors.Is(err, restaurant.ErrAlreadyExists),
		errors.Is(err, order.ErrStatusConflict):
		return http.StatusConflict
	case errors.Is(err, order.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrMenuItemNotFound),
		errors.Is(err, order.ErrMissingAmount),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, payment.ErrMalformedEvent),
		errors.Is(err, restaurant.ErrImageRequired):
		return http.StatusBadRequest
	case errors.Is(err, media.ErrUploadFailed):
		return http.StatusBadGateway
	default:
		// includes payment.ErrInvalidSignature, order.ErrPaymentProvider and
		// order.ErrCheckoutURLMissing
		return http.StatusInternalServerError
	}
}

// clientMessage hides internal error text behind fallback for 5xx responses.
func clientMessage(err error, fallback string) string {
	if mapErrorToStatusCode(err) >= http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}

func currentUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// NewValidator reports fields by their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}
