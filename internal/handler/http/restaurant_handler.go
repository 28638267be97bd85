package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/media"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
)

const (
	MaxImageSize     = 5 << 20
	maxMultipartBody = MaxImageSize + 1<<20
	imageFormField   = "imageFile"
)

var (
	cuisineFieldRe  = regexp.MustCompile(`^cuisines\[(\d+)\]$`)
	menuItemFieldRe = regexp.MustCompile(`^menuItems\[(\d+)\]\[(_id|name|price)\]$`)
)

type MenuItemRequest struct {
	ID    string  `json:"_id"`
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
}

type RestaurantRequest struct {
	RestaurantName        string            `json:"restaurantName" validate:"required"`
	City                  string            `json:"city" validate:"required"`
	Country               string            `json:"country" validate:"required"`
	DeliveryPrice         float64           `json:"deliveryPrice" validate:"gte=0"`
	EstimatedDeliveryTime int               `json:"estimatedDeliveryTime" validate:"gte=0"`
	Cuisines              []string          `json:"cuisines" validate:"required,min=1,dive,required"`
	MenuItems             []MenuItemRequest `json:"menuItems" validate:"required,min=1,dive"`
}

type RestaurantHandler struct {
	service  restaurant.Service
	validate *validator.Validate
}

func NewRestaurantHandler(service restaurant.Service, validate *validator.Validate) *RestaurantHandler {
	return &RestaurantHandler{
		service:  service,
		validate: validate,
	}
}

func (h *RestaurantHandler) RegisterRoutes(router chi.Router, mw Middlewares) {
	router.Group(func(r chi.Router) {
		r.Use(mw.Authenticate, mw.RequireUser)
		r.Get("/api/my/restaurant", h.handleGetMyRestaurant)
		r.Post("/api/my/restaurant", h.handleCreateMyRestaurant)
		r.Put("/api/my/restaurant", h.handleUpdateMyRestaurant)
	})

	router.Get("/api/restaurant/search/{city}", h.handleSearch)
	router.Get("/api/restaurant/{restaurantId}", h.handleGetRestaurant)
}

func (h *RestaurantHandler) handleGetMyRestaurant(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	rest, err := h.service.GetMyRestaurant(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to get user restaurant via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Error fetching restaurant"))
		return
	}

	respondWithJSON(w, http.StatusOK, rest)
}

func (h *RestaurantHandler) handleCreateMyRestaurant(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	input, image, ok := h.parseRestaurantForm(w, r)
	if !ok {
		return
	}
	if image == nil {
		respondWithError(w, http.StatusBadRequest, restaurant.ErrImageRequired.Error())
		return
	}
	defer closeImage(image)

	created, err := h.service.CreateMyRestaurant(r.Context(), userID, input, image)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to create restaurant via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Something went wrong"))
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *RestaurantHandler) handleUpdateMyRestaurant(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	input, image, ok := h.parseRestaurantForm(w, r)
	if !ok {
		return
	}
	defer closeImage(image)

	updated, err := h.service.UpdateMyRestaurant(r.Context(), userID, input, image)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("Failed to update restaurant via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Something went wrong"))
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *RestaurantHandler) handleGetRestaurant(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "restaurantId")
	restaurantID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("restaurant_id", idParam).Msg("Failed to parse restaurantId parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid restaurantId parameter")
		return
	}

	rest, err := h.service.GetRestaurant(r.Context(), restaurantID)
	if err != nil {
		log.Error().Err(err).Stringer("restaurant_id", restaurantID).Msg("Failed to get restaurant via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Something went wrong"))
		return
	}

	respondWithJSON(w, http.StatusOK, rest)
}

func (h *RestaurantHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := restaurant.SearchParams{
		City:        chi.URLParam(r, "city"),
		SearchQuery: strings.TrimSpace(query.Get("searchQuery")),
		SortOption:  query.Get("sortOption"),
		Page:        1,
	}
	for _, c := range strings.Split(query.Get("selectedCuisines"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			params.Cuisines = append(params.Cuisines, c)
		}
	}
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		params.Page = page
	}

	result, err := h.service.Search(r.Context(), params)
	if err != nil {
		if errors.Is(err, restaurant.ErrCityNotFound) {
			respondWithJSON(w, http.StatusNotFound, result)
			return
		}
		log.Error().Err(err).Str("city", params.City).Msg("Failed to search restaurants via service")
		respondWithError(w, mapErrorToStatusCode(err), clientMessage(err, "Something went wrong"))
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// parseRestaurantForm reads the multipart form the restaurant editor submits.
// It writes the error response itself and reports ok == false on failure.
// The returned image is nil when no file was sent.
func (h *RestaurantHandler) parseRestaurantForm(w http.ResponseWriter, r *http.Request) (*restaurant.Restaurant, *media.Image, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		log.Warn().Err(err).Msg("Failed to parse multipart form")
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, nil, false
	}

	req, fieldErrors := restaurantRequestFromForm(r.MultipartForm)
	if len(fieldErrors) > 0 {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "Validation failed", Details: fieldErrors})
		return nil, nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, err)
		return nil, nil, false
	}

	image, err := imageFromForm(r.MultipartForm)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}

	return req.toRestaurant(), image, true
}

func restaurantRequestFromForm(form *multipart.Form) (RestaurantRequest, map[string]string) {
	var req RestaurantRequest
	fieldErrors := make(map[string]string)
	first := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	req.RestaurantName = first("restaurantName")
	req.City = first("city")
	req.Country = first("country")

	if raw := first("deliveryPrice"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			fieldErrors["deliveryPrice"] = "Field 'deliveryPrice' must be a number"
		}
		req.DeliveryPrice = price
	} else {
		fieldErrors["deliveryPrice"] = "Field 'deliveryPrice' is required"
	}
	if raw := first("estimatedDeliveryTime"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			fieldErrors["estimatedDeliveryTime"] = "Field 'estimatedDeliveryTime' must be an integer"
		}
		req.EstimatedDeliveryTime = minutes
	} else {
		fieldErrors["estimatedDeliveryTime"] = "Field 'estimatedDeliveryTime' is required"
	}

	cuisines := map[int]string{}
	items := map[int]*MenuItemRequest{}
	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[0])

		if m := cuisineFieldRe.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[1])
			cuisines[idx] = value
			continue
		}
		if m := menuItemFieldRe.FindStringSubmatch(key); m != nil {
			idx, _ := strconv.Atoi(m[1])
			item, ok := items[idx]
			if !ok {
				item = &MenuItemRequest{}
				items[idx] = item
			}
			switch m[2] {
			case "_id":
				item.ID = value
			case "name":
				item.Name = value
			case "price":
				price, err := strconv.ParseFloat(value, 64)
				if err != nil {
					fieldErrors[key] = fmt.Sprintf("Field '%s' must be a number", key)
				}
				item.Price = price
			}
		}
	}
	if plain := form.Value["cuisines"]; len(cuisines) == 0 && len(plain) > 0 {
		for i, c := range plain {
			cuisines[i] = strings.TrimSpace(c)
		}
	}

	for _, idx := range sortedKeys(cuisines) {
		req.Cuisines = append(req.Cuisines, cuisines[idx])
	}
	for _, idx := range sortedKeys(items) {
		req.MenuItems = append(req.MenuItems, *items[idx])
	}

	return req, fieldErrors
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func imageFromForm(form *multipart.Form) (*media.Image, error) {
	files := form.File[imageFormField]
	if len(files) == 0 {
		return nil, nil
	}

	header := files[0]
	if header.Size > MaxImageSize {
		return nil, fmt.Errorf("image must be at most %d MB", MaxImageSize>>20)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("unsupported image type %s", contentType)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return &media.Image{Reader: file, Filename: header.Filename, ContentType: contentType}, nil
}

func closeImage(image *media.Image) {
	if image == nil {
		return
	}
	if c, ok := image.Reader.(io.Closer); ok {
		_ = c.Close()
	}
}

func (req RestaurantRequest) toRestaurant() *restaurant.Restaurant {
	items := make([]restaurant.MenuItem, 0, len(req.MenuItems))
	for _, item := range req.MenuItems {
		items = append(items, restaurant.MenuItem{
			ID:    uuid.FromStringOrNil(item.ID),
			Name:  item.Name,
			Price: item.Price,
		})
	}

	return &restaurant.Restaurant{
		RestaurantName:        req.RestaurantName,
		City:                  req.City,
		Country:               req.Country,
		DeliveryPrice:         req.DeliveryPrice,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
		Cuisines:              req.Cuisines,
		MenuItems:             items,
	}
}
