package restaurant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/food-ordering/internal/media"
)

var (
	ErrImageRequired = errors.New("restaurant image is required")
	ErrCityNotFound  = errors.New("no restaurants found in city")
)

type Service interface {
	GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	GetMyRestaurant(ctx context.Context, userID uuid.UUID) (*Restaurant, error)
	CreateMyRestaurant(ctx context.Context, userID uuid.UUID, input *Restaurant, image *media.Image) (*Restaurant, error)
	UpdateMyRestaurant(ctx context.Context, userID uuid.UUID, input *Restaurant, image *media.Image) (*Restaurant, error)
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
}

type service struct {
	repo     Repository
	uploader media.Uploader
}

func NewService(repo Repository, uploader media.Uploader) Service {
	return &service{
		repo:     repo,
		uploader: uploader,
	}
}

func (s *service) GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn().Stringer("restaurant_id", id).Msg("service: restaurant not found")
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("restaurant_id", id).Msg("service: failed to get restaurant")
		return nil, fmt.Errorf("service: failed to get restaurant: %w", err)
	}

	return r, nil
}

func (s *service) GetMyRestaurant(ctx context.Context, userID uuid.UUID) (*Restaurant, error) {
	r, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to get user restaurant")
		return nil, fmt.Errorf("service: failed to get user restaurant: %w", err)
	}

	return r, nil
}

func (s *service) CreateMyRestaurant(ctx context.Context, userID uuid.UUID, input *Restaurant, image *media.Image) (*Restaurant, error) {
	_, err := s.repo.GetByUserID(ctx, userID)
	if err == nil {
		log.Warn().Stringer("user_id", userID).Msg("service: user restaurant already exists")
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("service: failed to check existing restaurant: %w", err)
	}

	if image == nil {
		return nil, ErrImageRequired
	}

	imageURL, err := s.uploader.Upload(ctx, *image)
	if err != nil {
		return nil, fmt.Errorf("service: failed to upload restaurant image: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate restaurant id: %w", err)
	}

	input.ID = id
	input.UserID = userID
	input.ImageURL = imageURL
	input.LastUpdated = time.Now().UTC()
	if err := assignMenuItemIDs(input.MenuItems, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, input); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create restaurant in repository")
		return nil, fmt.Errorf("service: failed to create restaurant: %w", err)
	}

	log.Info().Stringer("restaurant_id", input.ID).Stringer("user_id", userID).Msg("service: restaurant created")
	return input, nil
}

func (s *service) UpdateMyRestaurant(ctx context.Context, userID uuid.UUID, input *Restaurant, image *media.Image) (*Restaurant, error) {
	current, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get restaurant for update: %w", err)
	}

	current.RestaurantName = input.RestaurantName
	current.City = input.City
	current.Country = input.Country
	current.DeliveryPrice = input.DeliveryPrice
	current.EstimatedDeliveryTime = input.EstimatedDeliveryTime
	current.Cuisines = input.Cuisines
	if err := assignMenuItemIDs(input.MenuItems, current.MenuItems); err != nil {
		return nil, err
	}
	current.MenuItems = input.MenuItems
	current.LastUpdated = time.Now().UTC()

	if image != nil {
		imageURL, err := s.uploader.Upload(ctx, *image)
		if err != nil {
			return nil, fmt.Errorf("service: failed to upload restaurant image: %w", err)
		}
		current.ImageURL = imageURL
	}

	if err := s.repo.Update(ctx, current); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("restaurant_id", current.ID).Msg("service: failed to update restaurant in repository")
		return nil, fmt.Errorf("service: failed to update restaurant: %w", err)
	}

	log.Info().Stringer("restaurant_id", current.ID).Msg("service: restaurant updated")
	return current, nil
}

// assignMenuItemIDs keeps the ids of items that already exist on the stored
// menu, so open carts keep resolving, and generates ids for the rest.
func assignMenuItemIDs(items []MenuItem, existing []MenuItem) error {
	known := make(map[uuid.UUID]struct{}, len(existing))
	for _, item := range existing {
		known[item.ID] = struct{}{}
	}

	for i := range items {
		if _, ok := known[items[i].ID]; ok && items[i].ID != uuid.Nil {
			continue
		}
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("service: failed to generate menu item id: %w", err)
		}
		items[i].ID = id
	}

	return nil
}

func (s *service) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	params.SortOption = normalizeSortOption(params.SortOption)

	inCity, err := s.repo.CountByCity(ctx, params.City)
	if err != nil {
		log.Error().Err(err).Str("city", params.City).Msg("service: failed to count restaurants by city")
		return nil, fmt.Errorf("service: failed to count restaurants: %w", err)
	}
	if inCity == 0 {
		return EmptySearchResult(), ErrCityNotFound
	}

	restaurants, total, err := s.repo.Search(ctx, params)
	if err != nil {
		log.Error().Err(err).Str("city", params.City).Msg("service: failed to search restaurants")
		return nil, fmt.Errorf("service: failed to search restaurants: %w", err)
	}

	pages := (total + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}

	return &SearchResult{
		Data: restaurants,
		Pagination: Pagination{
			Total: total,
			Page:  params.Page,
			Pages: pages,
		},
	}, nil
}
