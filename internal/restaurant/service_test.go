package restaurant_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/food-ordering/internal/media"
	"github.com/vasiliy-maslov/food-ordering/internal/restaurant"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, r *restaurant.Restaurant) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*restaurant.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*restaurant.Restaurant), args.Error(1)
}

func (m *MockRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*restaurant.Restaurant, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*restaurant.Restaurant), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, r *restaurant.Restaurant) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRepository) CountByCity(ctx context.Context, city string) (int, error) {
	args := m.Called(ctx, city)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Search(ctx context.Context, params restaurant.SearchParams) ([]restaurant.Restaurant, int, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]restaurant.Restaurant), args.Int(1), args.Error(2)
}

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, image media.Image) (string, error) {
	args := m.Called(ctx, image)
	return args.String(0), args.Error(1)
}

func testImage() *media.Image {
	return &media.Image{Reader: strings.NewReader("png"), Filename: "pizza.png", ContentType: "image/png"}
}

func TestService_CreateMyRestaurant_Success(t *testing.T) {
	repo := new(MockRepository)
	uploader := new(MockUploader)
	svc := restaurant.NewService(repo, uploader)

	userID := uuid.Must(uuid.NewV4())
	input := &restaurant.Restaurant{
		RestaurantName: "Pizza Place",
		City:           "Mumbai",
		Country:        "India",
		DeliveryPrice:  40,
		Cuisines:       []string{"Pizza"},
		MenuItems:      []restaurant.MenuItem{{Name: "Margherita", Price: 150}},
	}

	repo.On("GetByUserID", mock.Anything, userID).Return(nil, restaurant.ErrNotFound).Once()
	uploader.On("Upload", mock.Anything, mock.AnythingOfType("media.Image")).Return("https://res.cloudinary.com/demo/pizza.png", nil).Once()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(r *restaurant.Restaurant) bool {
		return r.UserID == userID && r.ID != uuid.Nil && r.MenuItems[0].ID != uuid.Nil
	})).Return(nil).Once()

	created, err := svc.CreateMyRestaurant(context.Background(), userID, input, testImage())
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/pizza.png", created.ImageURL)
	assert.False(t, created.LastUpdated.IsZero())

	repo.AssertExpectations(t)
	uploader.AssertExpectations(t)
}

func TestService_CreateMyRestaurant_AlreadyExists(t *testing.T) {
	repo := new(MockRepository)
	uploader := new(MockUploader)
	svc := restaurant.NewService(repo, uploader)

	userID := uuid.Must(uuid.NewV4())
	repo.On("GetByUserID", mock.Anything, userID).Return(&restaurant.Restaurant{ID: uuid.Must(uuid.NewV4())}, nil).Once()

	created, err := svc.CreateMyRestaurant(context.Background(), userID, &restaurant.Restaurant{}, testImage())
	require.ErrorIs(t, err, restaurant.ErrAlreadyExists)
	assert.Nil(t, created)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_CreateMyRestaurant_ImageRequired(t *testing.T) {
	repo := new(MockRepository)
	svc := restaurant.NewService(repo, new(MockUploader))

	userID := uuid.Must(uuid.NewV4())
	repo.On("GetByUserID", mock.Anything, userID).Return(nil, restaurant.ErrNotFound).Once()

	_, err := svc.CreateMyRestaurant(context.Background(), userID, &restaurant.Restaurant{}, nil)
	require.ErrorIs(t, err, restaurant.ErrImageRequired)
}

func TestService_UpdateMyRestaurant_KeepsExistingMenuItemIDs(t *testing.T) {
	repo := new(MockRepository)
	uploader := new(MockUploader)
	svc := restaurant.NewService(repo, uploader)

	userID := uuid.Must(uuid.NewV4())
	keptID := uuid.Must(uuid.NewV4())
	current := &restaurant.Restaurant{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    userID,
		ImageURL:  "https://old.png",
		MenuItems: []restaurant.MenuItem{{ID: keptID, Name: "Margherita", Price: 150}},
	}
	unknownID := uuid.Must(uuid.NewV4())
	input := &restaurant.Restaurant{
		RestaurantName: "Renamed",
		DeliveryPrice:  50,
		MenuItems: []restaurant.MenuItem{
			{ID: keptID, Name: "Margherita", Price: 175},
			{ID: unknownID, Name: "Farmhouse", Price: 250},
			{Name: "Garlic Bread", Price: 90},
		},
	}

	repo.On("GetByUserID", mock.Anything, userID).Return(current, nil).Once()
	repo.On("Update", mock.Anything, mock.AnythingOfType("*restaurant.Restaurant")).Return(nil).Once()

	updated, err := svc.UpdateMyRestaurant(context.Background(), userID, input, nil)
	require.NoError(t, err)

	require.Len(t, updated.MenuItems, 3)
	assert.Equal(t, keptID, updated.MenuItems[0].ID)
	assert.Equal(t, 175.0, updated.MenuItems[0].Price)
	assert.NotEqual(t, unknownID, updated.MenuItems[1].ID)
	assert.NotEqual(t, uuid.Nil, updated.MenuItems[2].ID)
	assert.Equal(t, "Renamed", updated.RestaurantName)
	assert.Equal(t, "https://old.png", updated.ImageURL)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestService_UpdateMyRestaurant_NotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := restaurant.NewService(repo, new(MockUploader))

	userID := uuid.Must(uuid.NewV4())
	repo.On("GetByUserID", mock.Anything, userID).Return(nil, restaurant.ErrNotFound).Once()

	_, err := svc.UpdateMyRestaurant(context.Background(), userID, &restaurant.Restaurant{}, nil)
	require.ErrorIs(t, err, restaurant.ErrNotFound)
}

func TestService_GetRestaurant(t *testing.T) {
	repo := new(MockRepository)
	svc := restaurant.NewService(repo, new(MockUploader))

	id := uuid.Must(uuid.NewV4())
	missing := uuid.Must(uuid.NewV4())
	repo.On("GetByID", mock.Anything, id).Return(&restaurant.Restaurant{ID: id}, nil).Once()
	repo.On("GetByID", mock.Anything, missing).Return(nil, restaurant.ErrNotFound).Once()

	found, err := svc.GetRestaurant(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, found.ID)

	_, err = svc.GetRestaurant(context.Background(), missing)
	require.ErrorIs(t, err, restaurant.ErrNotFound)
}

func TestService_Search(t *testing.T) {
	tests := []struct {
		name       string
		params     restaurant.SearchParams
		inCity     int
		found      int
		wantErr    error
		wantPage   int
		wantPages  int
		wantSortBy string
	}{
		{
			name:      "city_without_restaurants",
			params:    restaurant.SearchParams{City: "nowhere"},
			inCity:    0,
			wantErr:   restaurant.ErrCityNotFound,
			wantPage:  1,
			wantPages: 1,
		},
		{
			name:       "defaults_page_and_sort",
			params:     restaurant.SearchParams{City: "mumbai", SortOption: "bogus"},
			inCity:     12,
			found:      12,
			wantPage:   1,
			wantPages:  2,
			wantSortBy: restaurant.SortLastUpdated,
		},
		{
			name:       "second_page_sorted_by_price",
			params:     restaurant.SearchParams{City: "mumbai", Page: 2, SortOption: restaurant.SortDeliveryPrice},
			inCity:     30,
			found:      21,
			wantPage:   2,
			wantPages:  3,
			wantSortBy: restaurant.SortDeliveryPrice,
		},
		{
			name:       "no_matches_in_existing_city",
			params:     restaurant.SearchParams{City: "mumbai", SearchQuery: "sushi"},
			inCity:     5,
			found:      0,
			wantPage:   1,
			wantPages:  1,
			wantSortBy: restaurant.SortLastUpdated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			svc := restaurant.NewService(repo, new(MockUploader))

			repo.On("CountByCity", mock.Anything, tt.params.City).Return(tt.inCity, nil).Once()
			if tt.inCity > 0 {
				repo.On("Search", mock.Anything, mock.MatchedBy(func(p restaurant.SearchParams) bool {
					return p.Page == tt.wantPage && p.SortOption == tt.wantSortBy
				})).Return([]restaurant.Restaurant{}, tt.found, nil).Once()
			}

			result, err := svc.Search(context.Background(), tt.params)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
			}
			require.NotNil(t, result)
			assert.Equal(t, tt.wantPage, result.Pagination.Page)
			assert.Equal(t, tt.wantPages, result.Pagination.Pages)
			assert.Equal(t, tt.found, result.Pagination.Total)
			repo.AssertExpectations(t)
		})
	}
}
