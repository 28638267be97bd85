package restaurant

import (
	"time"

	"github.com/gofrs/uuid"
)

const PageSize = 10

const (
	SortLastUpdated           = "lastUpdated"
	SortDeliveryPrice         = "deliveryPrice"
	SortEstimatedDeliveryTime = "estimatedDeliveryTime"
)

type MenuItem struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

type Restaurant struct {
	ID                    uuid.UUID  `json:"_id"`
	UserID                uuid.UUID  `json:"user"`
	RestaurantName        string     `json:"restaurantName"`
	City                  string     `json:"city"`
	Country               string     `json:"country"`
	DeliveryPrice         float64    `json:"deliveryPrice"`
	EstimatedDeliveryTime int        `json:"estimatedDeliveryTime"`
	Cuisines              []string   `json:"cuisines"`
	MenuItems             []MenuItem `json:"menuItems"`
	ImageURL              string     `json:"imageUrl"`
	LastUpdated           time.Time  `json:"lastUpdated"`
}

// FindMenuItem looks up a menu item by id on the stored menu.
func (r *Restaurant) FindMenuItem(id uuid.UUID) (MenuItem, bool) {
	for _, item := range r.MenuItems {
		if item.ID == id {
			return item, true
		}
	}
	return MenuItem{}, false
}

type SearchParams struct {
	City        string
	SearchQuery string
	Cuisines    []string
	SortOption  string
	Page        int
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

type SearchResult struct {
	Data       []Restaurant `json:"data"`
	Pagination Pagination   `json:"pagination"`
}

// EmptySearchResult is what a search for a city without restaurants returns.
func EmptySearchResult() *SearchResult {
	return &SearchResult{
		Data:       []Restaurant{},
		Pagination: Pagination{Total: 0, Page: 1, Pages: 1},
	}
}

func normalizeSortOption(option string) string {
	switch option {
	case SortDeliveryPrice, SortEstimatedDeliveryTime:
		return option
	default:
		return SortLastUpdated
	}
}
