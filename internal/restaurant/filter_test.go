package restaurant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildSearchFilter(t *testing.T) {
	where, args := buildSearchFilter(SearchParams{
		City:        "mum",
		Cuisines:    []string{"Pizza", "Ital_ian"},
		SearchQuery: "50%",
	})

	assert.Equal(t,
		"city ILIKE $1 AND "+
			"EXISTS (SELECT 1 FROM unnest(cuisines) AS c WHERE c ILIKE $2) AND "+
			"EXISTS (SELECT 1 FROM unnest(cuisines) AS c WHERE c ILIKE $3) AND "+
			"(restaurant_name ILIKE $4 OR EXISTS (SELECT 1 FROM unnest(cuisines) AS c WHERE c ILIKE $4))",
		where)
	assert.Equal(t, []any{"%mum%", "%Pizza%", `%Ital\_ian%`, `%50\%%`}, args)
}

func TestBuildSearchFilter_CityOnly(t *testing.T) {
	where, args := buildSearchFilter(SearchParams{City: "Delhi"})

	assert.Equal(t, "city ILIKE $1", where)
	assert.Equal(t, []any{"%Delhi%"}, args)
}

func TestBuildMongoSearchFilter(t *testing.T) {
	filter := buildMongoSearchFilter(SearchParams{
		City:        "new york",
		Cuisines:    []string{"c++"},
		SearchQuery: "burger",
	})

	assert.Equal(t, primitive.Regex{Pattern: "new york", Options: "i"}, filter["city"])
	assert.Equal(t, bson.M{"$all": bson.A{primitive.Regex{Pattern: `c\+\+`, Options: "i"}}}, filter["cuisines"])
	assert.Len(t, filter["$or"], 2)
}

func TestNormalizeSortOption(t *testing.T) {
	assert.Equal(t, SortDeliveryPrice, normalizeSortOption(SortDeliveryPrice))
	assert.Equal(t, SortEstimatedDeliveryTime, normalizeSortOption(SortEstimatedDeliveryTime))
	assert.Equal(t, SortLastUpdated, normalizeSortOption("restaurantName"))
	assert.Equal(t, SortLastUpdated, normalizeSortOption(""))
}
