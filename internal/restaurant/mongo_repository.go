package restaurant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "restaurants"

type menuItemDocument struct {
	ID    string  `bson:"_id"`
	Name  string  `bson:"name"`
	Price float64 `bson:"price"`
}

type restaurantDocument struct {
	ID                    string             `bson:"_id"`
	UserID                string             `bson:"user"`
	RestaurantName        string             `bson:"restaurantName"`
	City                  string             `bson:"city"`
	Country               string             `bson:"country"`
	DeliveryPrice         float64            `bson:"deliveryPrice"`
	EstimatedDeliveryTime int                `bson:"estimatedDeliveryTime"`
	Cuisines              []string           `bson:"cuisines"`
	MenuItems             []menuItemDocument `bson:"menuItems"`
	ImageURL              string             `bson:"imageUrl"`
	LastUpdated           time.Time          `bson:"lastUpdated"`
}

func toDocument(r *Restaurant) restaurantDocument {
	items := make([]menuItemDocument, 0, len(r.MenuItems))
	for _, item := range r.MenuItems {
		items = append(items, menuItemDocument{ID: item.ID.String(), Name: item.Name, Price: item.Price})
	}
	cuisines := r.Cuisines
	if cuisines == nil {
		cuisines = []string{}
	}
	return restaurantDocument{
		ID:                    r.ID.String(),
		UserID:                r.UserID.String(),
		RestaurantName:        r.RestaurantName,
		City:                  r.City,
		Country:               r.Country,
		DeliveryPrice:         r.DeliveryPrice,
		EstimatedDeliveryTime: r.EstimatedDeliveryTime,
		Cuisines:              cuisines,
		MenuItems:             items,
		ImageURL:              r.ImageURL,
		LastUpdated:           r.LastUpdated,
	}
}

func (d restaurantDocument) toModel() Restaurant {
	items := make([]MenuItem, 0, len(d.MenuItems))
	for _, item := range d.MenuItems {
		items = append(items, MenuItem{ID: uuid.FromStringOrNil(item.ID), Name: item.Name, Price: item.Price})
	}
	return Restaurant{
		ID:                    uuid.FromStringOrNil(d.ID),
		UserID:                uuid.FromStringOrNil(d.UserID),
		RestaurantName:        d.RestaurantName,
		City:                  d.City,
		Country:               d.Country,
		DeliveryPrice:         d.DeliveryPrice,
		EstimatedDeliveryTime: d.EstimatedDeliveryTime,
		Cuisines:              d.Cuisines,
		MenuItems:             items,
		ImageURL:              d.ImageURL,
		LastUpdated:           d.LastUpdated.UTC(),
	}
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(CollectionName)}
}

func (r *mongoRepository) Create(ctx context.Context, rest *Restaurant) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(rest)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("repository: failed to insert restaurant: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*Restaurant, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Restaurant, error) {
	return r.findOne(ctx, bson.M{"user": userID.String()})
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*Restaurant, error) {
	var doc restaurantDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to find restaurant: %w", err)
	}
	rest := doc.toModel()
	return &rest, nil
}

func (r *mongoRepository) Update(ctx context.Context, rest *Restaurant) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": rest.ID.String()}, toDocument(rest))
	if err != nil {
		return fmt.Errorf("repository: failed to update restaurant %s: %w", rest.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) CountByCity(ctx context.Context, city string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"city": containsRegex(city)})
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count restaurants in city %q: %w", city, err)
	}
	return int(n), nil
}

func (r *mongoRepository) Search(ctx context.Context, params SearchParams) ([]Restaurant, int, error) {
	filter := buildMongoSearchFilter(params)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count search results: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: params.SortOption, Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(PageSize * (params.Page - 1))).
		SetLimit(PageSize)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to search restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []restaurantDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to decode restaurants: %w", err)
	}

	restaurants := make([]Restaurant, 0, len(docs))
	for _, doc := range docs {
		restaurants = append(restaurants, doc.toModel())
	}

	return restaurants, int(total), nil
}

func buildMongoSearchFilter(params SearchParams) bson.M {
	filter := bson.M{"city": containsRegex(params.City)}

	if len(params.Cuisines) > 0 {
		cuisines := make(bson.A, 0, len(params.Cuisines))
		for _, c := range params.Cuisines {
			cuisines = append(cuisines, containsRegex(c))
		}
		filter["cuisines"] = bson.M{"$all": cuisines}
	}

	if params.SearchQuery != "" {
		q := containsRegex(params.SearchQuery)
		filter["$or"] = bson.A{
			bson.M{"restaurantName": q},
			bson.M{"cuisines": bson.M{"$in": bson.A{q}}},
		}
	}

	return filter
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
