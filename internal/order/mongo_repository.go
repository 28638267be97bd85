package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "orders"

type orderDocument struct {
	ID                string             `bson:"_id"`
	RestaurantID      string             `bson:"restaurant"`
	UserID            string             `bson:"user"`
	DeliveryDetails   deliveryDocument   `bson:"deliveryDetails"`
	CartItems         []cartItemDocument `bson:"cartItems"`
	TotalAmount       *float64           `bson:"totalAmount"`
	Status            string             `bson:"status"`
	CheckoutSessionID string             `bson:"checkoutSessionId"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

type deliveryDocument struct {
	Email          string `bson:"email"`
	Name           string `bson:"name"`
	AddressLineOne string `bson:"addressLineOne"`
	City           string `bson:"city"`
}

type cartItemDocument struct {
	MenuItemID string `bson:"menuItemId"`
	Name       string `bson:"name"`
	Quantity   int    `bson:"quantity"`
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(CollectionName)}
}

func toDocument(o *Order) orderDocument {
	items := make([]cartItemDocument, 0, len(o.CartItems))
	for _, item := range o.CartItems {
		items = append(items, cartItemDocument{
			MenuItemID: item.MenuItemID.String(),
			Name:       item.Name,
			Quantity:   item.Quantity,
		})
	}

	return orderDocument{
		ID:           o.ID.String(),
		RestaurantID: o.RestaurantID.String(),
		UserID:       o.UserID.String(),
		DeliveryDetails: deliveryDocument{
			Email:          o.DeliveryDetails.Email,
			Name:           o.DeliveryDetails.Name,
			AddressLineOne: o.DeliveryDetails.AddressLineOne,
			City:           o.DeliveryDetails.City,
		},
		CartItems:         items,
		TotalAmount:       o.TotalAmount,
		Status:            string(o.Status),
		CheckoutSessionID: o.CheckoutSessionID,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func (d orderDocument) toOrder() Order {
	items := make([]CartItem, 0, len(d.CartItems))
	for _, item := range d.CartItems {
		items = append(items, CartItem{
			MenuItemID: uuid.FromStringOrNil(item.MenuItemID),
			Name:       item.Name,
			Quantity:   item.Quantity,
		})
	}

	return Order{
		ID:           uuid.FromStringOrNil(d.ID),
		RestaurantID: uuid.FromStringOrNil(d.RestaurantID),
		UserID:       uuid.FromStringOrNil(d.UserID),
		DeliveryDetails: DeliveryDetails{
			Email:          d.DeliveryDetails.Email,
			Name:           d.DeliveryDetails.Name,
			AddressLineOne: d.DeliveryDetails.AddressLineOne,
			City:           d.DeliveryDetails.City,
		},
		CartItems:         items,
		TotalAmount:       d.TotalAmount,
		Status:            Status(d.Status),
		CheckoutSessionID: d.CheckoutSessionID,
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
}

func (r *mongoRepository) Create(ctx context.Context, o *Order) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(o)); err != nil {
		return fmt.Errorf("repository: failed to insert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var doc orderDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to find order %s: %w", id, err)
	}

	o := doc.toOrder()
	return &o, nil
}

func (r *mongoRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return r.list(ctx, bson.M{"user": userID.String()})
}

func (r *mongoRepository) ListByRestaurantID(ctx context.Context, restaurantID uuid.UUID) ([]Order, error) {
	return r.list(ctx, bson.M{"restaurant": restaurantID.String()})
}

func (r *mongoRepository) list(ctx context.Context, filter bson.M) ([]Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode orders: %w", err)
	}

	orders := make([]Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.toOrder())
	}
	return orders, nil
}

func (r *mongoRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, totalAmount *float64) error {
	set := bson.M{
		"status":    string(to),
		"updatedAt": time.Now().UTC(),
	}
	if totalAmount != nil {
		set["totalAmount"] = *totalAmount
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id.String(), "status": string(from)}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("repository: failed to update status of order %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrStatusConflict
	}
	return nil
}
