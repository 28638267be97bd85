package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "users"

type userDocument struct {
	ID             string    `bson:"_id"`
	Auth0ID        string    `bson:"auth0Id"`
	Email          string    `bson:"email"`
	Name           string    `bson:"name"`
	AddressLineOne string    `bson:"addressLineOne"`
	City           string    `bson:"city"`
	Country        string    `bson:"country"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

type mongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{coll: db.Collection(CollectionName)}
}

func (r *mongoRepository) Create(ctx context.Context, u *User) error {
	doc := userDocument{
		ID:             u.ID.String(),
		Auth0ID:        u.Auth0ID,
		Email:          u.Email,
		Name:           u.Name,
		AddressLineOne: u.AddressLineOne,
		City:           u.City,
		Country:        u.Country,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAuth0IDExists
		}
		return fmt.Errorf("repository: failed to insert user: %w", err)
	}
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()})
}

func (r *mongoRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*User, error) {
	return r.findOne(ctx, bson.M{"auth0Id": auth0ID})
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to find user: %w", err)
	}

	return &User{
		ID:             uuid.FromStringOrNil(doc.ID),
		Auth0ID:        doc.Auth0ID,
		Email:          doc.Email,
		Name:           doc.Name,
		AddressLineOne: doc.AddressLineOne,
		City:           doc.City,
		Country:        doc.Country,
		CreatedAt:      doc.CreatedAt.UTC(),
		UpdatedAt:      doc.UpdatedAt.UTC(),
	}, nil
}

func (r *mongoRepository) Update(ctx context.Context, u *User) error {
	update := bson.M{"$set": bson.M{
		"name":           u.Name,
		"addressLineOne": u.AddressLineOne,
		"city":           u.City,
		"country":        u.Country,
		"updatedAt":      u.UpdatedAt,
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": u.ID.String()}, update)
	if err != nil {
		return fmt.Errorf("repository: failed to update user %s: %w", u.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
