package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moveo/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoServiceRequestRepo struct {
	coll *mongo.Collection
}

func NewMongoServiceRequestRepo(db *mongo.Database) *MongoServiceRequestRepo {
	return &MongoServiceRequestRepo{coll: db.Collection("service_requests")}
}

func (r *MongoServiceRequestRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "assignedProviderId", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create service request indexes: %w", err)
	}
	return nil
}

func (r *MongoServiceRequestRepo) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var sr models.ServiceRequest
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&sr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch service request %s: %w", id, err)
	}
	return &sr, nil
}

func (r *MongoServiceRequestRepo) Create(ctx context.Context, sr *models.ServiceRequest) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, sr); err != nil {
		return fmt.Errorf("failed to create service request: %w", err)
	}
	return nil
}

func (r *MongoServiceRequestRepo) AssignProvider(ctx context.Context, id, providerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{
		"id": id,
		"$or": bson.A{
			bson.M{"assignedProviderId": nil},
			bson.M{"assignedProviderId": providerID},
		},
	}
	update := bson.M{"$set": bson.M{"assignedProviderId": providerID, "updatedAt": time.Now().UTC()}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to assign provider %s to request %s: %w", providerID, id, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *MongoServiceRequestRepo) ClearAssignment(ctx context.Context, id, providerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "assignedProviderId": providerID},
		bson.M{"$set": bson.M{"assignedProviderId": nil, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return false, fmt.Errorf("failed to clear assignment of request %s: %w", id, err)
	}
	return res.ModifiedCount == 1, nil
}
