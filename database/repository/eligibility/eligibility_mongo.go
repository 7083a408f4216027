package eligibilityRepo

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

type MongoEligibilityRepo struct {
	coll *mongo.Collection
}

func NewMongoEligibilityRepo(db *mongo.Database) *MongoEligibilityRepo {
	return &MongoEligibilityRepo{coll: db.Collection("eligibility_responses")}
}

func (r *MongoEligibilityRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "attributionId", Value: 1},
				{Key: "providerId", Value: 1},
				{Key: "round", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "attributionId", Value: 1}, {Key: "round", Value: 1}, {Key: "outcome", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create eligibility indexes: %w", err)
	}
	return nil
}

func responseFilter(attributionID, providerID string, round int) bson.M {
	return bson.M{"attributionId": attributionID, "providerId": providerID, "round": round}
}

func (r *MongoEligibilityRepo) RecordInvitations(ctx context.Context, responses []models.EligibilityResponse) error {
	if len(responses) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	writes := make([]mongo.WriteModel, 0, len(responses))
	for _, resp := range responses {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(responseFilter(resp.AttributionID, resp.ProviderID, resp.Round)).
			SetUpdate(bson.M{"$setOnInsert": resp}).
			SetUpsert(true))
	}
	if _, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to record invitations: %w", err)
	}
	return nil
}

func (r *MongoEligibilityRepo) Get(ctx context.Context, attributionID, providerID string, round int) (*models.EligibilityResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var resp models.EligibilityResponse
	if err := r.coll.FindOne(ctx, responseFilter(attributionID, providerID, round)).Decode(&resp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch eligibility response: %w", err)
	}
	return &resp, nil
}

func (r *MongoEligibilityRepo) Resolve(ctx context.Context, attributionID, providerID string, round int, from []models.ResponseOutcome, to models.ResponseOutcome, reason string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	filter := responseFilter(attributionID, providerID, round)
	filter["outcome"] = bson.M{"$in": from}
	set := bson.M{"outcome": to, "respondedAt": at}
	if reason != "" {
		set["reason"] = reason
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to resolve eligibility response: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoEligibilityRepo) ResolvePending(ctx context.Context, attributionID string, round int, exceptProviderID string, to models.ResponseOutcome, at time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{"attributionId": attributionID, "round": round, "outcome": models.ResponsePending}
	if exceptProviderID != "" {
		filter["providerId"] = bson.M{"$ne": exceptProviderID}
	}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"outcome": to, "respondedAt": at}})
	if err != nil {
		return 0, fmt.Errorf("failed to resolve pending responses: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoEligibilityRepo) CountPending(ctx context.Context, attributionID string, round int) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	n, err := r.coll.CountDocuments(ctx, bson.M{"attributionId": attributionID, "round": round, "outcome": models.ResponsePending})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending responses: %w", err)
	}
	return n, nil
}

func (r *MongoEligibilityRepo) ListByRound(ctx context.Context, attributionID string, round int) ([]models.EligibilityResponse, error) {
	return r.find(ctx, bson.M{"attributionId": attributionID, "round": round})
}

func (r *MongoEligibilityRepo) ListByAttribution(ctx context.Context, attributionID string) ([]models.EligibilityResponse, error) {
	return r.find(ctx, bson.M{"attributionId": attributionID})
}

func (r *MongoEligibilityRepo) find(ctx context.Context, filter bson.M) ([]models.EligibilityResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Find().SetSort(bson.D{
		{Key: "round", Value: 1},
		{Key: "distanceKm", Value: 1},
		{Key: "providerId", Value: 1},
	})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligibility responses: %w", err)
	}
	defer cursor.Close(ctx)
	out := []models.EligibilityResponse{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode eligibility responses: %w", err)
	}
	return out, nil
}
