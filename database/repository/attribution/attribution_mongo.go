package attributionRepo

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

// MongoAttributionRepo implements AttributionRepository using MongoDB.
type MongoAttributionRepo struct {
	coll *mongo.Collection
}

func NewMongoAttributionRepo(db *mongo.Database) *MongoAttributionRepo {
	return &MongoAttributionRepo{coll: db.Collection("attributions")}
}

func (r *MongoAttributionRepo) Create(ctx context.Context, a *models.Attribution) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	a.Active = a.Status.IsActive()
	if a.ExcludedProviderIDs == nil {
		a.ExcludedProviderIDs = models.NewProviderIDSet()
	}
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrActiveExists
		}
		return fmt.Errorf("failed to create attribution: %w", err)
	}
	return nil
}

func (r *MongoAttributionRepo) GetByID(ctx context.Context, id string) (*models.Attribution, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var a models.Attribution
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch attribution with id %s: %w", id, err)
	}
	return &a, nil
}

func (r *MongoAttributionRepo) GetActiveByServiceRequest(ctx context.Context, serviceRequestID string) (*models.Attribution, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var a models.Attribution
	filter := bson.M{"serviceRequestId": serviceRequestID, "active": true}
	if err := r.coll.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch active attribution for request %s: %w", serviceRequestID, err)
	}
	return &a, nil
}

// CompareAndSwapStatus runs a single FindOneAndUpdate whose filter carries
// every condition of t.
func (r *MongoAttributionRepo) CompareAndSwapStatus(ctx context.Context, id string, t Transition) (*models.Attribution, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := transitionFilter(id, t)
	update := transitionUpdate(t)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a models.Attribution
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("attribution %s transition failed: %w", id, err)
	}
	n, cerr := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if cerr != nil {
		return nil, fmt.Errorf("attribution %s lookup failed: %w", id, cerr)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return nil, ErrConditionNotMet
}

func transitionFilter(id string, t Transition) bson.M {
	filter := bson.M{"id": id}
	if len(t.From) > 0 {
		filter["status"] = bson.M{"$in": t.From}
	}
	if t.RequireNoAccepted {
		filter["acceptedProviderId"] = nil
	}
	if t.RequireAccepted != "" {
		filter["acceptedProviderId"] = t.RequireAccepted
	}
	if t.RequireRound > 0 {
		filter["broadcastCount"] = t.RequireRound
	}
	if t.NotExcluded != "" {
		filter["excludedProviderIds"] = bson.M{"$ne": t.NotExcluded}
	}
	expires := bson.M{}
	if !t.DeadlineAfter.IsZero() {
		expires["$gt"] = t.DeadlineAfter
	}
	if !t.DeadlineReached.IsZero() {
		expires["$lte"] = t.DeadlineReached
	}
	if len(expires) > 0 {
		filter["expiresAt"] = expires
	}
	return filter
}

func transitionUpdate(t Transition) bson.M {
	set := bson.M{"updatedAt": t.now()}
	if t.To != "" {
		set["status"] = t.To
		set["active"] = t.To.IsActive()
	}
	if t.SetAccepted != "" {
		set["acceptedProviderId"] = t.SetAccepted
	}
	if t.ClearAccepted {
		set["acceptedProviderId"] = nil
	}
	if !t.ExpiresAt.IsZero() {
		set["expiresAt"] = t.ExpiresAt
	}
	if t.Reason != "" {
		set["statusReason"] = t.Reason
	}
	update := bson.M{"$set": set}
	if t.Exclude != "" {
		update["$addToSet"] = bson.M{"excludedProviderIds": t.Exclude}
	}
	if t.IncrementRound {
		update["$inc"] = bson.M{"broadcastCount": 1}
	}
	return update
}

func (r *MongoAttributionRepo) AddExclusion(ctx context.Context, id, providerID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	update := bson.M{
		"$addToSet": bson.M{"excludedProviderIds": providerID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to exclude provider %s from attribution %s: %w", providerID, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAttributionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	filter := bson.M{
		"status":             bson.M{"$in": models.BroadcastingStatuses},
		"acceptedProviderId": nil,
		"expiresAt":          bson.M{"$lte": now},
	}
	opts := options.Find().
		SetProjection(bson.M{"id": 1}).
		SetSort(bson.D{{Key: "expiresAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired attributions: %w", err)
	}
	defer cursor.Close(ctx)
	var ids []string
	for cursor.Next(ctx) {
		var row struct {
			ID string `bson:"id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode attribution id: %w", err)
		}
		ids = append(ids, row.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return ids, nil
}
