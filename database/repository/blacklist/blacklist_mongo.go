package blacklistRepo

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

type MongoBlacklistRepo struct {
	coll *mongo.Collection
}

func NewMongoBlacklistRepo(db *mongo.Database) *MongoBlacklistRepo {
	return &MongoBlacklistRepo{coll: db.Collection("blacklist")}
}

func (r *MongoBlacklistRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "providerId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "isActive", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create blacklist indexes: %w", err)
	}
	return nil
}

// IncrementRefusalCounter upserts with a filter that excludes documents which
// already counted roundKey. When the round was already counted the filter
// misses, the upsert collides with the unique providerId index and the
// existing entry is returned uncounted.
func (r *MongoBlacklistRepo) IncrementRefusalCounter(ctx context.Context, providerID, roundKey string, now time.Time) (*models.BlacklistEntry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{"providerId": providerID, "refusedRounds": bson.M{"$ne": roundKey}}
	update := bson.M{
		"$inc":         bson.M{"consecutiveRefusalCount": 1},
		"$addToSet":    bson.M{"refusedRounds": roundKey},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now, "isActive": false},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var entry models.BlacklistEntry
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry)
	if err == nil {
		return &entry, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to record refusal for provider %s: %w", providerID, err)
	}
	existing, err := r.Get(ctx, providerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *MongoBlacklistRepo) Activate(ctx context.Context, providerID, reason string, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"providerId": providerID, "isActive": false},
		bson.M{"$set": bson.M{"isActive": true, "reason": reason, "updatedAt": now}})
	if err != nil {
		return false, fmt.Errorf("failed to blacklist provider %s: %w", providerID, err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoBlacklistRepo) ResetRefusals(ctx context.Context, providerID string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"providerId": providerID},
		bson.M{"$set": bson.M{"consecutiveRefusalCount": 0, "refusedRounds": bson.A{}, "updatedAt": now}})
	if err != nil {
		return fmt.Errorf("failed to reset refusals for provider %s: %w", providerID, err)
	}
	return nil
}

func (r *MongoBlacklistRepo) Lift(ctx context.Context, providerID string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"providerId": providerID},
		bson.M{"$set": bson.M{
			"isActive":                false,
			"reason":                  "",
			"consecutiveRefusalCount": 0,
			"refusedRounds":           bson.A{},
			"updatedAt":               now,
		}})
	if err != nil {
		return fmt.Errorf("failed to lift ban for provider %s: %w", providerID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoBlacklistRepo) Get(ctx context.Context, providerID string) (*models.BlacklistEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var entry models.BlacklistEntry
	if err := r.coll.FindOne(ctx, bson.M{"providerId": providerID}).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch blacklist entry for %s: %w", providerID, err)
	}
	return &entry, nil
}

func (r *MongoBlacklistRepo) ListActive(ctx context.Context, providerIDs []string) ([]models.BlacklistEntry, error) {
	if len(providerIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	cursor, err := r.coll.Find(ctx, bson.M{"providerId": bson.M{"$in": providerIDs}, "isActive": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active bans: %w", err)
	}
	defer cursor.Close(ctx)
	var entries []models.BlacklistEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode blacklist entries: %w", err)
	}
	return entries, nil
}
