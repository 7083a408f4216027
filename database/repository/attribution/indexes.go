package attributionRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the attribution indexes, including the partial
// unique index that allows one active attribution per service request.
func (r *MongoAttributionRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	oneActivePerRequest := options.Index().
		SetUnique(true).
		SetName("uniq_active_per_request").
		SetPartialFilterExpression(bson.M{"active": true})

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "serviceRequestId", Value: 1}}, Options: oneActivePerRequest},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create attribution indexes: %w", err)
	}
	return nil
}
