package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
)

type rollupRepository struct {
	collection *mongo.Collection
}

func NewRollupRepository(db *mongo.Database) interfaces.RollupRepository {
	return &rollupRepository{
		collection: db.Collection(RollupCollection),
	}
}

func (r *rollupRepository) Increment(ctx context.Context, date string, entityType models.EntityType, entityID string, delta models.RollupDelta) error {
	filter := bson.M{
		"date":       date,
		"entityType": entityType,
		"entityId":   entityID,
	}
	update := bson.M{
		"$inc": bson.M{
			"views":       delta.Views,
			"clicks":      delta.Clicks,
			"impressions": delta.Impressions,
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment daily analytics: %w", err)
	}

	return nil
}

func (r *rollupRepository) Replace(ctx context.Context, row *models.DailyAnalytics) error {
	filter := bson.M{
		"date":       row.Date,
		"entityType": row.EntityType,
		"entityId":   row.EntityID,
	}
	update := bson.M{
		"$set": bson.M{
			"views":       row.Views,
			"clicks":      row.Clicks,
			"impressions": row.Impressions,
			"updatedAt":   time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to replace daily analytics: %w", err)
	}

	return nil
}

func (r *rollupRepository) GetRange(ctx context.Context, fromDate, toDate string, entityType models.EntityType) ([]*models.DailyAnalytics, error) {
	filter := bson.M{
		"date": bson.M{
			"$gte": fromDate,
			"$lte": toDate,
		},
	}
	if entityType != "" {
		filter["entityType"] = entityType
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "entityId", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find daily analytics: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []*models.DailyAnalytics
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode daily analytics: %w", err)
	}

	return rows, nil
}
