package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
)

const (
	EventsCollection = "analytics_events"
	RollupCollection = "daily_analytics"
)

type analyticsRepository struct {
	eventsCollection *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) interfaces.AnalyticsRepository {
	return &analyticsRepository{
		eventsCollection: db.Collection(EventsCollection),
	}
}

// Event store
func (r *analyticsRepository) CreateEvent(ctx context.Context, event *models.AnalyticsEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := r.eventsCollection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to create analytics event: %w", err)
	}

	return nil
}

func (r *analyticsRepository) FindLatestEvent(ctx context.Context, filter models.EventFilter) (*models.AnalyticsEvent, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var event models.AnalyticsEvent
	err := r.eventsCollection.FindOne(ctx, eventFilterToBSON(filter), opts).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find latest event: %w", err)
	}

	return &event, nil
}

func (r *analyticsRepository) CountEvents(ctx context.Context, filter models.EventFilter) (int64, error) {
	count, err := r.eventsCollection.CountDocuments(ctx, eventFilterToBSON(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// Aggregations
func (r *analyticsRepository) TopEntities(ctx context.Context, filter models.EventFilter, limit int) ([]*models.EntityCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: eventFilterToBSON(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":    "$entityId",
			"count":  bson.M{"$sum": 1},
			"name":   bson.M{"$last": "$entityName"},
			"slug":   bson.M{"$last": "$entitySlug"},
			"actors": bson.M{"$addToSet": actorExpression()},
		}}},
		{{Key: "$project", Value: bson.M{
			"count":           1,
			"name":            1,
			"slug":            1,
			"unique_visitors": bson.M{"$size": "$actors"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := r.eventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top entities: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.EntityCount
	for cursor.Next(ctx) {
		var row struct {
			ID             string `bson:"_id"`
			Count          int64  `bson:"count"`
			Name           string `bson:"name"`
			Slug           string `bson:"slug"`
			UniqueVisitors int64  `bson:"unique_visitors"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode top entity: %w", err)
		}
		results = append(results, &models.EntityCount{
			EntityID:       row.ID,
			EntityName:     row.Name,
			EntitySlug:     row.Slug,
			Count:          row.Count,
			UniqueVisitors: row.UniqueVisitors,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("top entities cursor: %w", err)
	}

	return results, nil
}

func (r *analyticsRepository) DailyTrends(ctx context.Context, since, until time.Time) ([]*models.DailyTrend, error) {
	matchesType := func(pattern string) bson.M {
		return bson.M{"$cond": bson.A{
			bson.M{"$regexMatch": bson.M{"input": "$eventType", "regex": pattern}},
			1,
			0,
		}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: eventFilterToBSON(models.EventFilter{}.Between(since, until))}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$createdAt",
				"timezone": "UTC",
			}},
			"views":  bson.M{"$sum": matchesType("view")},
			"clicks": bson.M{"$sum": matchesType("click")},
			"actors": bson.M{"$addToSet": actorExpression()},
		}}},
		{{Key: "$project", Value: bson.M{
			"views":           1,
			"clicks":          1,
			"unique_visitors": bson.M{"$size": "$actors"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := r.eventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily trends: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.DailyTrend
	for cursor.Next(ctx) {
		var row struct {
			Date           string `bson:"_id"`
			Views          int64  `bson:"views"`
			Clicks         int64  `bson:"clicks"`
			UniqueVisitors int64  `bson:"unique_visitors"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode daily trend: %w", err)
		}
		results = append(results, &models.DailyTrend{
			Date:           row.Date,
			Views:          row.Views,
			Clicks:         row.Clicks,
			UniqueVisitors: row.UniqueVisitors,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("daily trends cursor: %w", err)
	}

	return results, nil
}

func (r *analyticsRepository) CountUniqueActors(ctx context.Context, filter models.EventFilter) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: eventFilterToBSON(filter)}},
		{{Key: "$group", Value: bson.M{"_id": actorExpression()}}},
		{{Key: "$count", Value: "total"}},
	}

	cursor, err := r.eventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count unique actors: %w", err)
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode unique actors: %w", err)
		}
	}

	return result.Total, cursor.Err()
}

func (r *analyticsRepository) CountByEntityAndType(ctx context.Context, filter models.EventFilter) ([]*models.EventTypeCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: eventFilterToBSON(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"entity_id":  "$entityId",
				"event_type": "$eventType",
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.entity_id", Value: 1}, {Key: "_id.event_type", Value: 1}}}},
	}

	cursor, err := r.eventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by entity and type: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.EventTypeCount
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				EntityID  string           `bson:"entity_id"`
				EventType models.EventType `bson:"event_type"`
			} `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode event type count: %w", err)
		}
		results = append(results, &models.EventTypeCount{
			EntityID:  row.ID.EntityID,
			EventType: row.ID.EventType,
			Count:     row.Count,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("event type count cursor: %w", err)
	}

	return results, nil
}

// DailyEntityRollups recomputes DailyAnalytics rows from raw events.
func (r *analyticsRepository) DailyEntityRollups(ctx context.Context, since, until time.Time) ([]*models.DailyAnalytics, error) {
	countIf := func(pattern string) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{
			bson.M{"$regexMatch": bson.M{"input": "$eventType", "regex": pattern}},
			1,
			0,
		}}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: eventFilterToBSON(models.EventFilter{}.Between(since, until))}},
		{{Key: "$match", Value: bson.M{"entityId": bson.M{"$exists": true}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"date": bson.M{"$dateToString": bson.M{
					"format":   "%Y-%m-%d",
					"date":     "$createdAt",
					"timezone": "UTC",
				}},
				"entity_type": "$entityType",
				"entity_id":   "$entityId",
			},
			"views":       countIf("view"),
			"clicks":      countIf("click"),
			"impressions": countIf("impression"),
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: 1}, {Key: "_id.entity_id", Value: 1}}}},
	}

	cursor, err := r.eventsCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily rollups: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*models.DailyAnalytics
	for cursor.Next(ctx) {
		var row struct {
			ID struct {
				Date       string            `bson:"date"`
				EntityType models.EntityType `bson:"entity_type"`
				EntityID   string            `bson:"entity_id"`
			} `bson:"_id"`
			Views       int64 `bson:"views"`
			Clicks      int64 `bson:"clicks"`
			Impressions int64 `bson:"impressions"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode daily rollup: %w", err)
		}
		results = append(results, &models.DailyAnalytics{
			Date:        row.ID.Date,
			EntityType:  row.ID.EntityType,
			EntityID:    row.ID.EntityID,
			Views:       row.Views,
			Clicks:      row.Clicks,
			Impressions: row.Impressions,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("daily rollups cursor: %w", err)
	}

	return results, nil
}
