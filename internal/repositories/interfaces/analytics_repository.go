package interfaces

import (
	"context"
	"time"

	"storefront/internal/models"
)

type AnalyticsRepository interface {
	// Event store
	CreateEvent(ctx context.Context, event *models.AnalyticsEvent) error
	FindLatestEvent(ctx context.Context, filter models.EventFilter) (*models.AnalyticsEvent, error)
	CountEvents(ctx context.Context, filter models.EventFilter) (int64, error)

	// Aggregations
	TopEntities(ctx context.Context, filter models.EventFilter, limit int) ([]*models.EntityCount, error)
	DailyTrends(ctx context.Context, since, until time.Time) ([]*models.DailyTrend, error)
	CountUniqueActors(ctx context.Context, filter models.EventFilter) (int64, error)
	CountByEntityAndType(ctx context.Context, filter models.EventFilter) ([]*models.EventTypeCount, error)
	DailyEntityRollups(ctx context.Context, since, until time.Time) ([]*models.DailyAnalytics, error)
}

type RollupRepository interface {
	Increment(ctx context.Context, date string, entityType models.EntityType, entityID string, delta models.RollupDelta) error
	Replace(ctx context.Context, row *models.DailyAnalytics) error
	GetRange(ctx context.Context, fromDate, toDate string, entityType models.EntityType) ([]*models.DailyAnalytics, error)
}
