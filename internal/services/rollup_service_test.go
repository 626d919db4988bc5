package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/pkg/logger"
)

func TestRollupService_RebuildDayOverwritesDrift(t *testing.T) {
	events := newFakeEventStore()
	rollups := newFakeRollups()
	ctx := context.Background()

	day := time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		events.add(&models.AnalyticsEvent{
			EventType: models.EventProductView, EntityType: models.EntityProduct,
			EntityID: "p1", CreatedAt: day.Add(time.Duration(i) * time.Hour),
		})
	}
	events.add(&models.AnalyticsEvent{
		EventType: models.EventBannerImpression, EntityType: models.EntityBanner,
		EntityID: "b1", CreatedAt: day.Add(23 * time.Hour),
	})
	// Next day, must not be counted
	events.add(&models.AnalyticsEvent{
		EventType: models.EventProductView, EntityType: models.EntityProduct,
		EntityID: "p1", CreatedAt: day.AddDate(0, 0, 1),
	})

	// A dropped increment left the stored row short.
	require.NoError(t, rollups.Increment(ctx, "2024-07-09", models.EntityProduct, "p1", models.RollupDelta{Views: 1}))

	svc := NewRollupService(events, rollups, "", logger.NewNop())
	svc.now = func() time.Time { return day.AddDate(0, 0, 1).Add(15 * time.Minute) }

	n, err := svc.RebuildYesterday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	row := rollups.get("2024-07-09", models.EntityProduct, "p1")
	require.NotNil(t, row)
	assert.Equal(t, int64(3), row.Views)
	assert.False(t, row.UpdatedAt.IsZero())

	banner := rollups.get("2024-07-09", models.EntityBanner, "b1")
	require.NotNil(t, banner)
	assert.Equal(t, int64(1), banner.Impressions)

	assert.Nil(t, rollups.get("2024-07-10", models.EntityProduct, "p1"))
}

func TestRollupService_RebuildDayErrors(t *testing.T) {
	events := newFakeEventStore()
	events.queryErr = errStoreDown
	svc := NewRollupService(events, newFakeRollups(), "", logger.NewNop())

	_, err := svc.RebuildDay(context.Background(), time.Now())
	assert.ErrorIs(t, err, errStoreDown)
}

func TestRollupService_Start(t *testing.T) {
	svc := NewRollupService(newFakeEventStore(), newFakeRollups(), "not a schedule", logger.NewNop())
	assert.Error(t, svc.Start())

	svc = NewRollupService(newFakeEventStore(), newFakeRollups(), "15 0 * * *", logger.NewNop())
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start(), "second start is a no-op")
	svc.Stop()
	svc.Stop()

	disabled := NewRollupService(newFakeEventStore(), newFakeRollups(), "", logger.NewNop())
	assert.NoError(t, disabled.Start())
}
