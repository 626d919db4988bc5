package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
)

var fixedNow = time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)

type analyticsEnv struct {
	events  *fakeEventStore
	rollups *fakeRollups
	catalog *fakeCatalog
	cache   *cache.MemoryCache
	svc     *analyticsService
}

func newAnalyticsEnv(t *testing.T) *analyticsEnv {
	t.Helper()
	env := &analyticsEnv{
		events:  newFakeEventStore(),
		rollups: newFakeRollups(),
		catalog: newFakeCatalog(),
		cache:   cache.NewMemoryCache(),
	}
	svc := NewAnalyticsService(env.events, env.rollups, env.catalog, env.cache, AnalyticsServiceConfig{
		CacheTTL:     5 * time.Minute,
		QueryTimeout: time.Second,
		TopLimit:     10,
	}, logger.NewNop())
	env.svc = svc.(*analyticsService)
	env.svc.now = func() time.Time { return fixedNow }
	return env
}

func (e *analyticsEnv) event(eventType models.EventType, entityType models.EntityType, id, session string, ago time.Duration) {
	e.events.add(&models.AnalyticsEvent{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   id,
		EntityName: id,
		SessionID:  session,
		CreatedAt:  fixedNow.Add(-ago),
	})
}

func TestGetTopProducts_Percentages(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.event(models.EventProductView, models.EntityProduct, "p1", "s1", time.Hour)
	env.event(models.EventProductView, models.EntityProduct, "p1", "s2", 2*time.Hour)
	env.event(models.EventProductView, models.EntityProduct, "p1", "s2", 24*time.Hour)
	env.event(models.EventProductView, models.EntityProduct, "p2", "s3", time.Hour)
	// Outside the 7 day window
	env.event(models.EventProductView, models.EntityProduct, "p2", "s3", 10*24*time.Hour)

	stats, err := env.svc.GetTopProducts(context.Background(), models.Period7Days, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "p1", stats[0].ID)
	assert.Equal(t, int64(3), stats[0].Views)
	assert.Equal(t, int64(2), stats[0].UniqueVisitors)
	assert.Equal(t, int64(100), stats[0].Percentage)

	assert.Equal(t, "p2", stats[1].ID)
	assert.Equal(t, int64(1), stats[1].Views)
	assert.Equal(t, int64(33), stats[1].Percentage)
}

func TestGetTopProducts_TieBreakByEntityID(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.event(models.EventProductView, models.EntityProduct, "p9", "s1", time.Hour)
	env.event(models.EventProductView, models.EntityProduct, "p3", "s1", time.Hour)

	stats, err := env.svc.GetTopProducts(context.Background(), models.Period7Days, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "p3", stats[0].ID)
	assert.Equal(t, "p9", stats[1].ID)
}

func TestGetTopCategories_FallbackToProductCount(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.catalog.addCategory("chairs", "Chairs", nil, 3)
	env.catalog.addCategory("tables", "Tables", nil, 9)
	env.catalog.addCategory("empty", "Empty", nil, 0)

	stats, err := env.svc.GetTopCategories(context.Background(), models.Period30Days, 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "tables", stats[0].Slug)
	assert.Equal(t, "chairs", stats[1].Slug)
	for _, s := range stats {
		assert.Zero(t, s.Views)
		assert.Zero(t, s.Percentage)
	}

	env.event(models.EventCategoryView, models.EntityCategory, "c1", "s1", time.Hour)
	stats, err = env.svc.GetTopCategories(context.Background(), models.Period30Days, 10)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "c1", stats[0].ID)
}

func TestGetBannerStats_CTR(t *testing.T) {
	env := newAnalyticsEnv(t)
	hero := env.catalog.addBanner("Hero")
	idle := env.catalog.addBanner("Idle")

	for i := 0; i < 8; i++ {
		env.event(models.EventBannerImpression, models.EntityBanner, hero.ID.Hex(), "s", time.Hour)
	}
	env.event(models.EventBannerClick, models.EntityBanner, hero.ID.Hex(), "s", time.Hour)

	stats, err := env.svc.GetBannerStats(context.Background(), models.Period7Days)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, hero.ID.Hex(), stats[0].ID)
	assert.Equal(t, "Hero", stats[0].Title)
	assert.Equal(t, int64(8), stats[0].Impressions)
	assert.Equal(t, int64(1), stats[0].Clicks)
	assert.Equal(t, int64(13), stats[0].CTR)

	assert.Equal(t, idle.ID.Hex(), stats[1].ID)
	assert.Zero(t, stats[1].CTR)
}

func TestGetDailyTrends(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.event(models.EventProductView, models.EntityProduct, "p1", "s1", time.Hour)
	env.event(models.EventPageView, models.EntityPage, "/", "s2", time.Hour)
	env.event(models.EventBannerClick, models.EntityBanner, "b1", "s1", time.Hour)
	env.event(models.EventCategoryView, models.EntityCategory, "c1", "s1", 24*time.Hour)
	env.event(models.EventCategoryView, models.EntityCategory, "c1", "s1", 30*24*time.Hour)

	trends, err := env.svc.GetDailyTrends(context.Background(), models.PeriodWeek)
	require.NoError(t, err)
	require.Len(t, trends, 2)

	assert.Equal(t, "2024-07-09", trends[0].Date)
	assert.Equal(t, int64(1), trends[0].Views)
	assert.Equal(t, int64(1), trends[0].UniqueVisitors)

	assert.Equal(t, "2024-07-10", trends[1].Date)
	assert.Equal(t, int64(2), trends[1].Views)
	assert.Equal(t, int64(1), trends[1].Clicks)
	assert.Equal(t, int64(2), trends[1].UniqueVisitors)
}

func TestGetOverview(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.event(models.EventPageView, models.EntityPage, "/", "s1", time.Hour)
	env.event(models.EventProductView, models.EntityProduct, "p1", "s1", time.Hour)
	env.event(models.EventProductClick, models.EntityProduct, "p1", "s2", time.Hour)
	env.event(models.EventBannerClick, models.EntityBanner, "b1", "", time.Hour)

	o, err := env.svc.GetOverview(context.Background(), models.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, int64(4), o.TotalEvents)
	assert.Equal(t, int64(1), o.PageViews)
	assert.Equal(t, int64(1), o.ProductViews)
	assert.Equal(t, int64(2), o.Clicks)
	assert.Equal(t, int64(3), o.UniqueVisitors)
}

func TestGetDashboard_CachesByPeriod(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.event(models.EventProductView, models.EntityProduct, "p1", "s1", time.Hour)
	ctx := context.Background()

	first, err := env.svc.GetDashboard(ctx, models.Period7Days)
	require.NoError(t, err)
	require.Len(t, first.TopProducts, 1)
	queries := env.events.queries

	env.event(models.EventProductView, models.EntityProduct, "p2", "s1", time.Hour)
	second, err := env.svc.GetDashboard(ctx, models.Period7Days)
	require.NoError(t, err)
	assert.Equal(t, queries, env.events.queries, "second call served from cache")
	assert.Len(t, second.TopProducts, 1)

	require.NoError(t, env.svc.InvalidateDashboard(ctx))
	third, err := env.svc.GetDashboard(ctx, models.Period7Days)
	require.NoError(t, err)
	assert.Len(t, third.TopProducts, 2)
}

func TestGetDashboard_FailureReturnsNoData(t *testing.T) {
	env := newAnalyticsEnv(t)
	env.events.queryErr = errStoreDown

	dash, err := env.svc.GetDashboard(context.Background(), models.Period30Days)
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Nil(t, dash)
}

func TestGetDashboard_InvalidPeriod(t *testing.T) {
	env := newAnalyticsEnv(t)
	_, err := env.svc.GetDashboard(context.Background(), models.PeriodWeek)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("", models.Period7Days, models.DashboardPeriods)
	require.NoError(t, err)
	assert.Equal(t, models.Period7Days, p)

	p, err = ParsePeriod("90d", models.Period7Days, models.DashboardPeriods)
	require.NoError(t, err)
	assert.Equal(t, models.Period90Days, p)

	_, err = ParsePeriod("1y", models.Period7Days, models.DashboardPeriods)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestGetRollups(t *testing.T) {
	env := newAnalyticsEnv(t)
	ctx := context.Background()
	require.NoError(t, env.rollups.Increment(ctx, "2024-07-10", models.EntityProduct, "p1", models.RollupDelta{Views: 2}))
	require.NoError(t, env.rollups.Increment(ctx, "2024-07-01", models.EntityProduct, "p1", models.RollupDelta{Views: 1}))
	require.NoError(t, env.rollups.Increment(ctx, "2024-07-10", models.EntityBanner, "b1", models.RollupDelta{Clicks: 1}))

	rows, err := env.svc.GetRollups(ctx, models.Period7Days, models.EntityProduct)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].Views)

	rows, err = env.svc.GetRollups(ctx, models.PeriodAll, "")
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = env.svc.GetRollups(ctx, models.PeriodAll, "order")
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
