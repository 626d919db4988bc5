package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/pkg/cache"
	"storefront/pkg/logger"
)

type AnalyticsService interface {
	GetDashboard(ctx context.Context, period models.Period) (*models.Dashboard, error)
	GetOverview(ctx context.Context, period models.Period) (*models.Overview, error)
	GetTopProducts(ctx context.Context, period models.Period, limit int) ([]models.EntityStat, error)
	GetTopCategories(ctx context.Context, period models.Period, limit int) ([]models.EntityStat, error)
	GetBannerStats(ctx context.Context, period models.Period) ([]models.BannerStat, error)
	GetDailyTrends(ctx context.Context, period models.Period) ([]models.DailyTrend, error)
	GetRollups(ctx context.Context, period models.Period, entityType models.EntityType) ([]*models.DailyAnalytics, error)
	InvalidateDashboard(ctx context.Context) error
}

type AnalyticsServiceConfig struct {
	CacheTTL     time.Duration
	QueryTimeout time.Duration
	TopLimit     int
}

type analyticsService struct {
	events  interfaces.AnalyticsRepository
	rollups interfaces.RollupRepository
	catalog interfaces.CatalogRepository
	cache   CacheService
	config  AnalyticsServiceConfig
	log     *logger.Logger
	now     func() time.Time
}

func NewAnalyticsService(
	events interfaces.AnalyticsRepository,
	rollups interfaces.RollupRepository,
	catalog interfaces.CatalogRepository,
	cache CacheService,
	config AnalyticsServiceConfig,
	log *logger.Logger,
) AnalyticsService {
	if config.TopLimit <= 0 {
		config.TopLimit = utils.DefaultTopLimit
	}
	return &analyticsService{
		events:  events,
		rollups: rollups,
		catalog: catalog,
		cache:   cache,
		config:  config,
		log:     log,
		now:     time.Now,
	}
}

// ParsePeriod validates raw against allowed, returning def when raw is empty.
func ParsePeriod(raw string, def models.Period, allowed []models.Period) (models.Period, error) {
	if raw == "" {
		return def, nil
	}
	p := models.Period(raw)
	if !p.In(allowed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
	return p, nil
}

// since returns the inclusive start of the period; zero for unbounded.
func (s *analyticsService) since(period models.Period) time.Time {
	days := period.Days()
	if days == 0 {
		return time.Time{}
	}
	return utils.StartOfDay(s.now()).AddDate(0, 0, -(days - 1))
}

func (s *analyticsService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.config.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

func dashboardCacheKey(period models.Period) string {
	return utils.CacheKeyDashboard + string(period)
}

// Dashboard Metrics
func (s *analyticsService) GetDashboard(ctx context.Context, period models.Period) (*models.Dashboard, error) {
	if !period.In(models.DashboardPeriods) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	// Try cache first
	cacheKey := dashboardCacheKey(period)
	if s.cache != nil {
		var cached models.Dashboard
		err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil {
			metrics.DashboardCacheHits.Inc()
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).Warn("dashboard cache read failed")
		}
	}
	metrics.DashboardCacheMisses.Inc()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dash := &models.Dashboard{Period: period}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		overview, err := s.overview(gctx, period)
		if err != nil {
			return err
		}
		dash.Overview = *overview
		return nil
	})
	g.Go(func() error {
		var err error
		dash.TopProducts, err = s.topProducts(gctx, period, s.config.TopLimit)
		return err
	})
	g.Go(func() error {
		var err error
		dash.TopCategories, err = s.topCategories(gctx, period, s.config.TopLimit)
		return err
	})
	g.Go(func() error {
		var err error
		dash.BannerStats, err = s.bannerStats(gctx, period)
		return err
	})
	g.Go(func() error {
		var err error
		dash.DailyTrends, err = s.dailyTrends(gctx, period)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	// Cache for the configured TTL
	if s.cache != nil && s.config.CacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, dash, s.config.CacheTTL); err != nil {
			s.log.WithError(err).Warn("dashboard cache write failed")
		}
	}

	return dash, nil
}

func (s *analyticsService) InvalidateDashboard(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	keys := make([]string, 0, len(models.DashboardPeriods))
	for _, p := range models.DashboardPeriods {
		keys = append(keys, dashboardCacheKey(p))
	}
	return s.cache.Delete(ctx, keys...)
}

func (s *analyticsService) GetOverview(ctx context.Context, period models.Period) (*models.Overview, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.overview(ctx, period)
}

func (s *analyticsService) overview(ctx context.Context, period models.Period) (*models.Overview, error) {
	defer metrics.ObserveAggregation("overview")()

	window := models.EventFilter{Since: s.since(period)}
	var (
		overview models.Overview
		err      error
	)

	if overview.TotalEvents, err = s.events.CountEvents(ctx, window); err != nil {
		return nil, err
	}
	if overview.PageViews, err = s.events.CountEvents(ctx, window.WithTypes(models.EventPageView)); err != nil {
		return nil, err
	}
	if overview.ProductViews, err = s.events.CountEvents(ctx, window.WithTypes(models.EventProductView)); err != nil {
		return nil, err
	}
	clicks := window
	clicks.EventTypePattern = "click"
	if overview.Clicks, err = s.events.CountEvents(ctx, clicks); err != nil {
		return nil, err
	}
	if overview.UniqueVisitors, err = s.events.CountUniqueActors(ctx, window); err != nil {
		return nil, err
	}

	return &overview, nil
}

func (s *analyticsService) GetTopProducts(ctx context.Context, period models.Period, limit int) ([]models.EntityStat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.topProducts(ctx, period, limit)
}

func (s *analyticsService) topProducts(ctx context.Context, period models.Period, limit int) ([]models.EntityStat, error) {
	defer metrics.ObserveAggregation("top_products")()

	filter := models.EventFilter{Since: s.since(period)}.
		WithTypes(models.EventProductView).
		WithEntity(models.EntityProduct, "")
	rows, err := s.events.TopEntities(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	return toEntityStats(rows), nil
}

func (s *analyticsService) GetTopCategories(ctx context.Context, period models.Period, limit int) ([]models.EntityStat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.topCategories(ctx, period, limit)
}

// topCategories falls back to the largest categories by product count when
// the window has no category views.
func (s *analyticsService) topCategories(ctx context.Context, period models.Period, limit int) ([]models.EntityStat, error) {
	defer metrics.ObserveAggregation("top_categories")()

	filter := models.EventFilter{Since: s.since(period)}.
		WithTypes(models.EventCategoryView).
		WithEntity(models.EntityCategory, "")
	rows, err := s.events.TopEntities(ctx, filter, limit)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return toEntityStats(rows), nil
	}

	categories, err := s.catalog.ListCategoriesByProductCount(ctx, limit)
	if err != nil {
		return nil, err
	}
	stats := make([]models.EntityStat, 0, len(categories))
	for _, c := range categories {
		stats = append(stats, models.EntityStat{
			ID:   c.ID.Hex(),
			Name: c.Name,
			Slug: c.Slug,
		})
	}
	return stats, nil
}

// toEntityStats expects rows sorted by count descending; percentages are
// relative to the first row.
func toEntityStats(rows []*models.EntityCount) []models.EntityStat {
	stats := make([]models.EntityStat, 0, len(rows))
	if len(rows) == 0 {
		return stats
	}
	base := rows[0].Count
	for _, r := range rows {
		stats = append(stats, models.EntityStat{
			ID:             r.EntityID,
			Name:           r.EntityName,
			Slug:           r.EntitySlug,
			Views:          r.Count,
			UniqueVisitors: r.UniqueVisitors,
			Percentage:     utils.Percentage(r.Count, base),
		})
	}
	return stats
}

func (s *analyticsService) GetBannerStats(ctx context.Context, period models.Period) ([]models.BannerStat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.bannerStats(ctx, period)
}

func (s *analyticsService) bannerStats(ctx context.Context, period models.Period) ([]models.BannerStat, error) {
	defer metrics.ObserveAggregation("banner_stats")()

	filter := models.EventFilter{Since: s.since(period)}.
		WithTypes(models.EventBannerImpression, models.EventBannerClick).
		WithEntity(models.EntityBanner, "")
	counts, err := s.events.CountByEntityAndType(ctx, filter)
	if err != nil {
		return nil, err
	}
	banners, err := s.catalog.ListBanners(ctx, nil)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.BannerStat, len(banners))
	for _, b := range banners {
		id := b.ID.Hex()
		byID[id] = &models.BannerStat{ID: id, Title: b.Title}
	}
	for _, c := range counts {
		if c.EntityID == "" {
			continue
		}
		stat, ok := byID[c.EntityID]
		if !ok {
			stat = &models.BannerStat{ID: c.EntityID}
			byID[c.EntityID] = stat
		}
		switch c.EventType {
		case models.EventBannerImpression:
			stat.Impressions += c.Count
		case models.EventBannerClick:
			stat.Clicks += c.Count
		}
	}

	stats := make([]models.BannerStat, 0, len(byID))
	for _, stat := range byID {
		stat.CTR = utils.Percentage(stat.Clicks, stat.Impressions)
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Impressions != stats[j].Impressions {
			return stats[i].Impressions > stats[j].Impressions
		}
		return stats[i].ID < stats[j].ID
	})
	return stats, nil
}

func (s *analyticsService) GetDailyTrends(ctx context.Context, period models.Period) ([]models.DailyTrend, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.dailyTrends(ctx, period)
}

func (s *analyticsService) dailyTrends(ctx context.Context, period models.Period) ([]models.DailyTrend, error) {
	defer metrics.ObserveAggregation("daily_trends")()

	rows, err := s.events.DailyTrends(ctx, s.since(period), time.Time{})
	if err != nil {
		return nil, err
	}
	trends := make([]models.DailyTrend, 0, len(rows))
	for _, r := range rows {
		trends = append(trends, *r)
	}
	return trends, nil
}

func (s *analyticsService) GetRollups(ctx context.Context, period models.Period, entityType models.EntityType) ([]*models.DailyAnalytics, error) {
	if entityType != "" && !entityType.Valid() {
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidEvent, entityType)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	defer metrics.ObserveAggregation("rollups")()

	from := ""
	if since := s.since(period); !since.IsZero() {
		from = utils.DateKey(since)
	}
	rows, err := s.rollups.GetRange(ctx, from, utils.DateKey(s.now()), entityType)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*models.DailyAnalytics{}
	}
	return rows, nil
}
