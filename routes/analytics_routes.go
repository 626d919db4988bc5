package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	handlers "storefront/internal/handlers/shared"
	"storefront/internal/middleware"
	"storefront/pkg/websocket"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Tracking  *handlers.TrackingHandler
	Catalog   *handlers.CatalogHandler
	Analytics *handlers.AnalyticsHandler
	Health    *handlers.HealthHandler
	LiveFeed  *websocket.Handler
}

// Options carries the route-level policy knobs.
type Options struct {
	JWTSecret   string
	IngestRate  float64
	IngestBurst int
}

// SetupRoutes mounts the public ingestion API, the admin analytics API,
// /health and /metrics on r.
func SetupRoutes(r *gin.Engine, h Handlers, opts Options) {
	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	SetupTrackingRoutes(v1, h, opts)
	SetupAdminRoutes(v1, h, opts)
}

// SetupTrackingRoutes sets up the public storefront ingestion endpoints.
func SetupTrackingRoutes(r *gin.RouterGroup, h Handlers, opts Options) {
	ingest := r.Group("")
	ingest.Use(middleware.IngestRateLimit(opts.IngestRate, opts.IngestBurst))
	{
		ingest.POST("/analytics/track", h.Tracking.Track)
		ingest.PUT("/analytics/track", h.Tracking.TrackBatch)

		ingest.POST("/products/:slug/view", h.Tracking.TrackProductView)
		ingest.POST("/categories/:slug/view", h.Tracking.TrackCategoryView)
		ingest.POST("/banners/:id/impression", h.Tracking.TrackBannerImpression)
		ingest.POST("/banners/:id/click", h.Tracking.TrackBannerClick)
		ingest.POST("/tags/:slug/click", h.Tracking.TrackTagClick)
	}

	r.GET("/categories/:slug/breadcrumbs", h.Catalog.GetBreadcrumbs)
}

// SetupAdminRoutes sets up the dashboard endpoints behind admin auth.
func SetupAdminRoutes(r *gin.RouterGroup, h Handlers, opts Options) {
	admin := r.Group("/admin/analytics")
	admin.Use(middleware.AdminRequired(opts.JWTSecret))
	{
		admin.GET("/dashboard", h.Analytics.GetDashboard)
		admin.DELETE("/dashboard/cache", h.Analytics.InvalidateDashboard)
		admin.GET("/overview", h.Analytics.GetOverview)
		admin.GET("/products/top", h.Analytics.GetTopProducts)
		admin.GET("/categories/top", h.Analytics.GetTopCategories)
		admin.GET("/banners", h.Analytics.GetBannerStats)
		admin.GET("/trends", h.Analytics.GetTrends)
		admin.GET("/rollups", h.Analytics.GetRollups)

		if h.LiveFeed != nil {
			admin.GET("/live", h.LiveFeed.HandleLiveFeed)
		}
	}
}
