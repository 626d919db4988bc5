package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"storefront/internal/config"
	handlers "storefront/internal/handlers/shared"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/repositories/mongodb"
	"storefront/internal/services"
	"storefront/pkg/cache"
	"storefront/pkg/database"
	"storefront/pkg/logger"
	"storefront/pkg/websocket"
	"storefront/routes"
)

// closableCache is the dashboard cache plus its shutdown hook.
type closableCache interface {
	services.CacheService
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.App.LogLevel),
		Format:  cfg.App.LogFormat,
		Output:  "stdout",
		Caller:  cfg.App.Debug,
		Colors:  cfg.IsDevelopment(),
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		AppName:        cfg.App.Name,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	if cfg.Database.RunMigrations {
		if err := db.Migrate(); err != nil {
			appLogger.WithError(err).Fatal("Failed to run migrations")
		}
	}

	dashboardCache := newCache(cfg.Redis, appLogger)

	// Repositories
	eventRepo := mongodb.NewAnalyticsRepository(db.Database)
	rollupRepo := mongodb.NewRollupRepository(db.Database)
	catalogRepo := mongodb.NewCatalogRepository(db.Database)

	// Live feed
	hub := websocket.NewHub()
	hub.OnClientCount(func(n int) { metrics.LiveFeedClients.Set(float64(n)) })
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	// Services
	projectorCfg := services.DefaultProjectorConfig()
	projectorCfg.Timeout = cfg.Analytics.ProjectionTimeout
	projector := services.NewCounterProjector(catalogRepo, rollupRepo, projectorCfg, appLogger)
	gate := services.NewDedupGate(eventRepo, cfg.Analytics.DedupWindow, appLogger)

	trackingService := services.NewTrackingService(eventRepo, catalogRepo, gate, projector, hub, cfg.Analytics.BatchMaxSize, appLogger)
	analyticsService := services.NewAnalyticsService(eventRepo, rollupRepo, catalogRepo, dashboardCache, services.AnalyticsServiceConfig{
		CacheTTL:     cfg.Analytics.DashboardCacheTTL,
		QueryTimeout: cfg.Analytics.QueryTimeout,
		TopLimit:     cfg.Analytics.TopLimit,
	}, appLogger)
	catalogService := services.NewCatalogService(catalogRepo)

	rollupService := services.NewRollupService(eventRepo, rollupRepo, cfg.Analytics.RollupSchedule, appLogger)
	if err := rollupService.Start(); err != nil {
		appLogger.WithError(err).Fatal("Failed to schedule rollup rebuild")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		appLogger.WithError(err).Fatal("Invalid trusted proxies")
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(appLogger))
	router.Use(middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins))
	router.Use(middleware.ErrorDetailsMiddleware(cfg.IsDevelopment()))

	routes.SetupRoutes(router, routes.Handlers{
		Tracking:  handlers.NewTrackingHandler(trackingService),
		Catalog:   handlers.NewCatalogHandler(catalogService),
		Analytics: handlers.NewAnalyticsHandler(analyticsService, cfg.Analytics.TopLimit, cfg.Analytics.MaxTopLimit),
		Health: handlers.NewHealthHandler(cfg.App.Version, map[string]handlers.Pinger{
			"mongodb": db,
			"cache":   dashboardCache,
		}),
		LiveFeed: websocket.NewHandler(hub, cfg.Security.CORSAllowedOrigins),
	}, routes.Options{
		JWTSecret:   cfg.Security.JWTSecret,
		IngestRate:  cfg.Analytics.IngestRatePerSec,
		IngestBurst: cfg.Analytics.IngestBurst,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	go func() {
		appLogger.WithField("addr", server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// In-flight projections still need the database.
	projector.Wait()
	rollupService.Stop()
	stopHub()

	if err := dashboardCache.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close cache")
	}
	if err := db.Close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close MongoDB")
	}
	appLogger.Info("Server exited")
}

// newCache connects to Redis when enabled and falls back to an in-process
// cache when it is disabled or unreachable.
func newCache(cfg *config.RedisConfig, log *logger.Logger) closableCache {
	if !cfg.Enabled {
		log.Info("Redis disabled, using in-memory dashboard cache")
		return cache.NewMemoryCache()
	}

	var (
		redisCache *cache.RedisCache
		err        error
	)
	if cfg.URL != "" {
		redisCache, err = cache.NewRedisCacheFromURL(cfg.URL, cfg.KeyPrefix)
	} else {
		redisCache, err = cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Host,
			Port:         cfg.Port,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			KeyPrefix:    cfg.KeyPrefix,
		})
	}
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, using in-memory dashboard cache")
		return cache.NewMemoryCache()
	}
	return redisCache
}
