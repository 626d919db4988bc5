package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type AnalyticsConfig struct {
	DedupWindow       time.Duration `yaml:"dedup_window"`
	ProjectionTimeout time.Duration `yaml:"projection_timeout"`
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	DashboardCacheTTL time.Duration `yaml:"dashboard_cache_ttl"`
	RollupSchedule    string        `yaml:"rollup_schedule"`
	IngestRatePerSec  float64       `yaml:"ingest_rate_per_sec"`
	IngestBurst       int           `yaml:"ingest_burst"`
	BatchMaxSize      int           `yaml:"batch_max_size"`
	TopLimit          int           `yaml:"top_limit"`
	MaxTopLimit       int           `yaml:"max_top_limit"`
}

func loadAnalyticsConfig() *AnalyticsConfig {
	return &AnalyticsConfig{
		DedupWindow:       getEnvAsDuration("ANALYTICS_DEDUP_WINDOW", 5*time.Minute),
		ProjectionTimeout: getEnvAsDuration("ANALYTICS_PROJECTION_TIMEOUT", 5*time.Second),
		QueryTimeout:      getEnvAsDuration("ANALYTICS_QUERY_TIMEOUT", 15*time.Second),
		DashboardCacheTTL: getEnvAsDuration("ANALYTICS_DASHBOARD_CACHE_TTL", 5*time.Minute),
		RollupSchedule:    getEnv("ANALYTICS_ROLLUP_SCHEDULE", "15 0 * * *"),
		IngestRatePerSec:  getEnvAsFloat64("ANALYTICS_INGEST_RATE", 50),
		IngestBurst:       getEnvAsInt("ANALYTICS_INGEST_BURST", 100),
		BatchMaxSize:      getEnvAsInt("ANALYTICS_BATCH_MAX", 100),
		TopLimit:          getEnvAsInt("ANALYTICS_TOP_LIMIT", 10),
		MaxTopLimit:       getEnvAsInt("ANALYTICS_MAX_TOP_LIMIT", 100),
	}
}

func (a *AnalyticsConfig) Validate() error {
	if a.DedupWindow <= 0 {
		return fmt.Errorf("ANALYTICS_DEDUP_WINDOW must be positive")
	}
	if a.ProjectionTimeout <= 0 {
		return fmt.Errorf("ANALYTICS_PROJECTION_TIMEOUT must be positive")
	}
	if a.BatchMaxSize <= 0 {
		return fmt.Errorf("ANALYTICS_BATCH_MAX must be positive")
	}
	if a.TopLimit <= 0 || a.TopLimit > a.MaxTopLimit {
		return fmt.Errorf("ANALYTICS_TOP_LIMIT must be between 1 and %d", a.MaxTopLimit)
	}
	if a.RollupSchedule != "" {
		if _, err := cron.ParseStandard(a.RollupSchedule); err != nil {
			return fmt.Errorf("invalid ANALYTICS_ROLLUP_SCHEDULE %q: %w", a.RollupSchedule, err)
		}
	}
	return nil
}
