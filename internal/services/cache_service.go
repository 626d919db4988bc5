package services

import (
	"context"
	"time"
)

// CacheService is the slice of the cache the analytics layer needs.
// pkg/cache.RedisCache and pkg/cache.MemoryCache both satisfy it.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
}

// EventPublisher receives accepted events for the admin live feed.
type EventPublisher interface {
	Publish(messageType, entityType string, data interface{})
}
