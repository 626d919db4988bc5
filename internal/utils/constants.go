package utils

import "time"

// Application Constants
const (
	AppName = "storefront"

	// Tracking
	DefaultDedupWindow = 5 * time.Minute
	DefaultTopLimit    = 10
	MaxTopLimit        = 100
	MaxBatchSize       = 100

	// Admin tokens
	AdminTokenTTL = 12 * time.Hour
	AdminRole     = "admin"

	// Headers
	HeaderRequestID     = "X-Request-ID"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderAuthorization = "Authorization"

	// Cache Keys
	CacheKeyDashboard = "analytics:dashboard:"
)

// Error Messages
const (
	ErrInvalidToken        = "invalid token"
	ErrInternalServer      = "internal server error"
	ErrUnauthorized        = "unauthorized"
	ErrForbidden           = "forbidden"
	ErrValidationFailed    = "validation failed"
	ErrMissingEventFields  = "eventType and entityType are required"
	ErrInvalidRequestBody  = "invalid request body"
	ErrTooManyEvents       = "too many events in batch"
	ErrRateLimited         = "too many requests"
	ErrInvalidPeriodParam  = "invalid period"
	ErrAnalyticsQuery      = "failed to load analytics"
	ErrEventPersistFailure = "failed to record event"
)
