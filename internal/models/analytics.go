package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventType string

const (
	EventPageView         EventType = "page_view"
	EventProductView      EventType = "product_view"
	EventProductClick     EventType = "product_click"
	EventCategoryView     EventType = "category_view"
	EventCategoryClick    EventType = "category_click"
	EventBannerImpression EventType = "banner_impression"
	EventBannerClick      EventType = "banner_click"
	EventTagImpression    EventType = "tag_impression"
	EventTagClick         EventType = "tag_click"
	EventSearch           EventType = "search"
	EventAddToInquiry     EventType = "add_to_inquiry"
	EventContactSubmit    EventType = "contact_submit"
)

var EventTypes = []EventType{
	EventPageView, EventProductView, EventProductClick,
	EventCategoryView, EventCategoryClick,
	EventBannerImpression, EventBannerClick,
	EventTagImpression, EventTagClick,
	EventSearch, EventAddToInquiry, EventContactSubmit,
}

func (t EventType) Valid() bool {
	for _, et := range EventTypes {
		if et == t {
			return true
		}
	}
	return false
}

// IsView reports whether the type belongs to the view family. Matching is by
// substring so new *_view types are picked up by the trend pipeline too.
func (t EventType) IsView() bool {
	return strings.Contains(string(t), "view")
}

func (t EventType) IsClick() bool {
	return strings.Contains(string(t), "click")
}

func (t EventType) IsImpression() bool {
	return strings.Contains(string(t), "impression")
}

// Deduplicable reports whether the dedup gate applies to this type.
func (t EventType) Deduplicable() bool {
	return t.IsView() || t.IsImpression()
}

type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntityCategory EntityType = "category"
	EntityBanner   EntityType = "banner"
	EntityTag      EntityType = "tag"
	EntityPage     EntityType = "page"
)

var EntityTypes = []EntityType{EntityProduct, EntityCategory, EntityBanner, EntityTag, EntityPage}

func (t EntityType) Valid() bool {
	for _, et := range EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}

// UnknownActor is the shared fingerprint for traffic with neither a session id nor an IP.
const UnknownActor = "unknown"

type AnalyticsEvent struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EventType  EventType          `json:"eventType" bson:"eventType"`
	EntityType EntityType         `json:"entityType" bson:"entityType"`
	EntityID   string             `json:"entityId,omitempty" bson:"entityId,omitempty"`
	EntitySlug string             `json:"entitySlug,omitempty" bson:"entitySlug,omitempty"`
	EntityName string             `json:"entityName,omitempty" bson:"entityName,omitempty"`
	SessionID  string             `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	UserID     string             `json:"userId,omitempty" bson:"userId,omitempty"`
	IP         string             `json:"ip,omitempty" bson:"ip,omitempty"`
	Metadata   EventMetadata      `json:"metadata" bson:"metadata"`
	CreatedAt  time.Time          `json:"createdAt" bson:"createdAt"`
}

// Actor returns the dedup and unique-visitor fingerprint of the event.
func (e *AnalyticsEvent) Actor() string {
	return ActorFingerprint(e.SessionID, e.IP)
}

func ActorFingerprint(sessionID, ip string) string {
	if sessionID != "" {
		return sessionID
	}
	if ip != "" {
		return ip
	}
	return UnknownActor
}

type EventMetadata struct {
	Referrer     string                 `json:"referrer,omitempty" bson:"referrer,omitempty"`
	UserAgent    string                 `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	Browser      string                 `json:"browser,omitempty" bson:"browser,omitempty"`
	OS           string                 `json:"os,omitempty" bson:"os,omitempty"`
	Device       string                 `json:"device,omitempty" bson:"device,omitempty"`
	Bot          bool                   `json:"bot,omitempty" bson:"bot,omitempty"`
	UTMSource    string                 `json:"utmSource,omitempty" bson:"utmSource,omitempty"`
	UTMMedium    string                 `json:"utmMedium,omitempty" bson:"utmMedium,omitempty"`
	UTMCampaign  string                 `json:"utmCampaign,omitempty" bson:"utmCampaign,omitempty"`
	SearchQuery  string                 `json:"searchQuery,omitempty" bson:"searchQuery,omitempty"`
	PagePath     string                 `json:"pagePath,omitempty" bson:"pagePath,omitempty"`
	PreviousPage string                 `json:"previousPage,omitempty" bson:"previousPage,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty" bson:"extra,omitempty"`
}

// TrackEventInput is the writer's input. IP is derived by the transport layer.
type TrackEventInput struct {
	EventType  EventType     `json:"eventType" validate:"required,event_type"`
	EntityType EntityType    `json:"entityType" validate:"required,entity_type"`
	EntityID   string        `json:"entityId,omitempty" validate:"max=128"`
	EntitySlug string        `json:"entitySlug,omitempty" validate:"max=256"`
	EntityName string        `json:"entityName,omitempty" validate:"max=512"`
	SessionID  string        `json:"sessionId,omitempty" validate:"max=128"`
	UserID     string        `json:"userId,omitempty" validate:"max=128"`
	IP         string        `json:"-"`
	Metadata   EventMetadata `json:"metadata"`
	SkipDedup  bool          `json:"-"`
}

// DailyAnalytics is the per-day, per-entity rollup.
type DailyAnalytics struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Date        string             `json:"date" bson:"date"`
	EntityType  EntityType         `json:"entityType" bson:"entityType"`
	EntityID    string             `json:"entityId" bson:"entityId"`
	Views       int64              `json:"views" bson:"views"`
	Clicks      int64              `json:"clicks" bson:"clicks"`
	Impressions int64              `json:"impressions" bson:"impressions"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// RollupDelta is the increment applied to a DailyAnalytics row.
type RollupDelta struct {
	Views       int64
	Clicks      int64
	Impressions int64
}

func RollupDeltaFor(t EventType) RollupDelta {
	switch {
	case t.IsView():
		return RollupDelta{Views: 1}
	case t.IsClick():
		return RollupDelta{Clicks: 1}
	case t.IsImpression():
		return RollupDelta{Impressions: 1}
	}
	return RollupDelta{}
}

func (d RollupDelta) IsZero() bool {
	return d.Views == 0 && d.Clicks == 0 && d.Impressions == 0
}
