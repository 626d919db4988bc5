package models

import "time"

// EventFilter is the typed query over the event store. Zero-valued fields are
// not applied.
type EventFilter struct {
	EventTypes []EventType
	EntityType EntityType
	EntityID   string
	// ExactEntity matches EntityID as given, so an empty ID selects only
	// events stored without one.
	ExactEntity bool
	// Actor matches sessionId or, for sessionless events, ip.
	Actor string
	Since time.Time
	Until time.Time
	// EventTypePattern is a case-insensitive regular expression over eventType.
	EventTypePattern string
}

func (f EventFilter) WithTypes(types ...EventType) EventFilter {
	f.EventTypes = append([]EventType(nil), types...)
	return f
}

func (f EventFilter) WithEntity(entityType EntityType, entityID string) EventFilter {
	f.EntityType = entityType
	f.EntityID = entityID
	return f
}

func (f EventFilter) Between(since, until time.Time) EventFilter {
	f.Since = since
	f.Until = until
	return f
}
