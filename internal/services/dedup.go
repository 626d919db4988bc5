package services

import (
	"context"
	"errors"
	"time"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/pkg/logger"
)

// DedupGate suppresses repeat view and impression events from the same actor
// on the same entity inside a sliding window. The check is not atomic with the
// insert, so two concurrent first requests may both be accepted.
type DedupGate struct {
	events interfaces.AnalyticsRepository
	window time.Duration
	log    *logger.Logger
	now    func() time.Time
}

func NewDedupGate(events interfaces.AnalyticsRepository, window time.Duration, log *logger.Logger) *DedupGate {
	return &DedupGate{
		events: events,
		window: window,
		log:    log,
		now:    time.Now,
	}
}

func (g *DedupGate) Window() time.Duration {
	return g.window
}

// ShouldSkip reports whether the candidate duplicates a recent event. Lookup
// failures are logged and the event is accepted.
func (g *DedupGate) ShouldSkip(ctx context.Context, input *models.TrackEventInput) bool {
	if input.SkipDedup || !input.EventType.Deduplicable() {
		return false
	}

	now := g.now()
	actor := models.ActorFingerprint(input.SessionID, input.IP)
	filter := models.EventFilter{
		EntityType:  input.EntityType,
		EntityID:    input.EntityID,
		ExactEntity: true,
		Actor:       actor,
		Since:       now.Add(-g.window),
	}

	prior, err := g.events.FindLatestEvent(ctx, filter)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return false
		}
		metrics.DedupLookupFailures.Inc()
		g.log.WithError(err).WithFields(map[string]interface{}{
			"entity_type": input.EntityType,
			"entity_id":   input.EntityID,
		}).Warn("dedup lookup failed, accepting event")
		return false
	}

	return now.Sub(prior.CreatedAt) < g.window
}
