package services

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/pkg/logger"
)

type ProjectorConfig struct {
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultProjectorConfig() ProjectorConfig {
	return ProjectorConfig{
		Timeout:          5 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// CounterProjector applies the best-effort side effects of an accepted event:
// the catalog counter $inc and the DailyAnalytics increment. It runs detached
// from the request and never reports failures to the caller.
type CounterProjector struct {
	catalog        interfaces.CatalogRepository
	rollups        interfaces.RollupRepository
	counterBreaker *gobreaker.CircuitBreaker[struct{}]
	rollupBreaker  *gobreaker.CircuitBreaker[struct{}]
	timeout        time.Duration
	log            *logger.Logger
	wg             sync.WaitGroup
}

func NewCounterProjector(catalog interfaces.CatalogRepository, rollups interfaces.RollupRepository, cfg ProjectorConfig, log *logger.Logger) *CounterProjector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProjectorConfig().Timeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultProjectorConfig().FailureThreshold
	}

	return &CounterProjector{
		catalog:        catalog,
		rollups:        rollups,
		counterBreaker: newProjectionBreaker("counter-projection", cfg, log),
		rollupBreaker:  newProjectionBreaker("rollup-projection", cfg, log),
		timeout:        cfg.Timeout,
		log:            log,
	}
}

// newProjectionBreaker trips after FailureThreshold consecutive store
// failures and probes again after OpenTimeout.
func newProjectionBreaker(name string, cfg ProjectorConfig, log *logger.Logger) *gobreaker.CircuitBreaker[struct{}] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// A missing catalog document is not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, interfaces.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.ProjectionBreakerState.WithLabelValues(name).Set(float64(to))
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("projection circuit breaker state changed")
		},
	}
	return gobreaker.NewCircuitBreaker[struct{}](settings)
}

// Project schedules the side effects of event on a background goroutine.
func (p *CounterProjector) Project(event *models.AnalyticsEvent) {
	snapshot := *event
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		p.Apply(ctx, &snapshot)
	}()
}

// Wait blocks until every scheduled projection has finished.
func (p *CounterProjector) Wait() {
	p.wg.Wait()
}

// Apply runs the projection synchronously.
func (p *CounterProjector) Apply(ctx context.Context, event *models.AnalyticsEvent) {
	start := time.Now()
	defer func() { metrics.ProjectionDuration.Observe(time.Since(start).Seconds()) }()

	if event.EntityID == "" {
		return
	}

	if field, ok := CounterFieldFor(event.EntityType, event.EventType); ok {
		_, err := p.counterBreaker.Execute(func() (struct{}, error) {
			return struct{}{}, p.catalog.IncrementCounter(ctx, event.EntityType, event.EntityID, field)
		})
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			metrics.ProjectionFailures.WithLabelValues("counter").Inc()
			p.log.WithError(err).WithFields(map[string]interface{}{
				"event_id":    event.ID.Hex(),
				"entity_type": event.EntityType,
				"entity_id":   event.EntityID,
				"field":       field,
			}).Warn("counter projection failed")
		}
	}

	delta := models.RollupDeltaFor(event.EventType)
	if delta.IsZero() {
		return
	}
	_, err := p.rollupBreaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.rollups.Increment(ctx, utils.DateKey(event.CreatedAt), event.EntityType, event.EntityID, delta)
	})
	if err != nil {
		metrics.ProjectionFailures.WithLabelValues("rollup").Inc()
		p.log.WithError(err).WithFields(map[string]interface{}{
			"event_id":    event.ID.Hex(),
			"entity_type": event.EntityType,
			"entity_id":   event.EntityID,
		}).Warn("rollup increment failed")
	}
}

// CounterFieldFor maps an event onto the catalog counter it bumps. Page
// events and types without a counter report false.
func CounterFieldFor(entityType models.EntityType, eventType models.EventType) (interfaces.CounterField, bool) {
	switch entityType {
	case models.EntityProduct:
		switch {
		case eventType == models.EventAddToInquiry:
			return interfaces.CounterInquiries, true
		case eventType.IsView():
			return interfaces.CounterTotalViews, true
		case eventType.IsClick():
			return interfaces.CounterClicks, true
		}
	case models.EntityCategory:
		switch {
		case eventType.IsView():
			return interfaces.CounterTotalViews, true
		case eventType.IsClick():
			return interfaces.CounterClicks, true
		}
	case models.EntityBanner, models.EntityTag:
		switch {
		case eventType.IsImpression():
			return interfaces.CounterImpressions, true
		case eventType.IsClick():
			return interfaces.CounterClicks, true
		}
	}
	return "", false
}
