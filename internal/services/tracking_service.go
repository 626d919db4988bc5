package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/internal/validators"
	"storefront/pkg/logger"
)

type TrackingService interface {
	// TrackEvent records one event. It returns nil, nil when the dedup gate
	// suppressed the event.
	TrackEvent(ctx context.Context, input *models.TrackEventInput) (*models.AnalyticsEvent, error)
	// TrackBatch applies TrackEvent to each input and returns the number accepted.
	TrackBatch(ctx context.Context, inputs []models.TrackEventInput) (int, error)

	// Entity-scoped helpers resolve the entity before recording.
	TrackProductView(ctx context.Context, slug string, actor ActorContext) (*models.AnalyticsEvent, error)
	TrackCategoryView(ctx context.Context, slug string, actor ActorContext) (*models.AnalyticsEvent, error)
	TrackBannerImpression(ctx context.Context, id string, actor ActorContext) (*models.AnalyticsEvent, error)
	TrackBannerClick(ctx context.Context, id string, actor ActorContext) (*models.AnalyticsEvent, error)
	TrackTagClick(ctx context.Context, slug string, actor ActorContext) (*models.AnalyticsEvent, error)
}

// ActorContext is the request-derived part of an entity-scoped event.
type ActorContext struct {
	SessionID string
	UserID    string
	IP        string
	Metadata  models.EventMetadata
}

type trackingService struct {
	events    interfaces.AnalyticsRepository
	catalog   interfaces.CatalogRepository
	gate      *DedupGate
	projector *CounterProjector
	publisher EventPublisher
	batchMax  int
	log       *logger.Logger
}

func NewTrackingService(
	events interfaces.AnalyticsRepository,
	catalog interfaces.CatalogRepository,
	gate *DedupGate,
	projector *CounterProjector,
	publisher EventPublisher,
	batchMax int,
	log *logger.Logger,
) TrackingService {
	return &trackingService{
		events:    events,
		catalog:   catalog,
		gate:      gate,
		projector: projector,
		publisher: publisher,
		batchMax:  batchMax,
		log:       log,
	}
}

func (s *trackingService) TrackEvent(ctx context.Context, input *models.TrackEventInput) (*models.AnalyticsEvent, error) {
	if errs := validators.ValidateTrackEvent(input); len(errs) > 0 {
		label := "invalid"
		if input.EventType.Valid() {
			label = string(input.EventType)
		}
		metrics.EventsTracked.WithLabelValues(label, "rejected").Inc()
		return nil, &EventValidationError{Errors: errs}
	}

	// Page events are keyed by path so the dedup gate and rollups see one
	// entity per page.
	if input.EntityType == models.EntityPage && input.EntityID == "" {
		input.EntityID = utils.CoalesceString(input.EntitySlug, input.Metadata.PagePath)
	}

	if s.gate.ShouldSkip(ctx, input) {
		metrics.EventsTracked.WithLabelValues(string(input.EventType), "skipped").Inc()
		s.log.LogTrackingEvent(string(input.EventType), string(input.EntityType), input.EntityID, false)
		return nil, nil
	}

	event := &models.AnalyticsEvent{
		EventType:  input.EventType,
		EntityType: input.EntityType,
		EntityID:   input.EntityID,
		EntitySlug: input.EntitySlug,
		EntityName: input.EntityName,
		SessionID:  input.SessionID,
		UserID:     input.UserID,
		IP:         input.IP,
		Metadata:   input.Metadata,
	}
	EnrichMetadata(&event.Metadata)

	if err := s.events.CreateEvent(ctx, event); err != nil {
		metrics.EventsTracked.WithLabelValues(string(input.EventType), "failed").Inc()
		return nil, fmt.Errorf("failed to track event: %w", err)
	}

	metrics.EventsTracked.WithLabelValues(string(event.EventType), "accepted").Inc()
	s.log.LogTrackingEvent(string(event.EventType), string(event.EntityType), event.EntityID, true)

	s.projector.Project(event)
	if s.publisher != nil {
		s.publisher.Publish("event", string(event.EntityType), event)
	}

	return event, nil
}

// TrackBatch rejects the whole batch when any payload is invalid. Persistence
// failures of individual events are logged and skipped; the batch fails only
// when no event could be stored.
func (s *trackingService) TrackBatch(ctx context.Context, inputs []models.TrackEventInput) (int, error) {
	if s.batchMax > 0 && len(inputs) > s.batchMax {
		return 0, fmt.Errorf("%w: %d events, max %d", ErrBatchTooLarge, len(inputs), s.batchMax)
	}
	if errs := validators.ValidateTrackBatch(inputs, s.batchMax); len(errs) > 0 {
		return 0, &EventValidationError{Errors: errs}
	}

	accepted, failed := 0, 0
	var lastErr error
	for i := range inputs {
		event, err := s.TrackEvent(ctx, &inputs[i])
		if err != nil {
			failed++
			lastErr = err
			s.log.WithError(err).WithField("index", i).Warn("batch event not recorded")
			continue
		}
		if event != nil {
			accepted++
		}
	}

	if failed > 0 && failed == len(inputs) {
		return 0, lastErr
	}
	return accepted, nil
}

func (s *trackingService) TrackProductView(ctx context.Context, slug string, actor ActorContext) (*models.AnalyticsEvent, error) {
	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "product", slug)
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %s is inactive", ErrEntityNotFound, slug)
	}

	return s.TrackEvent(ctx, actor.input(models.EventProductView, models.EntityRef{
		Type: models.EntityProduct,
		ID:   product.ID.Hex(),
		Slug: product.Slug,
		Name: product.Name,
	}, false))
}

func (s *trackingService) TrackCategoryView(ctx context.Context, slug string, actor ActorContext) (*models.AnalyticsEvent, error) {
	category, err := s.catalog.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "category", slug)
	}
	if !category.IsActive {
		return nil, fmt.Errorf("%w: category %s is inactive", ErrEntityNotFound, slug)
	}

	return s.TrackEvent(ctx, actor.input(models.EventCategoryView, models.EntityRef{
		Type: models.EntityCategory,
		ID:   category.ID.Hex(),
		Slug: category.Slug,
		Name: category.Name,
	}, false))
}

func (s *trackingService) TrackBannerImpression(ctx context.Context, id string, actor ActorContext) (*models.AnalyticsEvent, error) {
	ref, err := s.bannerRef(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.TrackEvent(ctx, actor.input(models.EventBannerImpression, ref, false))
}

// TrackBannerClick always records; clicks are not deduplicated.
func (s *trackingService) TrackBannerClick(ctx context.Context, id string, actor ActorContext) (*models.AnalyticsEvent, error) {
	ref, err := s.bannerRef(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.TrackEvent(ctx, actor.input(models.EventBannerClick, ref, true))
}

func (s *trackingService) TrackTagClick(ctx context.Context, slug string, actor ActorContext) (*models.AnalyticsEvent, error) {
	tag, err := s.catalog.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "tag", slug)
	}

	return s.TrackEvent(ctx, actor.input(models.EventTagClick, models.EntityRef{
		Type: models.EntityTag,
		ID:   tag.ID.Hex(),
		Slug: tag.Slug,
		Name: tag.Name,
	}, true))
}

func (s *trackingService) bannerRef(ctx context.Context, id string) (models.EntityRef, error) {
	banner, err := s.catalog.GetBannerByID(ctx, id)
	if err != nil {
		return models.EntityRef{}, notFound(err, "banner", id)
	}
	if !banner.IsActive {
		return models.EntityRef{}, fmt.Errorf("%w: banner %s is inactive", ErrEntityNotFound, id)
	}
	return models.EntityRef{
		Type: models.EntityBanner,
		ID:   banner.ID.Hex(),
		Name: banner.Title,
	}, nil
}

func (a ActorContext) input(eventType models.EventType, ref models.EntityRef, skipDedup bool) *models.TrackEventInput {
	return &models.TrackEventInput{
		EventType:  eventType,
		EntityType: ref.Type,
		EntityID:   ref.ID,
		EntitySlug: ref.Slug,
		EntityName: ref.Name,
		SessionID:  a.SessionID,
		UserID:     a.UserID,
		IP:         a.IP,
		Metadata:   a.Metadata,
		SkipDedup:  skipDedup,
	}
}

func notFound(err error, what, key string) error {
	if errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrEntityNotFound, what, key)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
