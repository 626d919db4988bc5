package interfaces

import (
	"context"

	"storefront/internal/models"
)

// CounterField names a counter projection field on a catalog document.
type CounterField string

const (
	CounterTotalViews  CounterField = "totalViews"
	CounterClicks      CounterField = "clicks"
	CounterImpressions CounterField = "impressions"
	CounterInquiries   CounterField = "inquiries"
)

type CatalogRepository interface {
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
	GetBannerByID(ctx context.Context, id string) (*models.Banner, error)
	GetTagBySlug(ctx context.Context, slug string) (*models.Tag, error)

	// IncrementCounter applies an atomic $inc on the entity's counter field.
	// entityID may be a hex ObjectID or a slug.
	IncrementCounter(ctx context.Context, entityType models.EntityType, entityID string, field CounterField) error

	ListCategoriesByProductCount(ctx context.Context, limit int) ([]*models.Category, error)
	ListBanners(ctx context.Context, ids []string) ([]*models.Banner, error)
}
