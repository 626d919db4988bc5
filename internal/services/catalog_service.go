package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
)

// MaxCategoryDepth bounds the ancestry walk, the starting category included.
const MaxCategoryDepth = 5

type CatalogService interface {
	Breadcrumbs(ctx context.Context, slug string) ([]models.Breadcrumb, error)
}

type catalogService struct {
	catalog interfaces.CatalogRepository
}

func NewCatalogService(catalog interfaces.CatalogRepository) CatalogService {
	return &catalogService{catalog: catalog}
}

// Breadcrumbs returns the category's ancestry, root first. The walk stops at
// MaxCategoryDepth, a missing parent, or a cycle.
func (s *catalogService) Breadcrumbs(ctx context.Context, slug string) ([]models.Breadcrumb, error) {
	category, err := s.catalog.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "category", slug)
	}

	path := make([]models.Breadcrumb, 0, MaxCategoryDepth)
	seen := make(map[string]bool, MaxCategoryDepth)

	for current := category; current != nil && len(path) < MaxCategoryDepth; {
		id := current.ID.Hex()
		if seen[id] {
			break
		}
		seen[id] = true
		path = append(path, models.Breadcrumb{ID: id, Name: current.Name, Slug: current.Slug})

		if current.ParentID == nil || current.ParentID.IsZero() {
			break
		}
		parent, err := s.catalog.GetCategoryByID(ctx, current.ParentID.Hex())
		if err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				break
			}
			return nil, fmt.Errorf("failed to load parent category: %w", err)
		}
		current = parent
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}
