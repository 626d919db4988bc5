package handlers

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/services"
	"storefront/internal/utils"
)

type CatalogHandler struct {
	catalogService services.CatalogService
}

func NewCatalogHandler(catalogService services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// GetBreadcrumbs returns the category ancestry, root first.
func (h *CatalogHandler) GetBreadcrumbs(c *gin.Context) {
	crumbs, err := h.catalogService.Breadcrumbs(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondServiceError(c, err, utils.ErrInternalServer)
		return
	}
	utils.SuccessResponse(c, crumbs)
}
