package handlers

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService services.AnalyticsService
	defaultLimit     int
	maxLimit         int
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService, defaultLimit, maxLimit int) *AnalyticsHandler {
	if defaultLimit <= 0 {
		defaultLimit = utils.DefaultTopLimit
	}
	if maxLimit <= 0 {
		maxLimit = utils.MaxTopLimit
	}
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		defaultLimit:     defaultLimit,
		maxLimit:         maxLimit,
	}
}

// GetDashboard serves GET /admin/analytics/dashboard?period=7d|30d|90d|all.
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	period, ok := parsePeriod(c, models.Period7Days, models.DashboardPeriods)
	if !ok {
		return
	}

	dashboard, err := h.analyticsService.GetDashboard(c.Request.Context(), period)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, dashboard)
}

func (h *AnalyticsHandler) GetOverview(c *gin.Context) {
	period, ok := parsePeriod(c, models.Period7Days, models.DashboardPeriods)
	if !ok {
		return
	}

	overview, err := h.analyticsService.GetOverview(c.Request.Context(), period)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, overview)
}

func (h *AnalyticsHandler) GetTopProducts(c *gin.Context) {
	period, ok := parsePeriod(c, models.Period7Days, models.DashboardPeriods)
	if !ok {
		return
	}
	limit := utils.ParseLimit(c.Query("limit"), h.defaultLimit, h.maxLimit)

	products, err := h.analyticsService.GetTopProducts(c.Request.Context(), period, limit)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, products)
}

func (h *AnalyticsHandler) GetTopCategories(c *gin.Context) {
	period, ok := parsePeriod(c, models.Period7Days, models.DashboardPeriods)
	if !ok {
		return
	}
	limit := utils.ParseLimit(c.Query("limit"), h.defaultLimit, h.maxLimit)

	categories, err := h.analyticsService.GetTopCategories(c.Request.Context(), period, limit)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, categories)
}

func (h *AnalyticsHandler) GetBannerStats(c *gin.Context) {
	period, ok := parsePeriod(c, models.Period7Days, models.DashboardPeriods)
	if !ok {
		return
	}

	stats, err := h.analyticsService.GetBannerStats(c.Request.Context(), period)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, stats)
}

// GetTrends serves GET /admin/analytics/trends?period=day|week|month.
func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	period, ok := parsePeriod(c, models.PeriodWeek, models.TrendPeriods)
	if !ok {
		return
	}

	trends, err := h.analyticsService.GetDailyTrends(c.Request.Context(), period)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, trends)
}

// GetRollups returns DailyAnalytics rows, optionally filtered by ?entityType=.
func (h *AnalyticsHandler) GetRollups(c *gin.Context) {
	period, ok := parsePeriod(c, models.Period7Days, models.DashboardPeriods)
	if !ok {
		return
	}
	entityType := models.EntityType(c.Query("entityType"))

	rows, err := h.analyticsService.GetRollups(c.Request.Context(), period, entityType)
	if err != nil {
		respondServiceError(c, err, utils.ErrAnalyticsQuery)
		return
	}
	utils.SuccessResponse(c, rows)
}

// InvalidateDashboard drops every cached dashboard.
func (h *AnalyticsHandler) InvalidateDashboard(c *gin.Context) {
	if err := h.analyticsService.InvalidateDashboard(c.Request.Context()); err != nil {
		utils.InternalServerErrorResponse(c, utils.ErrInternalServer, err)
		return
	}
	utils.SuccessResponse(c, nil)
}
