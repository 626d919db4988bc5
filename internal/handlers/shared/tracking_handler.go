package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/utils"
)

type TrackingHandler struct {
	trackingService services.TrackingService
}

func NewTrackingHandler(trackingService services.TrackingService) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
	}
}

type trackBatchRequest struct {
	Events []models.TrackEventInput `json:"events"`
}

// actorRequest is the optional body of the entity-scoped endpoints.
type actorRequest struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// Track records a single event.
func (h *TrackingHandler) Track(c *gin.Context) {
	var input models.TrackEventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrInvalidRequestBody, err)
		return
	}
	applyRequestContext(c, &input)

	event, err := h.trackingService.TrackEvent(c.Request.Context(), &input)
	if err != nil {
		respondServiceError(c, err, utils.ErrEventPersistFailure)
		return
	}
	respondTracked(c, event)
}

// TrackBatch records {events: [...]} and reports how many were accepted.
func (h *TrackingHandler) TrackBatch(c *gin.Context) {
	var request trackBatchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrInvalidRequestBody, err)
		return
	}
	for i := range request.Events {
		applyRequestContext(c, &request.Events[i])
	}

	accepted, err := h.trackingService.TrackBatch(c.Request.Context(), request.Events)
	if err != nil {
		respondServiceError(c, err, utils.ErrEventPersistFailure)
		return
	}
	utils.BatchResponse(c, accepted)
}

func (h *TrackingHandler) TrackProductView(c *gin.Context) {
	h.trackEntity(c, c.Param("slug"), h.trackingService.TrackProductView)
}

func (h *TrackingHandler) TrackCategoryView(c *gin.Context) {
	h.trackEntity(c, c.Param("slug"), h.trackingService.TrackCategoryView)
}

func (h *TrackingHandler) TrackBannerImpression(c *gin.Context) {
	h.trackEntity(c, c.Param("id"), h.trackingService.TrackBannerImpression)
}

func (h *TrackingHandler) TrackBannerClick(c *gin.Context) {
	h.trackEntity(c, c.Param("id"), h.trackingService.TrackBannerClick)
}

func (h *TrackingHandler) TrackTagClick(c *gin.Context) {
	h.trackEntity(c, c.Param("slug"), h.trackingService.TrackTagClick)
}

type entityTracker func(ctx context.Context, key string, actor services.ActorContext) (*models.AnalyticsEvent, error)

func (h *TrackingHandler) trackEntity(c *gin.Context, key string, track entityTracker) {
	var request actorRequest
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrInvalidRequestBody, err)
		return
	}

	actor := services.ActorContext{
		SessionID: request.SessionID,
		UserID:    request.UserID,
		IP:        utils.ClientIP(c),
		Metadata:  requestMetadata(c, models.EventMetadata{}),
	}

	event, err := track(c.Request.Context(), key, actor)
	if err != nil {
		respondServiceError(c, err, utils.ErrEventPersistFailure)
		return
	}
	respondTracked(c, event)
}

func respondTracked(c *gin.Context, event *models.AnalyticsEvent) {
	if event == nil {
		utils.SkippedResponse(c)
		return
	}
	utils.TrackedResponse(c, event.ID.Hex())
}

// applyRequestContext fills transport-derived fields the client cannot set.
func applyRequestContext(c *gin.Context, input *models.TrackEventInput) {
	input.IP = utils.ClientIP(c)
	input.Metadata = requestMetadata(c, input.Metadata)
}

func requestMetadata(c *gin.Context, meta models.EventMetadata) models.EventMetadata {
	meta.UserAgent = utils.CoalesceString(meta.UserAgent, c.Request.UserAgent())
	meta.Referrer = utils.CoalesceString(meta.Referrer, c.Request.Referer())
	return meta
}
