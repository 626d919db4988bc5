package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/utils"
)

// respondServiceError maps service errors onto HTTP responses.
func respondServiceError(c *gin.Context, err error, fallback string) {
	var validationErr *services.EventValidationError
	switch {
	case errors.As(err, &validationErr):
		if missingEventFields(validationErr) {
			utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrMissingEventFields, err)
			return
		}
		utils.ValidationErrorResponse(c, validationErr.Errors.Map())
	case errors.Is(err, services.ErrBatchTooLarge):
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrTooManyEvents, err)
	case errors.Is(err, services.ErrInvalidPeriod):
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrInvalidPeriodParam, err)
	case errors.Is(err, services.ErrInvalidEvent):
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrValidationFailed, err)
	case errors.Is(err, services.ErrEntityNotFound):
		utils.ErrorResponseWithCause(c, http.StatusNotFound, services.ErrEntityNotFound.Error(), err)
	default:
		utils.InternalServerErrorResponse(c, fallback, err)
	}
}

func missingEventFields(err *services.EventValidationError) bool {
	for _, fe := range err.Errors {
		if fe.Tag == "required" && (fe.Field == "eventType" || fe.Field == "entityType") {
			return true
		}
	}
	return false
}

func parsePeriod(c *gin.Context, def models.Period, allowed []models.Period) (models.Period, bool) {
	period, err := services.ParsePeriod(c.Query("period"), def, allowed)
	if err != nil {
		utils.ErrorResponseWithCause(c, http.StatusBadRequest, utils.ErrInvalidPeriodParam, err)
		return "", false
	}
	return period, true
}
