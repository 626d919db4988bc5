package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope every JSON endpoint returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// TrackResponse is returned by the ingestion endpoints.
type TrackResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// debugKey is the gin context key that enables diagnostic details on errors.
const debugKey = "storefront.debug"

// EnableErrorDetails marks the request so error responses carry details.
func EnableErrorDetails(c *gin.Context) {
	c.Set(debugKey, true)
}

func detailsEnabled(c *gin.Context) bool {
	return c.GetBool(debugKey)
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func TrackedResponse(c *gin.Context, eventID string) {
	c.JSON(http.StatusOK, TrackResponse{Success: true, EventID: eventID})
}

func SkippedResponse(c *gin.Context) {
	c.JSON(http.StatusOK, TrackResponse{Success: true, Skipped: true})
}

func BatchResponse(c *gin.Context, accepted int) {
	c.JSON(http.StatusOK, TrackResponse{Success: true, Count: &accepted})
}

func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, APIResponse{Success: false, Error: message})
}

// ErrorResponseWithCause writes message and, in development mode, err as details.
func ErrorResponseWithCause(c *gin.Context, statusCode int, message string, err error) {
	resp := APIResponse{Success: false, Error: message}
	if err != nil && detailsEnabled(c) {
		resp.Details = err.Error()
	}
	c.JSON(statusCode, resp)
}

func ValidationErrorResponse(c *gin.Context, errors map[string]string) {
	c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: ErrValidationFailed, Details: errors})
}

func UnauthorizedResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusUnauthorized, ErrUnauthorized)
}

func ForbiddenResponse(c *gin.Context) {
	ErrorResponse(c, http.StatusForbidden, ErrForbidden)
}

func InternalServerErrorResponse(c *gin.Context, message string, err error) {
	ErrorResponseWithCause(c, http.StatusInternalServerError, message, err)
}
