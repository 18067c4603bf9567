package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/repository"
	"github.com/pawscope/backend/internal/service"
)

// ErrorResponse is the JSON body returned for every failed request
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// respondError maps service errors onto HTTP status codes: validation and
// capacity problems are the caller's to fix (400), unknown sessions and
// records are 404, gateway failures are 502, everything else is 500.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var validationErr *service.ValidationError
	var capacityErr *service.CapacityError
	var gatewayErr *service.GatewayError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: validationErr.Reason,
		})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "CAPACITY_ERROR",
			Message: capacityErr.Reason,
		})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Session not found",
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Record not found",
		})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Code:    "GATEWAY_ERROR",
			Message: "The analysis service is unavailable right now",
			Details: stringPtr(gatewayErr.Error()),
		})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
			Details: stringPtr(err.Error()),
		})
	}
}
