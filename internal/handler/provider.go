package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/service"
)

// ProviderHandler serves the veterinary provider lookup API
type ProviderHandler struct {
	providers *service.ProviderService
	logger    *zap.Logger
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(providers *service.ProviderService, logger *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		providers: providers,
		logger:    logger,
	}
}

// GetNearby returns providers near a point, closest first
func (h *ProviderHandler) GetNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "lat is required and must be a number",
		})
		return
	}

	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "lng is required and must be a number",
		})
		return
	}

	radius := 0.0
	if raw := c.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "radius must be a non-negative number",
			})
			return
		}
	}

	emergencyOnly := c.Query("emergency") == "true"

	providers, err := h.providers.Nearby(c.Request.Context(), lat, lng, radius, emergencyOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("provider lookup",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.Bool("emergency_only", emergencyOnly),
		zap.Int("count", len(providers)),
	)

	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"count":     len(providers),
	})
}
