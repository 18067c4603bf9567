package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/audit"
	"github.com/pawscope/backend/internal/service"
	"github.com/pawscope/backend/pkg/model"
)

// CheckHandler serves the server-side symptom-check record API
type CheckHandler struct {
	checks *service.CheckService
	audit  *audit.Logger
	logger *zap.Logger
}

// NewCheckHandler creates a new CheckHandler. The audit logger may be nil.
func NewCheckHandler(checks *service.CheckService, auditLog *audit.Logger, logger *zap.Logger) *CheckHandler {
	return &CheckHandler{
		checks: checks,
		audit:  auditLog,
		logger: logger,
	}
}

// SubmitCheckRequest is a direct symptom-check submission
type SubmitCheckRequest struct {
	UserID      string     `json:"user_id"`
	Pet         *model.Pet `json:"pet"`
	Category    string     `json:"category" binding:"required"`
	Subcategory string     `json:"subcategory"`
	Symptoms    string     `json:"symptoms"`
	ImageRefs   []string   `json:"image_refs"`
	VideoRef    string     `json:"video_ref"`
}

// UpdateMessagesRequest replaces the stored conversation for a check
type UpdateMessagesRequest struct {
	Messages []model.ConversationMessage `json:"messages" binding:"required"`
}

// PostCheck runs the analysis for a direct submission and stores the record
func (h *CheckHandler) PostCheck(c *gin.Context) {
	var req SubmitCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	check, err := h.checks.Submit(c.Request.Context(), service.SubmitCheckRequest{
		UserID:      req.UserID,
		Pet:         req.Pet,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Symptoms:    req.Symptoms,
		ImageRefs:   req.ImageRefs,
		VideoRef:    req.VideoRef,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("symptom check submitted",
		zap.String("check_id", check.ID),
		zap.String("risk_level", string(check.RiskLevel)),
	)

	if h.audit != nil && req.UserID != "" {
		if err := h.audit.LogCreate(c.Request.Context(), req.UserID, audit.ResourceSymptomCheck, check.ID, c.ClientIP(), c.Request.UserAgent()); err != nil {
			h.logger.Warn("failed to write audit log", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, check)
}

// GetCheck returns a stored check
func (h *CheckHandler) GetCheck(c *gin.Context) {
	check, err := h.checks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, check)
}

// PutMessages replaces the stored conversation for a check
func (h *CheckHandler) PutMessages(c *gin.Context) {
	var req UpdateMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	if err := h.checks.UpdateMessages(c.Request.Context(), c.Param("id"), req.Messages); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Messages updated"})
}

// PostCheckFeedback records feedback for a stored check
func (h *CheckHandler) PostCheckFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	checkID := c.Param("id")
	if err := h.checks.SubmitFeedback(c.Request.Context(), checkID, req.Signal, req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if h.audit != nil {
		userID := c.Query("user_id")
		if userID != "" {
			if err := h.audit.LogUpdate(c.Request.Context(), userID, audit.ResourceFeedback, checkID, c.ClientIP(), c.Request.UserAgent()); err != nil {
				h.logger.Warn("failed to write audit log", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback recorded"})
}

// GetPetChecks lists a pet's checks, newest first
func (h *CheckHandler) GetPetChecks(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
	}

	checks, err := h.checks.ListByPet(c.Request.Context(), c.Param("petId"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checks": checks,
		"count":  len(checks),
	})
}
