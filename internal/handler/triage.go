package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/service"
	"github.com/pawscope/backend/pkg/model"
)

// TriageHandler serves the conversational triage session API
type TriageHandler struct {
	triage *service.TriageService
	logger *zap.Logger
}

// NewTriageHandler creates a new TriageHandler
func NewTriageHandler(triage *service.TriageService, logger *zap.Logger) *TriageHandler {
	return &TriageHandler{
		triage: triage,
		logger: logger,
	}
}

// StartSessionRequest opens or resumes the profile's session slot
type StartSessionRequest struct {
	ProfileID string     `json:"profile_id" binding:"required"`
	UserID    string     `json:"user_id"`
	Pet       *model.Pet `json:"pet"`
}

// SelectRequest carries a category or subcategory choice
type SelectRequest struct {
	Type  string `json:"type" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// SymptomsRequest carries the free-text description and optional location
type SymptomsRequest struct {
	Text      string   `json:"text"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// MediaRequest attaches a photo or video to the session
type MediaRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data" binding:"required"`
}

// RemoveMediaRequest detaches a photo or the video
type RemoveMediaRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Index int    `json:"index"`
}

// FeedbackRequest records the up/down signal with an optional reason code
type FeedbackRequest struct {
	Signal string `json:"signal"`
	Reason string `json:"reason"`
}

// FollowUpRequest asks a question about a completed assessment
type FollowUpRequest struct {
	Question string `json:"question" binding:"required"`
}

// SessionResponse is the full session state returned after every operation
type SessionResponse struct {
	*model.SessionSnapshot
	Notice string `json:"notice,omitempty"`
}

// PostSessionStart creates or resumes a session
func (h *TriageHandler) PostSessionStart(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	session := h.triage.StartSession(req.ProfileID, req.UserID, req.Pet)

	response := SessionResponse{SessionSnapshot: session.Snapshot()}
	if session.Restored() {
		response.Notice = service.RestoredNotice
	}

	h.logger.Info("triage session started",
		zap.String("session_id", session.ID()),
		zap.String("profile_id", req.ProfileID),
		zap.Bool("restored", session.Restored()),
	)

	c.JSON(http.StatusOK, response)
}

// GetSession returns the current session state
func (h *TriageHandler) GetSession(c *gin.Context) {
	session, err := h.triage.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	response := SessionResponse{SessionSnapshot: session.Snapshot()}
	if session.Restored() {
		response.Notice = service.RestoredNotice
	}

	c.JSON(http.StatusOK, response)
}

// PostSelect handles a category or subcategory choice
func (h *TriageHandler) PostSelect(c *gin.Context) {
	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	session, err := h.triage.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch req.Type {
	case "category":
		err = session.SelectCategory(req.Value)
	case "subcategory":
		err = session.SelectSubcategory(req.Value)
	default:
		err = service.NewValidationError("unknown selection type: %s", req.Type)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{SessionSnapshot: session.Snapshot()})
}

// PostSymptoms submits the symptom description and runs the analysis
func (h *TriageHandler) PostSymptoms(c *gin.Context) {
	var req SymptomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	sessionID := c.Param("id")

	var loc *service.Location
	if req.Latitude != nil && req.Longitude != nil {
		loc = &service.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	err := h.triage.SubmitSymptoms(c.Request.Context(), sessionID, req.Text, loc)

	// The gateway error still carries an updated conversation: the session
	// reverted to symptoms with an apologetic message the client must show.
	var gatewayErr *service.GatewayError
	if err != nil && !errors.As(err, &gatewayErr) {
		respondError(c, h.logger, err)
		return
	}

	session, lookupErr := h.triage.GetSession(sessionID)
	if lookupErr != nil {
		respondError(c, h.logger, lookupErr)
		return
	}

	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    "GATEWAY_ERROR",
			"message": "The analysis service is unavailable right now",
			"session": session.Snapshot(),
		})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{SessionSnapshot: session.Snapshot()})
}

// PostMedia attaches a photo or video
func (h *TriageHandler) PostMedia(c *gin.Context) {
	var req MediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	sessionID := c.Param("id")

	var err error
	switch req.Kind {
	case "image":
		err = h.triage.AttachImage(c.Request.Context(), sessionID, req.Filename, req.ContentType, req.Data)
	case "video":
		err = h.triage.AttachVideo(c.Request.Context(), sessionID, req.Filename, req.ContentType, req.Data)
	default:
		err = service.NewValidationError("unknown media kind: %s", req.Kind)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.triage.GetSession(sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{SessionSnapshot: session.Snapshot()})
}

// DeleteMedia detaches a photo by index or the video
func (h *TriageHandler) DeleteMedia(c *gin.Context) {
	var req RemoveMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	session, err := h.triage.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch req.Kind {
	case "image":
		err = session.RemoveImage(req.Index)
	case "video":
		err = session.RemoveVideo()
	default:
		err = service.NewValidationError("unknown media kind: %s", req.Kind)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{SessionSnapshot: session.Snapshot()})
}

// PostFeedback records the feedback signal
func (h *TriageHandler) PostFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	sessionID := c.Param("id")
	if err := h.triage.SubmitFeedback(sessionID, req.Signal, req.Reason); err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.triage.GetSession(sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{SessionSnapshot: session.Snapshot()})
}

// PostFollowUp answers a post-completion question
func (h *TriageHandler) PostFollowUp(c *gin.Context) {
	var req FollowUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}

	sessionID := c.Param("id")
	if err := h.triage.AskFollowUp(c.Request.Context(), sessionID, req.Question); err != nil {
		respondError(c, h.logger, err)
		return
	}

	session, err := h.triage.GetSession(sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, SessionResponse{SessionSnapshot: session.Snapshot()})
}

// PostReset discards the conversation and starts over
func (h *TriageHandler) PostReset(c *gin.Context) {
	session, err := h.triage.ResetSession(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("triage session reset", zap.String("session_id", session.ID()))

	response := SessionResponse{SessionSnapshot: session.Snapshot()}
	if session.UserID() == "" {
		response.Notice = service.AnonymousResetNotice
	}

	c.JSON(http.StatusOK, response)
}
