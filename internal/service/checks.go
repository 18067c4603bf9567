package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/ai"
	"github.com/pawscope/backend/internal/metrics"
	"github.com/pawscope/backend/pkg/model"
)

// CheckStore is the full persistence surface for symptom-check records
type CheckStore interface {
	CheckRecorder
	Get(ctx context.Context, checkID string) (*model.SymptomCheck, error)
	ListByPet(ctx context.Context, petID string, limit int) ([]*model.SymptomCheck, error)
}

// SubmitCheckRequest is a direct symptom-check submission outside the
// conversational session
type SubmitCheckRequest struct {
	UserID      string
	Pet         *model.Pet
	Category    string
	Subcategory string
	Symptoms    string
	ImageRefs   []string
	VideoRef    string
}

// CheckService handles server-side symptom-check records
type CheckService struct {
	store    CheckStore
	analyzer ai.Analyzer
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewCheckService creates a new CheckService
func NewCheckService(store CheckStore, analyzer ai.Analyzer, m *metrics.Metrics, logger *zap.Logger) *CheckService {
	return &CheckService{
		store:    store,
		analyzer: analyzer,
		metrics:  m,
		logger:   logger,
	}
}

// Submit runs the analysis for a direct submission and stores the record.
// The returned check carries the ID callers need for the sibling message and
// feedback updates.
func (s *CheckService) Submit(ctx context.Context, req SubmitCheckRequest) (*model.SymptomCheck, error) {
	if !model.ValidCategory(req.Category) {
		return nil, NewValidationError("unknown category: %s", req.Category)
	}
	if req.Category == string(model.CategoryHealth) && !model.ValidSubcategory(req.Subcategory) {
		return nil, NewValidationError("a Health check requires a valid subcategory")
	}
	if len(req.Symptoms) < 10 && len(req.ImageRefs) == 0 && req.VideoRef == "" {
		return nil, NewValidationError("describe the symptoms in at least 10 characters, or attach media")
	}

	analysisReq := ai.AnalysisRequest{
		Pet:         req.Pet,
		Category:    model.Category(req.Category),
		Subcategory: model.Subcategory(req.Subcategory),
		Symptoms:    req.Symptoms,
		ImageCount:  len(req.ImageRefs),
		HasVideo:    req.VideoRef != "",
	}

	startTime := time.Now()
	result, err := s.analyzer.Analyze(ctx, analysisReq)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordAnalysis("unknown", "error", time.Since(startTime))
		}
		return nil, &GatewayError{Err: err}
	}
	if s.metrics != nil {
		s.metrics.RecordAnalysis(string(result.RiskLevel), "ok", time.Since(startTime))
	}

	check := &model.SymptomCheck{
		ID:               uuid.New().String(),
		Category:         model.Category(req.Category),
		RiskLevel:        result.RiskLevel,
		Summary:          result.Summary,
		DetailedSections: result.DetailedSections,
		ImmediateActions: result.ImmediateActions,
		Reasoning:        result.Reasoning,
		MediaPaths:       append(append([]string{}, req.ImageRefs...), videoPaths(req.VideoRef)...),
	}
	if req.UserID != "" {
		userID := req.UserID
		check.UserID = &userID
	}
	if req.Pet != nil && req.Pet.ID != "" {
		petID := req.Pet.ID
		check.PetID = &petID
	}
	if req.Subcategory != "" {
		sub := model.Subcategory(req.Subcategory)
		check.Subcategory = &sub
	}
	if req.Symptoms != "" {
		symptoms := req.Symptoms
		check.Symptoms = &symptoms
	}

	if err := s.store.Create(ctx, check); err != nil {
		return nil, fmt.Errorf("failed to store symptom check: %w", err)
	}

	s.logger.Info("symptom check stored",
		zap.String("check_id", check.ID),
		zap.String("risk_level", string(check.RiskLevel)),
	)

	return check, nil
}

// UpdateMessages replaces the stored conversation for a check
func (s *CheckService) UpdateMessages(ctx context.Context, checkID string, msgs []model.ConversationMessage) error {
	return s.store.UpdateMessages(ctx, checkID, msgs)
}

// SubmitFeedback records feedback for a stored check
func (s *CheckService) SubmitFeedback(ctx context.Context, checkID, signal, reasonCode string) error {
	fs := model.FeedbackSignal(signal)
	if fs != model.FeedbackUp && fs != model.FeedbackDown {
		return NewValidationError("unknown feedback signal: %s", signal)
	}

	var reason *model.FeedbackReason
	if reasonCode != "" {
		if !model.ValidFeedbackReason(reasonCode) {
			return NewValidationError("unknown feedback reason: %s", reasonCode)
		}
		r := model.FeedbackReason(reasonCode)
		reason = &r
	}

	if s.metrics != nil {
		s.metrics.FeedbackTotal.WithLabelValues(signal).Inc()
	}

	return s.store.UpdateFeedback(ctx, checkID, fs, reason)
}

// Get returns a stored check by ID
func (s *CheckService) Get(ctx context.Context, checkID string) (*model.SymptomCheck, error) {
	return s.store.Get(ctx, checkID)
}

// ListByPet returns a pet's checks, newest first
func (s *CheckService) ListByPet(ctx context.Context, petID string, limit int) ([]*model.SymptomCheck, error) {
	return s.store.ListByPet(ctx, petID, limit)
}
