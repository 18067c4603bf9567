package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/pawscope/backend/pkg/model"
)

// MockCheckStore is a mock implementation of CheckStore
type MockCheckStore struct {
	mock.Mock
}

func (m *MockCheckStore) Create(ctx context.Context, check *model.SymptomCheck) error {
	args := m.Called(ctx, check)
	return args.Error(0)
}

func (m *MockCheckStore) UpdateMessages(ctx context.Context, checkID string, msgs []model.ConversationMessage) error {
	args := m.Called(ctx, checkID, msgs)
	return args.Error(0)
}

func (m *MockCheckStore) UpdateFeedback(ctx context.Context, checkID string, signal model.FeedbackSignal, reason *model.FeedbackReason) error {
	args := m.Called(ctx, checkID, signal, reason)
	return args.Error(0)
}

func (m *MockCheckStore) Get(ctx context.Context, checkID string) (*model.SymptomCheck, error) {
	args := m.Called(ctx, checkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SymptomCheck), args.Error(1)
}

func (m *MockCheckStore) ListByPet(ctx context.Context, petID string, limit int) ([]*model.SymptomCheck, error) {
	args := m.Called(ctx, petID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SymptomCheck), args.Error(1)
}

func TestCheckSubmitValidation(t *testing.T) {
	svc := NewCheckService(new(MockCheckStore), new(MockAnalyzer), nil, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		req  SubmitCheckRequest
	}{
		{
			name: "unknown category",
			req:  SubmitCheckRequest{Category: "Astrology", Symptoms: "vomiting repeatedly since this morning"},
		},
		{
			name: "health without subcategory",
			req:  SubmitCheckRequest{Category: "Health", Symptoms: "vomiting repeatedly since this morning"},
		},
		{
			name: "health with unknown subcategory",
			req:  SubmitCheckRequest{Category: "Health", Subcategory: "Paranormal", Symptoms: "vomiting repeatedly since this morning"},
		},
		{
			name: "short text without media",
			req:  SubmitCheckRequest{Category: "Nutrition", Symptoms: "short"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tt.req)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if _, ok := err.(*ValidationError); !ok {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestCheckSubmitShortTextWithMediaAccepted(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&model.AnalysisResult{RiskLevel: model.RiskMonitor}, nil)

	store := new(MockCheckStore)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)

	svc := NewCheckService(store, analyzer, nil, zap.NewNop())

	check, err := svc.Submit(context.Background(), SubmitCheckRequest{
		Category:  "Grooming",
		ImageRefs: []string{"images/rash.jpg"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if check.ID == "" {
		t.Error("Expected a check ID")
	}
	if len(check.MediaPaths) != 1 {
		t.Errorf("Expected 1 media path, got %d", len(check.MediaPaths))
	}

	store.AssertExpectations(t)
}

func TestCheckSubmitStoresAnalysis(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&model.AnalysisResult{
		RiskLevel: model.RiskUrgent,
		Summary:   "Needs a vet within 24 hours",
	}, nil)

	store := new(MockCheckStore)
	store.On("Create", mock.Anything, mock.MatchedBy(func(check *model.SymptomCheck) bool {
		return check.RiskLevel == model.RiskUrgent &&
			check.Category == model.CategoryHealth &&
			check.Subcategory != nil && *check.Subcategory == model.SubcategoryDigestive
	})).Return(nil)

	svc := NewCheckService(store, analyzer, nil, zap.NewNop())

	check, err := svc.Submit(context.Background(), SubmitCheckRequest{
		UserID:      "user-42",
		Pet:         &model.Pet{ID: "pet-7", Name: "Rex"},
		Category:    "Health",
		Subcategory: "Digestive Issues",
		Symptoms:    "vomiting repeatedly since this morning, lethargic",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if check.UserID == nil || *check.UserID != "user-42" {
		t.Error("Expected the user ID on the record")
	}
	if check.PetID == nil || *check.PetID != "pet-7" {
		t.Error("Expected the pet ID on the record")
	}

	store.AssertExpectations(t)
	analyzer.AssertExpectations(t)
}

func TestCheckSubmitGatewayFailure(t *testing.T) {
	analyzer := new(MockAnalyzer)
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(nil, errors.New("upstream timeout"))

	store := new(MockCheckStore)
	svc := NewCheckService(store, analyzer, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), SubmitCheckRequest{
		Category: "Nutrition",
		Symptoms: "refusing every meal for two days now",
	})
	if err == nil {
		t.Fatal("Expected error from failed analysis")
	}
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("Expected GatewayError, got %T", err)
	}

	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckSubmitFeedbackValidation(t *testing.T) {
	store := new(MockCheckStore)
	store.On("UpdateFeedback", mock.Anything, "check-1", model.FeedbackDown, mock.Anything).Return(nil)

	svc := NewCheckService(store, new(MockAnalyzer), nil, zap.NewNop())
	ctx := context.Background()

	if err := svc.SubmitFeedback(ctx, "check-1", "sideways", ""); err == nil {
		t.Error("Expected error for unknown signal")
	}
	if err := svc.SubmitFeedback(ctx, "check-1", "down", "not_a_reason"); err == nil {
		t.Error("Expected error for unknown reason code")
	}
	if err := svc.SubmitFeedback(ctx, "check-1", "down", string(model.ReasonIncompleteResponse)); err != nil {
		t.Errorf("Valid feedback failed: %v", err)
	}

	store.AssertExpectations(t)
}
