package service

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/snapshot"
	"github.com/pawscope/backend/pkg/model"
)

// Property 1: A symptom report with enough text always reaches the analyzing
// phase, regardless of the chosen category.
func TestProperty_SufficientTextAlwaysAccepted(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Text at or above the minimum length is accepted", prop.ForAll(
		func(text string, category model.Category) bool {
			if len(strings.TrimSpace(text)) < DefaultLimits().MinSymptomLength {
				return true
			}

			s := NewSession("profile-prop", "", nil, snapshot.NewMemoryStore(), DefaultLimits(), zap.NewNop())
			if err := s.SelectCategory(string(category)); err != nil {
				t.Logf("SelectCategory failed: %v", err)
				return false
			}
			if category == model.CategoryHealth {
				if err := s.SelectSubcategory(string(model.SubcategoryBehavioral)); err != nil {
					t.Logf("SelectSubcategory failed: %v", err)
					return false
				}
			}

			if err := s.SubmitSymptoms(text); err != nil {
				t.Logf("SubmitSymptoms rejected %q: %v", text, err)
				return false
			}
			return s.Phase() == model.PhaseAnalyzing
		},
		gen.AlphaString(),
		gen.OneConstOf(
			model.CategoryNutrition,
			model.CategoryExercise,
			model.CategoryGrooming,
			model.CategoryHealth,
			model.CategorySeasonal,
		),
	))

	properties.TestingRun(t)
}

// Property 2: Text below the minimum without media is always rejected and
// leaves the session untouched.
func TestProperty_ShortTextWithoutMediaAlwaysRejected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Short text without media never advances the phase", prop.ForAll(
		func(text string) bool {
			if len(strings.TrimSpace(text)) >= DefaultLimits().MinSymptomLength {
				return true
			}

			s := NewSession("profile-prop", "", nil, snapshot.NewMemoryStore(), DefaultLimits(), zap.NewNop())
			if err := s.SelectCategory(string(model.CategoryNutrition)); err != nil {
				t.Logf("SelectCategory failed: %v", err)
				return false
			}

			before := len(s.Snapshot().Messages)
			err := s.SubmitSymptoms(text)
			if err == nil {
				t.Logf("Short text %q was accepted", text)
				return false
			}
			if _, ok := err.(*ValidationError); !ok {
				t.Logf("Expected ValidationError, got %T", err)
				return false
			}
			return s.Phase() == model.PhaseSymptoms && len(s.Snapshot().Messages) == before
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// Property 3: A persisted session restores with an identical transcript and
// identical collected input for any profile.
func TestProperty_SnapshotRoundTripPreservesConversation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Restore reproduces the persisted conversation", prop.ForAll(
		func(profileID string, category model.Category) bool {
			store := snapshot.NewMemoryStore()
			first := NewSession(profileID, "", nil, store, DefaultLimits(), zap.NewNop())
			if err := first.SelectCategory(string(category)); err != nil {
				t.Logf("SelectCategory failed: %v", err)
				return false
			}
			firstSnap := first.Snapshot()

			second := NewSession(profileID, "", nil, store, DefaultLimits(), zap.NewNop())
			if !second.Restored() {
				t.Log("Second session was not restored")
				return false
			}
			secondSnap := second.Snapshot()

			if secondSnap.SessionID != firstSnap.SessionID {
				return false
			}
			if secondSnap.Input.Category != firstSnap.Input.Category {
				return false
			}
			if len(secondSnap.Messages) != len(firstSnap.Messages) {
				return false
			}
			for i := range firstSnap.Messages {
				if secondSnap.Messages[i].ID != firstSnap.Messages[i].ID ||
					secondSnap.Messages[i].Author != firstSnap.Messages[i].Author ||
					secondSnap.Messages[i].Content != firstSnap.Messages[i].Content {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.OneConstOf(
			model.CategoryNutrition,
			model.CategoryExercise,
			model.CategoryGrooming,
			model.CategoryHealth,
			model.CategorySeasonal,
		),
	))

	properties.TestingRun(t)
}

// Property 4: Every defined reason code completes the negative-feedback flow;
// anything else is rejected without recording a reason.
func TestProperty_FeedbackReasonCodes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	completedSession := func() *Session {
		s := NewSession("profile-prop", "", nil, snapshot.NewMemoryStore(), DefaultLimits(), zap.NewNop())
		_ = s.SelectCategory(string(model.CategoryNutrition))
		_ = s.SubmitSymptoms("refusing every meal for two days now")
		_, _ = s.ReceiveAnalysis(&model.AnalysisResult{RiskLevel: model.RiskMonitor})
		return s
	}

	properties.Property("Valid reason codes are recorded after a down signal", prop.ForAll(
		func(reason model.FeedbackReason) bool {
			s := completedSession()
			if err := s.SubmitFeedback("down", ""); err != nil {
				t.Logf("Down signal failed: %v", err)
				return false
			}
			if err := s.SubmitFeedback("", string(reason)); err != nil {
				t.Logf("Reason %s rejected: %v", reason, err)
				return false
			}
			return s.Snapshot().Reason == reason
		},
		gen.OneConstOf(
			model.ReasonUIIssue,
			model.ReasonPoorImage,
			model.ReasonPoorVideo,
			model.ReasonPoorContext,
			model.ReasonFactuallyIncorrect,
			model.ReasonNoInstructions,
			model.ReasonIncompleteResponse,
			model.ReasonHarmfulContent,
			model.ReasonOther,
		),
	))

	properties.Property("Unknown reason codes are rejected", prop.ForAll(
		func(code string) bool {
			if model.ValidFeedbackReason(code) {
				return true
			}
			s := completedSession()
			if err := s.SubmitFeedback("down", ""); err != nil {
				return false
			}
			if err := s.SubmitFeedback("", code); err == nil {
				t.Logf("Unknown reason %q was accepted", code)
				return false
			}
			return s.Snapshot().Reason == ""
		},
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

// Property 5: The synthesized assessment always ends with the disclaimer and
// contains every section title and point.
func TestProperty_AssessmentMessageIsComplete(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("All sections and points survive formatting", prop.ForAll(
		func(titles []string, point string) bool {
			if point == "" {
				return true
			}

			result := &model.AnalysisResult{RiskLevel: model.RiskMonitor}
			for _, title := range titles {
				if title == "" {
					continue
				}
				result.DetailedSections = append(result.DetailedSections, model.DetailedSection{
					Title:  title,
					Points: []string{point},
				})
			}

			text := FormatAnalysis(result)
			if !strings.HasSuffix(text, Disclaimer) {
				return false
			}
			for _, section := range result.DetailedSections {
				if !strings.Contains(text, section.Title) {
					return false
				}
			}
			if len(result.DetailedSections) > 0 && !strings.Contains(text, point) {
				return false
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
