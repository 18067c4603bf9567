package ai

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/pawscope/backend/pkg/model"
)

func testAnalyzer() *OpenAIAnalyzer {
	return &OpenAIAnalyzer{logger: zap.NewNop()}
}

func TestParseAnalysisResponse(t *testing.T) {
	raw := `{"risk_level":"Urgent","summary":"Needs a vet within 24 hours","detailed_sections":[{"title":"Immediate Care","points":["Withhold food for 12h"]}],"immediate_actions":["Call your vet"],"reasoning":"Repeated vomiting with lethargy"}`

	result, err := testAnalyzer().parseAnalysisResponse(raw)
	if err != nil {
		t.Fatalf("parseAnalysisResponse failed: %v", err)
	}
	if result.RiskLevel != model.RiskUrgent {
		t.Errorf("Expected Urgent, got %s", result.RiskLevel)
	}
	if len(result.DetailedSections) != 1 || result.DetailedSections[0].Title != "Immediate Care" {
		t.Errorf("Unexpected sections: %+v", result.DetailedSections)
	}
	if len(result.ImmediateActions) != 1 {
		t.Errorf("Expected 1 immediate action, got %d", len(result.ImmediateActions))
	}
}

func TestParseAnalysisResponseStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"risk_level\":\"Monitor\",\"summary\":\"Watch closely\"}\n```"

	result, err := testAnalyzer().parseAnalysisResponse(fenced)
	if err != nil {
		t.Fatalf("parseAnalysisResponse failed: %v", err)
	}
	if result.RiskLevel != model.RiskMonitor {
		t.Errorf("Expected Monitor, got %s", result.RiskLevel)
	}

	bare := "```\n{\"risk_level\":\"Low Risk\",\"summary\":\"Fine at home\"}\n```"
	result, err = testAnalyzer().parseAnalysisResponse(bare)
	if err != nil {
		t.Fatalf("parseAnalysisResponse failed: %v", err)
	}
	if result.RiskLevel != model.RiskLowRisk {
		t.Errorf("Expected Low Risk, got %s", result.RiskLevel)
	}
}

func TestParseAnalysisResponseInvalidJSON(t *testing.T) {
	if _, err := testAnalyzer().parseAnalysisResponse("the dog seems fine to me"); err == nil {
		t.Error("Expected error for non-JSON response")
	}
}

func TestParseAnalysisResponseInitializesSlices(t *testing.T) {
	result, err := testAnalyzer().parseAnalysisResponse(`{"risk_level":"Monitor","summary":"Watch closely"}`)
	if err != nil {
		t.Fatalf("parseAnalysisResponse failed: %v", err)
	}
	if result.DetailedSections == nil {
		t.Error("DetailedSections should be initialized")
	}
	if result.ImmediateActions == nil {
		t.Error("ImmediateActions should be initialized")
	}
}

func TestNormalizeRiskLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want model.RiskLevel
	}{
		{"Emergency", model.RiskEmergency},
		{"emergency", model.RiskEmergency},
		{" URGENT ", model.RiskUrgent},
		{"Monitor", model.RiskMonitor},
		{"Low Risk", model.RiskLowRisk},
		{"low", model.RiskLowRisk},
		{"low_risk", model.RiskLowRisk},
		{"catastrophic", model.RiskMonitor},
		{"", model.RiskMonitor},
	}

	for _, tt := range tests {
		if got := NormalizeRiskLevel(tt.raw, zap.NewNop()); got != tt.want {
			t.Errorf("NormalizeRiskLevel(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestBuildAnalysisPromptIncludesContext(t *testing.T) {
	req := AnalysisRequest{
		Pet: &model.Pet{
			Name:       "Rex",
			Breed:      "Beagle",
			AgeYears:   4,
			Conditions: []string{"pancreatitis"},
		},
		Category:    model.CategoryHealth,
		Subcategory: model.SubcategoryDigestive,
		Symptoms:    "vomiting repeatedly since this morning, lethargic",
		ImageCount:  2,
		HasVideo:    true,
	}

	prompt := buildAnalysisPrompt(req)
	for _, want := range []string{"Rex", "Beagle", "pancreatitis", "Digestive Issues", "vomiting repeatedly", "2 photo(s)", "video"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "ONLY valid JSON") {
		t.Error("Prompt should demand a JSON-only response")
	}
}

func TestBuildFollowUpPromptIncludesPriorAssessment(t *testing.T) {
	req := AnalysisRequest{
		Category: model.CategoryHealth,
		Symptoms: "vomiting repeatedly since this morning",
	}
	prior := &model.AnalysisResult{
		RiskLevel: model.RiskUrgent,
		Summary:   "Needs a vet within 24 hours",
	}

	prompt := buildFollowUpPrompt(req, prior)
	if !strings.Contains(prompt, "Urgent") {
		t.Error("Prompt missing the assigned risk level")
	}
	if !strings.Contains(prompt, "Needs a vet within 24 hours") {
		t.Error("Prompt missing the prior summary")
	}
}

func TestNewOpenAIAnalyzerRequiresKey(t *testing.T) {
	if _, err := NewOpenAIAnalyzer("", "gpt-4o", zap.NewNop()); err == nil {
		t.Error("Expected error for missing API key")
	}

	analyzer, err := NewOpenAIAnalyzer("test-key", "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewOpenAIAnalyzer failed: %v", err)
	}
	if analyzer.model != "gpt-4o" {
		t.Errorf("Expected default model, got %s", analyzer.model)
	}
}
