package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/pawscope/backend/pkg/model"
)

// AnalysisRequest carries everything the gateway needs to assess a case
type AnalysisRequest struct {
	Pet         *model.Pet
	Category    model.Category
	Subcategory model.Subcategory
	Symptoms    string
	ImageCount  int
	HasVideo    bool
}

// Analyzer produces a structured risk assessment for a symptom report
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*model.AnalysisResult, error)
	FollowUp(ctx context.Context, req AnalysisRequest, prior *model.AnalysisResult, question string) (string, error)
}

// OpenAIAnalyzer implements Analyzer against the OpenAI chat completions API
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIAnalyzer creates an analyzer backed by the OpenAI API
func NewOpenAIAnalyzer(apiKey, chatModel string, logger *zap.Logger) (*OpenAIAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	if chatModel == "" {
		chatModel = "gpt-4o"
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &OpenAIAnalyzer{
		client: &client,
		model:  chatModel,
		logger: logger,
	}, nil
}

// Analyze sends a single completion request. Callers decide how a failure is
// surfaced to the session; there is no retry at this layer.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (*model.AnalysisResult, error) {
	startTime := time.Now()

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildAnalysisPrompt(req)),
		openai.UserMessage("Assess the case above and return the JSON result."),
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, fmt.Errorf("empty content in response")
	}

	a.logger.Info("analysis request completed",
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	result, err := a.parseAnalysisResponse(content)
	if err != nil {
		a.logger.Error("failed to parse analysis response",
			zap.Error(err),
			zap.String("response", content),
		)
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	return result, nil
}

// FollowUp answers a question about a completed assessment
func (a *OpenAIAnalyzer) FollowUp(ctx context.Context, req AnalysisRequest, prior *model.AnalysisResult, question string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildFollowUpPrompt(req, prior)),
		openai.UserMessage(question),
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty follow-up response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildAnalysisPrompt creates the system prompt for a triage assessment
func buildAnalysisPrompt(req AnalysisRequest) string {
	var sb strings.Builder

	sb.WriteString("You are a veterinary triage assistant. Assess the reported symptoms and classify the risk.\n\n")

	if req.Pet != nil {
		sb.WriteString("Pet profile:\n")
		sb.WriteString(fmt.Sprintf("- Name: %s\n", req.Pet.Name))
		if req.Pet.Breed != "" {
			sb.WriteString(fmt.Sprintf("- Breed: %s\n", req.Pet.Breed))
		}
		if req.Pet.AgeYears > 0 {
			sb.WriteString(fmt.Sprintf("- Age: %d years\n", req.Pet.AgeYears))
		}
		if req.Pet.WeightKG > 0 {
			sb.WriteString(fmt.Sprintf("- Weight: %.1f kg\n", req.Pet.WeightKG))
		}
		if len(req.Pet.Conditions) > 0 {
			sb.WriteString(fmt.Sprintf("- Known conditions: %s\n", strings.Join(req.Pet.Conditions, ", ")))
		}
		if len(req.Pet.Allergies) > 0 {
			sb.WriteString(fmt.Sprintf("- Allergies: %s\n", strings.Join(req.Pet.Allergies, ", ")))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Category: %s\n", req.Category))
	if req.Subcategory != "" {
		sb.WriteString(fmt.Sprintf("Subcategory: %s\n", req.Subcategory))
	}
	if req.Symptoms != "" {
		sb.WriteString(fmt.Sprintf("Reported symptoms: %s\n", req.Symptoms))
	}
	if req.ImageCount > 0 {
		sb.WriteString(fmt.Sprintf("The owner attached %d photo(s) of the issue.\n", req.ImageCount))
	}
	if req.HasVideo {
		sb.WriteString("The owner attached a video of the issue.\n")
	}

	sb.WriteString(`
Return the assessment as valid JSON:
{
  "risk_level": "Emergency/Urgent/Monitor/Low Risk",
  "summary": "one or two sentence summary of the assessment",
  "detailed_sections": [
    {"title": "section title", "points": ["point", "point"]}
  ],
  "immediate_actions": ["action the owner should take now"],
  "reasoning": "brief clinical reasoning behind the classification"
}

Rules:
- Emergency means life-threatening, needs a vet immediately
- Urgent means a vet visit within 24 hours
- Monitor means watch closely and escalate if it worsens
- Low Risk means manageable at home
- Return ONLY valid JSON, no additional text

Return the JSON now:`)

	return sb.String()
}

// buildFollowUpPrompt creates the system prompt for follow-up questions
func buildFollowUpPrompt(req AnalysisRequest, prior *model.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString("You are a veterinary triage assistant answering a follow-up question about a completed assessment.\n\n")
	sb.WriteString(fmt.Sprintf("Category: %s\n", req.Category))
	if req.Subcategory != "" {
		sb.WriteString(fmt.Sprintf("Subcategory: %s\n", req.Subcategory))
	}
	if req.Symptoms != "" {
		sb.WriteString(fmt.Sprintf("Reported symptoms: %s\n", req.Symptoms))
	}
	if prior != nil {
		sb.WriteString(fmt.Sprintf("Risk level assigned: %s\n", prior.RiskLevel))
		sb.WriteString(fmt.Sprintf("Assessment summary: %s\n", prior.Summary))
	}
	sb.WriteString("\nAnswer the owner's question concisely. Recommend a veterinarian when the question goes beyond general guidance.")

	return sb.String()
}

// parseAnalysisResponse parses the model output into an AnalysisResult
func (a *OpenAIAnalyzer) parseAnalysisResponse(response string) (*model.AnalysisResult, error) {
	// Clean up response - sometimes the model adds markdown code blocks
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	result = a.normalizeResult(result)

	return &result, nil
}

// normalizeResult validates and normalizes the parsed assessment
func (a *OpenAIAnalyzer) normalizeResult(result model.AnalysisResult) model.AnalysisResult {
	result.RiskLevel = NormalizeRiskLevel(string(result.RiskLevel), a.logger)

	if result.DetailedSections == nil {
		result.DetailedSections = []model.DetailedSection{}
	}
	if result.ImmediateActions == nil {
		result.ImmediateActions = []string{}
	}

	return result
}

// NormalizeRiskLevel maps free-form model output onto the fixed risk tiers.
// Unknown values default to Monitor.
func NormalizeRiskLevel(raw string, logger *zap.Logger) model.RiskLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "emergency":
		return model.RiskEmergency
	case "urgent":
		return model.RiskUrgent
	case "monitor":
		return model.RiskMonitor
	case "low risk", "low", "low_risk":
		return model.RiskLowRisk
	}

	if logger != nil {
		logger.Warn("invalid risk level, defaulting to Monitor", zap.String("risk_level", raw))
	}
	return model.RiskMonitor
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
