package model

import "time"

// Category is the top-level symptom category a check starts from
type Category string

const (
	CategoryNutrition Category = "Nutrition"
	CategoryExercise  Category = "Exercise"
	CategoryGrooming  Category = "Grooming"
	CategoryHealth    Category = "Health"
	CategorySeasonal  Category = "Seasonal"
)

// Subcategory narrows a Health check down to a body system or concern
type Subcategory string

const (
	SubcategoryDigestive       Subcategory = "Digestive Issues"
	SubcategorySkinCoat        Subcategory = "Skin & Coat"
	SubcategoryRespiratory     Subcategory = "Respiratory"
	SubcategoryBehavioral      Subcategory = "Behavioral"
	SubcategoryEyesEars        Subcategory = "Eyes & Ears"
	SubcategoryDental          Subcategory = "Dental"
	SubcategoryMusculoskeletal Subcategory = "Musculoskeletal"
	SubcategoryUrinary         Subcategory = "Urinary"
	SubcategoryEmergency       Subcategory = "Emergency"
)

// Phase is the current step of the triage conversation
type Phase string

const (
	PhaseGreeting    Phase = "greeting"
	PhaseCategory    Phase = "category"
	PhaseSubcategory Phase = "subcategory"
	PhaseSymptoms    Phase = "symptoms"
	PhaseAnalyzing   Phase = "analyzing"
	PhaseComplete    Phase = "complete"
	PhaseFollowUp    Phase = "followup"
)

// RiskLevel is the four-tier severity classification returned by the analysis gateway
type RiskLevel string

const (
	RiskEmergency RiskLevel = "Emergency"
	RiskUrgent    RiskLevel = "Urgent"
	RiskMonitor   RiskLevel = "Monitor"
	RiskLowRisk   RiskLevel = "Low Risk"
)

// MessageAuthor identifies who produced a conversation message
type MessageAuthor string

const (
	AuthorBot  MessageAuthor = "bot"
	AuthorUser MessageAuthor = "user"
)

// MessageOption is a selectable choice rendered with a bot message
type MessageOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  string `json:"icon,omitempty"`
}

// ConversationMessage is a single immutable entry in the session transcript
type ConversationMessage struct {
	ID        string          `json:"id"`
	Author    MessageAuthor   `json:"author"`
	Content   string          `json:"content"`
	Image     string          `json:"image,omitempty"`
	Options   []MessageOption `json:"options,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CollectedInput is the accumulated, as-yet-unsent symptom description
type CollectedInput struct {
	Category    Category    `json:"category,omitempty"`
	Subcategory Subcategory `json:"subcategory,omitempty"`
	Symptoms    string      `json:"symptoms,omitempty"`
	Images      []string    `json:"images"`
	Video       string      `json:"video,omitempty"`
}

// DetailedSection is one titled block of the analysis result
type DetailedSection struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

// AnalysisResult is the structured risk assessment produced by the gateway
type AnalysisResult struct {
	RiskLevel        RiskLevel         `json:"risk_level"`
	Summary          string            `json:"summary"`
	DetailedSections []DetailedSection `json:"detailed_sections"`
	ImmediateActions []string          `json:"immediate_actions"`
	Reasoning        string            `json:"reasoning"`
}

// FeedbackSignal records whether the assessment helped
type FeedbackSignal string

const (
	FeedbackUp   FeedbackSignal = "up"
	FeedbackDown FeedbackSignal = "down"
)

// FeedbackReason is the reason code collected for negative feedback
type FeedbackReason string

const (
	ReasonUIIssue            FeedbackReason = "ui_issue"
	ReasonPoorImage          FeedbackReason = "poor_image"
	ReasonPoorVideo          FeedbackReason = "poor_video"
	ReasonPoorContext        FeedbackReason = "poor_context"
	ReasonFactuallyIncorrect FeedbackReason = "factually_incorrect"
	ReasonNoInstructions     FeedbackReason = "no_instructions"
	ReasonIncompleteResponse FeedbackReason = "incomplete"
	ReasonHarmfulContent     FeedbackReason = "harmful"
	ReasonOther              FeedbackReason = "other"
)

// Pet is the snapshot of the animal a session is about
type Pet struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Breed      string   `json:"breed,omitempty"`
	AgeYears   int      `json:"age_years,omitempty"`
	Gender     string   `json:"gender,omitempty"`
	WeightKG   float64  `json:"weight_kg,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	Allergies  []string `json:"allergies,omitempty"`
}

// SessionSnapshot is the durable mirror of a triage session
type SessionSnapshot struct {
	SessionID  string                `json:"session_id"`
	ProfileID  string                `json:"profile_id"`
	UserID     string                `json:"user_id,omitempty"`
	Pet        *Pet                  `json:"pet,omitempty"`
	Messages   []ConversationMessage `json:"messages"`
	Input      CollectedInput        `json:"input"`
	Phase      Phase                 `json:"phase"`
	Result     *AnalysisResult       `json:"result,omitempty"`
	Feedback   FeedbackSignal        `json:"feedback,omitempty"`
	Reason     FeedbackReason        `json:"reason,omitempty"`
	CheckID    string                `json:"check_id,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	SnapshotAt time.Time             `json:"snapshot_at"`
}

// SymptomCheck is a completed check as stored server-side
type SymptomCheck struct {
	ID               string                `json:"id"`
	UserID           *string               `json:"user_id,omitempty"`
	PetID            *string               `json:"pet_id,omitempty"`
	Category         Category              `json:"category"`
	Subcategory      *Subcategory          `json:"subcategory,omitempty"`
	Symptoms         *string               `json:"symptoms,omitempty"`
	RiskLevel        RiskLevel             `json:"risk_level"`
	Summary          string                `json:"summary"`
	DetailedSections []DetailedSection     `json:"detailed_sections"`
	ImmediateActions []string              `json:"immediate_actions"`
	Reasoning        string                `json:"reasoning"`
	Messages         []ConversationMessage `json:"messages,omitempty"`
	Feedback         *FeedbackSignal       `json:"feedback,omitempty"`
	FeedbackReason   *FeedbackReason       `json:"feedback_reason,omitempty"`
	MediaPaths       []string              `json:"media_paths,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Provider is a veterinary clinic or hospital
type Provider struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Address           string            `json:"address"`
	City              string            `json:"city"`
	Phone             string            `json:"phone"`
	Latitude          float64           `json:"latitude"`
	Longitude         float64           `json:"longitude"`
	Rating            float64           `json:"rating,omitempty"`
	EmergencyServices bool              `json:"emergency_services"`
	Is24Hours         bool              `json:"is_24_hours"`
	Hours             map[string]string `json:"hours,omitempty"`
	DistanceKM        float64           `json:"distance_km,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}

// Categories lists the selectable top-level categories in display order
func Categories() []Category {
	return []Category{
		CategoryNutrition,
		CategoryExercise,
		CategoryGrooming,
		CategoryHealth,
		CategorySeasonal,
	}
}

// Subcategories lists the selectable Health subcategories in display order
func Subcategories() []Subcategory {
	return []Subcategory{
		SubcategoryDigestive,
		SubcategorySkinCoat,
		SubcategoryRespiratory,
		SubcategoryBehavioral,
		SubcategoryEyesEars,
		SubcategoryDental,
		SubcategoryMusculoskeletal,
		SubcategoryUrinary,
		SubcategoryEmergency,
	}
}

// ValidCategory reports whether s is one of the fixed categories
func ValidCategory(s string) bool {
	for _, c := range Categories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ValidSubcategory reports whether s is one of the fixed Health subcategories
func ValidSubcategory(s string) bool {
	for _, c := range Subcategories() {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ValidFeedbackReason reports whether s is a known negative-feedback reason code
func ValidFeedbackReason(s string) bool {
	switch FeedbackReason(s) {
	case ReasonUIIssue, ReasonPoorImage, ReasonPoorVideo, ReasonPoorContext,
		ReasonFactuallyIncorrect, ReasonNoInstructions, ReasonIncompleteResponse,
		ReasonHarmfulContent, ReasonOther:
		return true
	}
	return false
}
