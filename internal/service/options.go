package service

import (
	"fmt"

	"github.com/pawscope/backend/pkg/model"
)

// Bot copy used by the session state machine. The wording is fixed so the
// transcript stays reproducible across runs.
const (
	greetingText = "Hi! I'm your pet health assistant. What would you like help with today?"

	subcategoryPromptText = "Which area best matches your pet's symptoms?"

	symptomsPromptText = "Describe what you've noticed. You can also attach up to 3 photos or a short video."

	analyzingText = "Thanks! Let me take a look at everything you've shared..."

	gatewayFailureText = "I'm sorry, something went wrong while analyzing the symptoms. Please try sending them again."

	feedbackPromptText = "Was this assessment helpful?"

	feedbackReasonPromptText = "Sorry this wasn't helpful. What went wrong?"

	feedbackThanksText = "Thanks for the feedback! Take care of your furry friend."
)

// RestoredNotice is surfaced to the caller when a prior session was resumed
// from its snapshot.
const RestoredNotice = "Welcome back! I've restored your previous session."

// AnonymousResetNotice is surfaced after a reset when no user is signed in,
// since the discarded conversation was never saved to their history.
const AnonymousResetNotice = "You're not signed in, so this conversation won't be saved to your history."

// categoryIcons maps each category to its display icon
var categoryIcons = map[model.Category]string{
	model.CategoryNutrition: "🍖",
	model.CategoryExercise:  "🏃",
	model.CategoryGrooming:  "✂️",
	model.CategoryHealth:    "🏥",
	model.CategorySeasonal:  "🌦️",
}

// subcategoryIcons maps each Health subcategory to its display icon
var subcategoryIcons = map[model.Subcategory]string{
	model.SubcategoryDigestive:       "🤢",
	model.SubcategorySkinCoat:        "🐾",
	model.SubcategoryRespiratory:     "😮‍💨",
	model.SubcategoryBehavioral:      "🐕",
	model.SubcategoryEyesEars:        "👁️",
	model.SubcategoryDental:          "🦷",
	model.SubcategoryMusculoskeletal: "🦴",
	model.SubcategoryUrinary:         "💧",
	model.SubcategoryEmergency:       "🚨",
}

// CategoryOptions returns the selectable category choices in display order
func CategoryOptions() []model.MessageOption {
	categories := model.Categories()
	options := make([]model.MessageOption, 0, len(categories))
	for _, c := range categories {
		options = append(options, model.MessageOption{
			Label: string(c),
			Value: string(c),
			Icon:  categoryIcons[c],
		})
	}
	return options
}

// SubcategoryOptions returns the selectable Health subcategory choices
func SubcategoryOptions() []model.MessageOption {
	subcategories := model.Subcategories()
	options := make([]model.MessageOption, 0, len(subcategories))
	for _, s := range subcategories {
		options = append(options, model.MessageOption{
			Label: string(s),
			Value: string(s),
			Icon:  subcategoryIcons[s],
		})
	}
	return options
}

// FeedbackReasonOptions returns the selectable negative-feedback reason codes
func FeedbackReasonOptions() []model.MessageOption {
	return []model.MessageOption{
		{Label: "Issue with the app", Value: string(model.ReasonUIIssue)},
		{Label: "My photo wasn't understood", Value: string(model.ReasonPoorImage)},
		{Label: "My video wasn't understood", Value: string(model.ReasonPoorVideo)},
		{Label: "My description wasn't understood", Value: string(model.ReasonPoorContext)},
		{Label: "Factually incorrect", Value: string(model.ReasonFactuallyIncorrect)},
		{Label: "No clear instructions", Value: string(model.ReasonNoInstructions)},
		{Label: "Incomplete answer", Value: string(model.ReasonIncompleteResponse)},
		{Label: "Potentially harmful advice", Value: string(model.ReasonHarmfulContent)},
		{Label: "Something else", Value: string(model.ReasonOther)},
	}
}

// categoryPrompt returns the bot prompt emitted after a non-Health category
// selection, or after a Health subcategory selection.
func categoryPrompt(category model.Category) string {
	return fmt.Sprintf("Got it, a %s concern. %s", category, symptomsPromptText)
}

// subcategoryFollowPrompt returns the bot prompt emitted once a Health
// subcategory is chosen.
func subcategoryFollowPrompt(subcategory model.Subcategory) string {
	return fmt.Sprintf("Understood, %s. %s", subcategory, symptomsPromptText)
}
