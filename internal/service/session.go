package service

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/snapshot"
	"github.com/pawscope/backend/pkg/model"
)

// Limits bounds the input a session accepts before analysis
type Limits struct {
	MaxImages        int
	MaxImageBytes    int64
	MaxVideoBytes    int64
	MinSymptomLength int
}

// DefaultLimits returns the standard attachment and text bounds
func DefaultLimits() Limits {
	return Limits{
		MaxImages:        3,
		MaxImageBytes:    10 * 1024 * 1024,
		MaxVideoBytes:    50 * 1024 * 1024,
		MinSymptomLength: 10,
	}
}

// Session owns the triage conversation for one profile: the transcript, the
// collected input, the current phase and the analysis result. Every mutation
// happens under the session lock and is mirrored to the snapshot store before
// the lock is released. The phase itself guards against double submission
// while an analysis is in flight.
type Session struct {
	mu sync.Mutex

	id             string
	profileID      string
	userID         string
	pet            *model.Pet
	messages       []model.ConversationMessage
	input          model.CollectedInput
	phase          model.Phase
	result         *model.AnalysisResult
	feedback       model.FeedbackSignal
	feedbackReason model.FeedbackReason
	awaitingReason bool
	restored       bool
	checkID        string
	createdAt      time.Time
	updatedAt      time.Time

	store  snapshot.Store
	limits Limits
	logger *zap.Logger
	now    func() time.Time
}

// SnapshotKey returns the single snapshot slot for a profile
func SnapshotKey(profileID string) string {
	return "triage/" + profileID
}

// NewSession creates a session for the profile, resuming from the snapshot
// store when a readable snapshot exists under the profile's slot.
func NewSession(profileID, userID string, pet *model.Pet, store snapshot.Store, limits Limits, logger *zap.Logger) *Session {
	s := &Session{
		id:        uuid.New().String(),
		profileID: profileID,
		userID:    userID,
		pet:       pet,
		store:     store,
		limits:    limits,
		logger:    logger,
		now:       time.Now,
	}

	if snap, err := store.Get(SnapshotKey(profileID)); err == nil && len(snap.Messages) > 0 {
		s.id = snap.SessionID
		if snap.UserID != "" {
			s.userID = snap.UserID
		}
		s.messages = snap.Messages
		s.input = snap.Input
		s.phase = snap.Phase
		s.result = snap.Result
		s.feedback = snap.Feedback
		s.feedbackReason = snap.Reason
		s.checkID = snap.CheckID
		s.createdAt = snap.CreatedAt
		s.updatedAt = snap.UpdatedAt
		s.restored = true

		// A snapshot taken mid-analysis has no result to wait for anymore
		if s.phase == model.PhaseAnalyzing || s.phase == model.PhaseFollowUp {
			s.phase = model.PhaseSymptoms
		}

		logger.Info("restored triage session from snapshot",
			zap.String("session_id", s.id),
			zap.String("profile_id", profileID),
			zap.String("phase", string(s.phase)),
		)
		return s
	}

	s.createdAt = s.now()
	s.begin()
	return s
}

// begin seeds a fresh conversation: one greeting message carrying the
// category options, phase already advanced past greeting to category.
func (s *Session) begin() {
	s.messages = nil
	s.input = model.CollectedInput{Images: []string{}}
	s.result = nil
	s.feedback = ""
	s.feedbackReason = ""
	s.awaitingReason = false
	s.checkID = ""
	s.phase = model.PhaseGreeting

	s.appendBot(greetingText, CategoryOptions())
	s.phase = model.PhaseCategory
	s.persist()
}

// ID returns the session identifier
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// ProfileID returns the owning profile identifier
func (s *Session) ProfileID() string {
	return s.profileID
}

// UserID returns the authenticated user, empty for anonymous sessions
func (s *Session) UserID() string {
	return s.userID
}

// Pet returns the pet snapshot the session was started with
func (s *Session) Pet() *model.Pet {
	return s.pet
}

// Phase returns the current conversation phase
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Restored reports whether this session was resumed from a snapshot
func (s *Session) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

// LastActivity returns the time of the most recent session mutation
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// CheckID returns the server-side record ID once the check has been synced
func (s *Session) CheckID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkID
}

// SetCheckID records the server-side check record created for this session
func (s *Session) SetCheckID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkID = id
	s.persist()
}

// SelectCategory handles a category choice. Health routes through the
// subcategory phase; every other category goes straight to symptoms.
func (s *Session) SelectCategory(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseCategory {
		return NewValidationError("category selection is not available in phase %s", s.phase)
	}
	if !model.ValidCategory(value) {
		return NewValidationError("unknown category: %s", value)
	}

	category := model.Category(value)
	s.appendUser(value)
	s.input.Category = category

	if category == model.CategoryHealth {
		s.phase = model.PhaseSubcategory
		s.appendBot(subcategoryPromptText, SubcategoryOptions())
	} else {
		s.phase = model.PhaseSymptoms
		s.appendBot(categoryPrompt(category), nil)
	}

	s.persist()
	return nil
}

// SelectSubcategory handles a Health subcategory choice
func (s *Session) SelectSubcategory(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSubcategory {
		return NewValidationError("subcategory selection is not available in phase %s", s.phase)
	}
	if !model.ValidSubcategory(value) {
		return NewValidationError("unknown subcategory: %s", value)
	}

	subcategory := model.Subcategory(value)
	s.appendUser(value)
	s.input.Subcategory = subcategory
	s.phase = model.PhaseSymptoms
	s.appendBot(subcategoryFollowPrompt(subcategory), nil)

	s.persist()
	return nil
}

// SubmitSymptoms accepts the free-text description and moves the session into
// the analyzing phase. Text, images and video combine as a logical OR: any one
// of them satisfies the precondition. The caller performs the actual analysis
// and reports back through ReceiveAnalysis or FailAnalysis.
func (s *Session) SubmitSymptoms(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("symptoms are not accepted in phase %s", s.phase)
	}

	text = strings.TrimSpace(text)
	if len(text) < s.limits.MinSymptomLength && len(s.input.Images) == 0 && s.input.Video == "" {
		return NewValidationError("please describe the symptoms in at least %d characters, or attach a photo or video", s.limits.MinSymptomLength)
	}

	if text != "" {
		s.appendUser(text)
	}
	s.input.Symptoms = text
	s.phase = model.PhaseAnalyzing
	s.appendBot(analyzingText, nil)

	s.persist()
	return nil
}

// ValidateImageAttachment checks phase and caps without mutating the session.
// Used before the upload so oversized files never reach storage.
func (s *Session) ValidateImageAttachment(sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("attachments are not accepted in phase %s", s.phase)
	}
	if len(s.input.Images) >= s.limits.MaxImages {
		return NewCapacityError("at most %d images can be attached", s.limits.MaxImages)
	}
	if sizeBytes > s.limits.MaxImageBytes {
		return NewCapacityError("image exceeds the %d MB limit", s.limits.MaxImageBytes/(1024*1024))
	}
	return nil
}

// ValidateVideoAttachment checks phase and caps without mutating the session
func (s *Session) ValidateVideoAttachment(sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("attachments are not accepted in phase %s", s.phase)
	}
	if s.input.Video != "" {
		return NewCapacityError("only one video can be attached")
	}
	if sizeBytes > s.limits.MaxVideoBytes {
		return NewCapacityError("video exceeds the %d MB limit", s.limits.MaxVideoBytes/(1024*1024))
	}
	return nil
}

// AttachImage records a symptom photo reference
func (s *Session) AttachImage(ref string, sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("attachments are not accepted in phase %s", s.phase)
	}
	if len(s.input.Images) >= s.limits.MaxImages {
		return NewCapacityError("at most %d images can be attached", s.limits.MaxImages)
	}
	if sizeBytes > s.limits.MaxImageBytes {
		return NewCapacityError("image exceeds the %d MB limit", s.limits.MaxImageBytes/(1024*1024))
	}

	s.input.Images = append(s.input.Images, ref)
	s.appendUserImage(ref)

	s.persist()
	return nil
}

// AttachVideo records the single symptom video reference
func (s *Session) AttachVideo(ref string, sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("attachments are not accepted in phase %s", s.phase)
	}
	if s.input.Video != "" {
		return NewCapacityError("only one video can be attached")
	}
	if sizeBytes > s.limits.MaxVideoBytes {
		return NewCapacityError("video exceeds the %d MB limit", s.limits.MaxVideoBytes/(1024*1024))
	}

	s.input.Video = ref
	s.appendUser("Attached a video of the issue.")

	s.persist()
	return nil
}

// RemoveImage drops an attached image by position
func (s *Session) RemoveImage(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("attachments cannot be changed in phase %s", s.phase)
	}
	if index < 0 || index >= len(s.input.Images) {
		return NewValidationError("no image at position %d", index)
	}

	s.input.Images = append(s.input.Images[:index], s.input.Images[index+1:]...)
	s.appendBot("Photo removed.", nil)

	s.persist()
	return nil
}

// RemoveVideo drops the attached video
func (s *Session) RemoveVideo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseSymptoms {
		return NewValidationError("attachments cannot be changed in phase %s", s.phase)
	}
	if s.input.Video == "" {
		return NewValidationError("no video attached")
	}

	s.input.Video = ""
	s.appendBot("Video removed.", nil)

	s.persist()
	return nil
}

// ReceiveAnalysis merges the gateway result into the conversation and reports
// whether the emergency follow-up should run.
func (s *Session) ReceiveAnalysis(result *model.AnalysisResult) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseAnalyzing {
		return false, NewValidationError("no analysis in progress")
	}

	s.result = result
	s.phase = model.PhaseComplete
	s.appendBot(FormatAnalysis(result), nil)
	s.appendBot(feedbackPromptText, nil)

	s.persist()
	return result.RiskLevel == model.RiskEmergency, nil
}

// FailAnalysis reverts the session to the symptoms phase after a gateway
// failure. No partial result is ever stored.
func (s *Session) FailAnalysis() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseAnalyzing {
		return
	}

	s.phase = model.PhaseSymptoms
	s.appendBot(gatewayFailureText, nil)

	s.persist()
}

// SubmitFeedback records the single up/down signal for a completed session.
// A down signal without a reason code asks for one; the next call carrying a
// valid reason finishes the sub-flow.
func (s *Session) SubmitFeedback(signal string, reasonCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseComplete {
		return NewValidationError("feedback is not accepted in phase %s", s.phase)
	}

	if s.awaitingReason {
		if !model.ValidFeedbackReason(reasonCode) {
			return NewValidationError("unknown feedback reason: %s", reasonCode)
		}
		s.feedbackReason = model.FeedbackReason(reasonCode)
		s.awaitingReason = false
		s.appendBot(feedbackThanksText, nil)
		s.persist()
		return nil
	}

	if s.feedback != "" {
		return NewValidationError("feedback has already been recorded")
	}

	switch model.FeedbackSignal(signal) {
	case model.FeedbackUp:
		s.feedback = model.FeedbackUp
		s.appendUser("👍")
		s.appendBot(feedbackThanksText, nil)
	case model.FeedbackDown:
		// Reject a bad inline reason before touching any state so the
		// caller can retry the whole signal.
		if reasonCode != "" && !model.ValidFeedbackReason(reasonCode) {
			return NewValidationError("unknown feedback reason: %s", reasonCode)
		}
		s.feedback = model.FeedbackDown
		s.appendUser("👎")
		if reasonCode != "" {
			s.feedbackReason = model.FeedbackReason(reasonCode)
			s.appendBot(feedbackThanksText, nil)
		} else {
			s.awaitingReason = true
			s.appendBot(feedbackReasonPromptText, FeedbackReasonOptions())
		}
	default:
		return NewValidationError("unknown feedback signal: %s", signal)
	}

	s.persist()
	return nil
}

// AskFollowUp appends a post-completion question and moves the session into
// the follow-up phase while the answer is produced.
func (s *Session) AskFollowUp(question string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseComplete {
		return NewValidationError("follow-up questions are not accepted in phase %s", s.phase)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return NewValidationError("follow-up question cannot be empty")
	}

	s.appendUser(question)
	s.phase = model.PhaseFollowUp

	s.persist()
	return nil
}

// ReceiveFollowUpAnswer appends the gateway's answer and returns to complete
func (s *Session) ReceiveFollowUpAnswer(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseFollowUp {
		return
	}

	s.appendBot(answer, nil)
	s.phase = model.PhaseComplete

	s.persist()
}

// FailFollowUp restores the complete phase after a failed follow-up request
func (s *Session) FailFollowUp() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != model.PhaseFollowUp {
		return
	}

	s.appendBot(gatewayFailureText, nil)
	s.phase = model.PhaseComplete

	s.persist()
}

// AppendNotice adds an out-of-band bot message, such as the emergency clinic
// suggestions produced by the provider lookup.
func (s *Session) AppendNotice(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendBot(content, nil)
	s.persist()
}

// Reset discards the conversation and starts over. The stored snapshot is
// deleted first; this is the only deletion path for the profile's slot.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(SnapshotKey(s.profileID)); err != nil {
		s.logger.Warn("failed to delete session snapshot",
			zap.String("profile_id", s.profileID),
			zap.Error(err),
		)
	}

	s.id = uuid.New().String()
	s.createdAt = s.now()
	s.restored = false
	s.begin()
	return nil
}

// Snapshot returns a copy of the full session state
func (s *Session) Snapshot() *model.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *model.SessionSnapshot {
	messages := make([]model.ConversationMessage, len(s.messages))
	copy(messages, s.messages)

	input := s.input
	input.Images = append([]string(nil), s.input.Images...)

	return &model.SessionSnapshot{
		SessionID:  s.id,
		ProfileID:  s.profileID,
		UserID:     s.userID,
		Pet:        s.pet,
		Messages:   messages,
		Input:      input,
		Phase:      s.phase,
		Result:     s.result,
		Feedback:   s.feedback,
		Reason:     s.feedbackReason,
		CheckID:    s.checkID,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
		SnapshotAt: s.now(),
	}
}

// persist mirrors the session to the snapshot store. Write failures are
// logged only; the in-memory state remains authoritative.
func (s *Session) persist() {
	s.updatedAt = s.now()
	if err := s.store.Put(SnapshotKey(s.profileID), s.snapshotLocked()); err != nil {
		s.logger.Warn("failed to persist session snapshot",
			zap.String("session_id", s.id),
			zap.String("profile_id", s.profileID),
			zap.Error(err),
		)
	}
}

func (s *Session) appendBot(content string, options []model.MessageOption) {
	s.messages = append(s.messages, model.ConversationMessage{
		ID:        uuid.New().String(),
		Author:    model.AuthorBot,
		Content:   content,
		Options:   options,
		CreatedAt: s.now(),
	})
}

func (s *Session) appendUser(content string) {
	s.messages = append(s.messages, model.ConversationMessage{
		ID:        uuid.New().String(),
		Author:    model.AuthorUser,
		Content:   content,
		CreatedAt: s.now(),
	})
}

func (s *Session) appendUserImage(ref string) {
	s.messages = append(s.messages, model.ConversationMessage{
		ID:        uuid.New().String(),
		Author:    model.AuthorUser,
		Content:   "Attached a photo of the issue.",
		Image:     ref,
		CreatedAt: s.now(),
	})
}
