package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/ai"
	"github.com/pawscope/backend/internal/metrics"
	"github.com/pawscope/backend/internal/snapshot"
	"github.com/pawscope/backend/internal/storage"
	"github.com/pawscope/backend/pkg/model"
)

// ErrSessionNotFound is returned when a session ID is unknown
var ErrSessionNotFound = errors.New("session not found")

// CheckRecorder persists completed checks server-side. All writes through
// this interface are best-effort: failures are logged, never surfaced.
type CheckRecorder interface {
	Create(ctx context.Context, check *model.SymptomCheck) error
	UpdateMessages(ctx context.Context, checkID string, msgs []model.ConversationMessage) error
	UpdateFeedback(ctx context.Context, checkID string, signal model.FeedbackSignal, reason *model.FeedbackReason) error
}

// Location is an optional caller position used for the emergency lookup
type Location struct {
	Latitude  float64
	Longitude float64
}

// TriageService orchestrates triage sessions: it owns the session registry,
// drives the analysis gateway, and runs the best-effort side effects
// (emergency provider lookup, server-side history sync).
type TriageService struct {
	mu        sync.Mutex
	byID      map[string]*Session
	byProfile map[string]*Session

	store     snapshot.Store
	analyzer  ai.Analyzer
	providers *ProviderService
	checks    CheckRecorder
	media     storage.MediaStorage
	metrics   *metrics.Metrics
	limits    Limits
	logger    *zap.Logger
}

// NewTriageService creates a new TriageService
func NewTriageService(
	store snapshot.Store,
	analyzer ai.Analyzer,
	providers *ProviderService,
	checks CheckRecorder,
	media storage.MediaStorage,
	m *metrics.Metrics,
	limits Limits,
	logger *zap.Logger,
) *TriageService {
	return &TriageService{
		byID:      make(map[string]*Session),
		byProfile: make(map[string]*Session),
		store:     store,
		analyzer:  analyzer,
		providers: providers,
		checks:    checks,
		media:     media,
		metrics:   m,
		limits:    limits,
		logger:    logger,
	}
}

// StartSession creates or resumes the profile's session slot. A profile has
// exactly one active session; starting again returns the same session,
// restored from its snapshot when one exists.
func (t *TriageService) StartSession(profileID, userID string, pet *model.Pet) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byProfile[profileID]; ok {
		return existing
	}

	session := NewSession(profileID, userID, pet, t.store, t.limits, t.logger)
	t.byID[session.ID()] = session
	t.byProfile[profileID] = session

	if t.metrics != nil {
		t.metrics.SessionsStartedTotal.Inc()
		if session.Restored() {
			t.metrics.SessionsRestoredTotal.Inc()
		}
	}

	return session
}

// GetSession looks up a session by its identifier
func (t *TriageService) GetSession(sessionID string) (*Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, ok := t.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SubmitSymptoms validates the report, runs the analysis, and merges the
// result into the conversation. The analysis is a single outbound request; a
// failure reverts the session to the symptoms phase and returns a
// GatewayError so the caller can distinguish it from validation problems.
func (t *TriageService) SubmitSymptoms(ctx context.Context, sessionID, text string, loc *Location) error {
	session, err := t.GetSession(sessionID)
	if err != nil {
		return err
	}

	if err := session.SubmitSymptoms(text); err != nil {
		return err
	}

	snap := session.Snapshot()
	req := ai.AnalysisRequest{
		Pet:         session.Pet(),
		Category:    snap.Input.Category,
		Subcategory: snap.Input.Subcategory,
		Symptoms:    snap.Input.Symptoms,
		ImageCount:  len(snap.Input.Images),
		HasVideo:    snap.Input.Video != "",
	}

	startTime := time.Now()
	result, err := t.analyzer.Analyze(ctx, req)
	if err != nil {
		t.logger.Error("analysis failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if t.metrics != nil {
			t.metrics.RecordAnalysis("unknown", "error", time.Since(startTime))
		}
		session.FailAnalysis()
		return &GatewayError{Err: err}
	}

	if t.metrics != nil {
		t.metrics.RecordAnalysis(string(result.RiskLevel), "ok", time.Since(startTime))
	}

	emergency, err := session.ReceiveAnalysis(result)
	if err != nil {
		return err
	}

	if emergency && loc != nil {
		t.spawnEmergencyLookup(session, *loc)
	}

	if session.UserID() != "" {
		t.spawnHistorySync(session)
	}

	return nil
}

// AttachImage validates the photo against the session's caps, uploads it to
// media storage, and records the blob path on the session.
func (t *TriageService) AttachImage(ctx context.Context, sessionID, filename, contentType string, data []byte) error {
	session, err := t.GetSession(sessionID)
	if err != nil {
		return err
	}

	if err := session.ValidateImageAttachment(int64(len(data))); err != nil {
		return err
	}

	ref := fmt.Sprintf("%s-%s", uuid.New().String(), filename)
	if t.media != nil {
		path, err := t.media.UploadImage(ctx, ref, contentType, data)
		if err != nil {
			return fmt.Errorf("failed to store image: %w", err)
		}
		ref = path
	}

	return session.AttachImage(ref, int64(len(data)))
}

// AttachVideo validates the video against the session's caps, uploads it, and
// records the blob path on the session.
func (t *TriageService) AttachVideo(ctx context.Context, sessionID, filename, contentType string, data []byte) error {
	session, err := t.GetSession(sessionID)
	if err != nil {
		return err
	}

	if err := session.ValidateVideoAttachment(int64(len(data))); err != nil {
		return err
	}

	ref := fmt.Sprintf("%s-%s", uuid.New().String(), filename)
	if t.media != nil {
		path, err := t.media.UploadVideo(ctx, ref, contentType, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to store video: %w", err)
		}
		ref = path
	}

	return session.AttachVideo(ref, int64(len(data)))
}

// SubmitFeedback records the feedback signal and mirrors it server-side when
// the session belongs to an authenticated user with a synced check.
func (t *TriageService) SubmitFeedback(sessionID, signal, reasonCode string) error {
	session, err := t.GetSession(sessionID)
	if err != nil {
		return err
	}

	if err := session.SubmitFeedback(signal, reasonCode); err != nil {
		return err
	}

	if t.metrics != nil && (signal == string(model.FeedbackUp) || signal == string(model.FeedbackDown)) {
		t.metrics.FeedbackTotal.WithLabelValues(signal).Inc()
	}

	if checkID := session.CheckID(); checkID != "" && t.checks != nil {
		snap := session.Snapshot()
		go func() {
			syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			var reason *model.FeedbackReason
			if snap.Reason != "" {
				r := snap.Reason
				reason = &r
			}
			if err := t.checks.UpdateFeedback(syncCtx, checkID, snap.Feedback, reason); err != nil {
				t.logger.Warn("failed to sync feedback",
					zap.String("check_id", checkID),
					zap.Error(err),
				)
			}
		}()

		// The feedback exchange itself is part of the transcript
		t.spawnMessageSync(session)
	}

	return nil
}

// AskFollowUp answers a post-completion question through the gateway
func (t *TriageService) AskFollowUp(ctx context.Context, sessionID, question string) error {
	session, err := t.GetSession(sessionID)
	if err != nil {
		return err
	}

	if err := session.AskFollowUp(question); err != nil {
		return err
	}

	snap := session.Snapshot()
	req := ai.AnalysisRequest{
		Pet:         session.Pet(),
		Category:    snap.Input.Category,
		Subcategory: snap.Input.Subcategory,
		Symptoms:    snap.Input.Symptoms,
	}

	answer, err := t.analyzer.FollowUp(ctx, req, snap.Result, question)
	if err != nil {
		t.logger.Error("follow-up failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		session.FailFollowUp()
		return &GatewayError{Err: err}
	}

	session.ReceiveFollowUpAnswer(answer)

	if session.UserID() != "" && session.CheckID() != "" {
		t.spawnMessageSync(session)
	}

	return nil
}

// ResetSession starts the profile's slot over and deletes its snapshot. The
// reset session is returned because it carries a fresh identifier.
func (t *TriageService) ResetSession(sessionID string) (*Session, error) {
	session, err := t.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	oldID := session.ID()
	if err := session.Reset(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	delete(t.byID, oldID)
	t.byID[session.ID()] = session
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.SessionsResetTotal.Inc()
	}

	return session, nil
}

// EvictIdle drops registry entries for sessions with no activity since the
// cutoff and returns how many were removed. The snapshot store keeps the
// conversation, so an evicted profile resumes through StartSession exactly as
// it would after a process restart.
func (t *TriageService) EvictIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, session := range t.byID {
		if session.LastActivity().After(cutoff) {
			continue
		}
		delete(t.byID, id)
		delete(t.byProfile, session.ProfileID())
		evicted++
	}

	if evicted > 0 {
		t.logger.Info("evicted idle triage sessions", zap.Int("count", evicted))
	}
	return evicted
}

// StartEvictionLoop runs EvictIdle on the interval until the context ends
func (t *TriageService) StartEvictionLoop(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.EvictIdle(maxIdle)
			}
		}
	}()
}

// spawnEmergencyLookup finds open emergency clinics in the background and
// appends the suggestions to the conversation. Failures are logged only; the
// assessment itself is already delivered.
func (t *TriageService) spawnEmergencyLookup(session *Session, loc Location) {
	if t.providers == nil {
		return
	}
	if t.metrics != nil {
		t.metrics.EmergencyLookupsTotal.Inc()
	}

	go func() {
		lookupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		open, err := t.providers.OpenEmergency(lookupCtx, loc.Latitude, loc.Longitude, 3)
		if err != nil {
			t.logger.Warn("emergency provider lookup failed",
				zap.String("session_id", session.ID()),
				zap.Error(err),
			)
			return
		}

		session.AppendNotice(FormatProviderSuggestions(open))
	}()
}

// spawnHistorySync pushes the completed check to the server-side record
func (t *TriageService) spawnHistorySync(session *Session) {
	if t.checks == nil {
		return
	}

	snap := session.Snapshot()
	if snap.Result == nil {
		return
	}

	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		check := buildCheckRecord(snap)
		if err := t.checks.Create(syncCtx, check); err != nil {
			t.logger.Warn("failed to sync symptom check",
				zap.String("session_id", snap.SessionID),
				zap.Error(err),
			)
			return
		}

		session.SetCheckID(check.ID)
		t.logger.Info("symptom check synced",
			zap.String("session_id", snap.SessionID),
			zap.String("check_id", check.ID),
		)
	}()
}

// spawnMessageSync refreshes the stored conversation for a synced check
func (t *TriageService) spawnMessageSync(session *Session) {
	checkID := session.CheckID()
	snap := session.Snapshot()

	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := t.checks.UpdateMessages(syncCtx, checkID, snap.Messages); err != nil {
			t.logger.Warn("failed to sync messages",
				zap.String("check_id", checkID),
				zap.Error(err),
			)
		}
	}()
}

// buildCheckRecord converts a completed session snapshot into a check record
func buildCheckRecord(snap *model.SessionSnapshot) *model.SymptomCheck {
	check := &model.SymptomCheck{
		ID:               uuid.New().String(),
		Category:         snap.Input.Category,
		RiskLevel:        snap.Result.RiskLevel,
		Summary:          snap.Result.Summary,
		DetailedSections: snap.Result.DetailedSections,
		ImmediateActions: snap.Result.ImmediateActions,
		Reasoning:        snap.Result.Reasoning,
		Messages:         snap.Messages,
		MediaPaths:       append(append([]string{}, snap.Input.Images...), videoPaths(snap.Input.Video)...),
	}

	if snap.UserID != "" {
		userID := snap.UserID
		check.UserID = &userID
	}
	if snap.Pet != nil && snap.Pet.ID != "" {
		petID := snap.Pet.ID
		check.PetID = &petID
	}
	if snap.Input.Subcategory != "" {
		sub := snap.Input.Subcategory
		check.Subcategory = &sub
	}
	if snap.Input.Symptoms != "" {
		symptoms := snap.Input.Symptoms
		check.Symptoms = &symptoms
	}

	return check
}

func videoPaths(video string) []string {
	if video == "" {
		return nil
	}
	return []string{video}
}
