package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pawscope/backend/pkg/model"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// SymptomCheckRepository manages completed symptom-check records
type SymptomCheckRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewSymptomCheckRepository creates a new SymptomCheckRepository
func NewSymptomCheckRepository(db *pgxpool.Pool, logger *zap.Logger) *SymptomCheckRepository {
	return &SymptomCheckRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a completed symptom check
func (r *SymptomCheckRepository) Create(ctx context.Context, check *model.SymptomCheck) error {
	sections, err := json.Marshal(check.DetailedSections)
	if err != nil {
		return fmt.Errorf("failed to encode detailed sections: %w", err)
	}
	actions, err := json.Marshal(check.ImmediateActions)
	if err != nil {
		return fmt.Errorf("failed to encode immediate actions: %w", err)
	}
	messages, err := json.Marshal(check.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	media, err := json.Marshal(check.MediaPaths)
	if err != nil {
		return fmt.Errorf("failed to encode media paths: %w", err)
	}

	query := `
		INSERT INTO symptom_checks (
			id, user_id, pet_id, category, subcategory, symptoms,
			risk_level, summary, detailed_sections, immediate_actions, reasoning,
			messages, media_paths, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`

	_, err = r.db.Exec(ctx, query,
		check.ID,
		check.UserID,
		check.PetID,
		check.Category,
		check.Subcategory,
		check.Symptoms,
		check.RiskLevel,
		check.Summary,
		sections,
		actions,
		check.Reasoning,
		messages,
		media,
	)

	if err != nil {
		r.logger.Error("failed to create symptom check", zap.Error(err), zap.String("check_id", check.ID))
		return fmt.Errorf("failed to create symptom check: %w", err)
	}

	return nil
}

// Get retrieves a symptom check by ID
func (r *SymptomCheckRepository) Get(ctx context.Context, checkID string) (*model.SymptomCheck, error) {
	query := `
		SELECT id, user_id, pet_id, category, subcategory, symptoms,
		       risk_level, summary, detailed_sections, immediate_actions, reasoning,
		       messages, feedback, feedback_reason, media_paths, created_at, updated_at
		FROM symptom_checks
		WHERE id = $1
	`

	var check model.SymptomCheck
	var sections, actions, messages, media []byte
	err := r.db.QueryRow(ctx, query, checkID).Scan(
		&check.ID,
		&check.UserID,
		&check.PetID,
		&check.Category,
		&check.Subcategory,
		&check.Symptoms,
		&check.RiskLevel,
		&check.Summary,
		&sections,
		&actions,
		&check.Reasoning,
		&messages,
		&check.Feedback,
		&check.FeedbackReason,
		&media,
		&check.CreatedAt,
		&check.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get symptom check", zap.Error(err), zap.String("check_id", checkID))
		return nil, fmt.Errorf("failed to get symptom check: %w", err)
	}

	if err := decodeCheckColumns(&check, sections, actions, messages, media); err != nil {
		return nil, err
	}

	return &check, nil
}

// UpdateMessages replaces the stored conversation for a check
func (r *SymptomCheckRepository) UpdateMessages(ctx context.Context, checkID string, msgs []model.ConversationMessage) error {
	encoded, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	query := `
		UPDATE symptom_checks
		SET messages = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.db.Exec(ctx, query, encoded, checkID)
	if err != nil {
		r.logger.Error("failed to update messages", zap.Error(err), zap.String("check_id", checkID))
		return fmt.Errorf("failed to update messages: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateFeedback records the feedback signal and optional reason for a check
func (r *SymptomCheckRepository) UpdateFeedback(ctx context.Context, checkID string, signal model.FeedbackSignal, reason *model.FeedbackReason) error {
	query := `
		UPDATE symptom_checks
		SET feedback = $1, feedback_reason = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.db.Exec(ctx, query, signal, reason, checkID)
	if err != nil {
		r.logger.Error("failed to update feedback", zap.Error(err), zap.String("check_id", checkID))
		return fmt.Errorf("failed to update feedback: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByPet returns the checks recorded for a pet, newest first
func (r *SymptomCheckRepository) ListByPet(ctx context.Context, petID string, limit int) ([]*model.SymptomCheck, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, pet_id, category, subcategory, symptoms,
		       risk_level, summary, detailed_sections, immediate_actions, reasoning,
		       messages, feedback, feedback_reason, media_paths, created_at, updated_at
		FROM symptom_checks
		WHERE pet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, petID, limit)
	if err != nil {
		r.logger.Error("failed to list symptom checks", zap.Error(err), zap.String("pet_id", petID))
		return nil, fmt.Errorf("failed to list symptom checks: %w", err)
	}
	defer rows.Close()

	var checks []*model.SymptomCheck
	for rows.Next() {
		var check model.SymptomCheck
		var sections, actions, messages, media []byte
		if err := rows.Scan(
			&check.ID,
			&check.UserID,
			&check.PetID,
			&check.Category,
			&check.Subcategory,
			&check.Symptoms,
			&check.RiskLevel,
			&check.Summary,
			&sections,
			&actions,
			&check.Reasoning,
			&messages,
			&check.Feedback,
			&check.FeedbackReason,
			&media,
			&check.CreatedAt,
			&check.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan symptom check: %w", err)
		}

		if err := decodeCheckColumns(&check, sections, actions, messages, media); err != nil {
			return nil, err
		}

		checks = append(checks, &check)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symptom checks: %w", err)
	}

	return checks, nil
}

// decodeCheckColumns unpacks the jsonb columns of a symptom check row
func decodeCheckColumns(check *model.SymptomCheck, sections, actions, messages, media []byte) error {
	if len(sections) > 0 {
		if err := json.Unmarshal(sections, &check.DetailedSections); err != nil {
			return fmt.Errorf("failed to decode detailed sections: %w", err)
		}
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &check.ImmediateActions); err != nil {
			return fmt.Errorf("failed to decode immediate actions: %w", err)
		}
	}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &check.Messages); err != nil {
			return fmt.Errorf("failed to decode messages: %w", err)
		}
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &check.MediaPaths); err != nil {
			return fmt.Errorf("failed to decode media paths: %w", err)
		}
	}
	return nil
}
