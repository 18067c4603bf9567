package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/pawscope/backend/pkg/model"
)

// ProviderRepository manages veterinary provider records
type ProviderRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewProviderRepository creates a new ProviderRepository
func NewProviderRepository(db *pgxpool.Pool, logger *zap.Logger) *ProviderRepository {
	return &ProviderRepository{
		db:     db,
		logger: logger,
	}
}

// List returns all providers, optionally restricted to those advertising
// emergency services. Distance filtering happens in the service layer.
func (r *ProviderRepository) List(ctx context.Context, emergencyOnly bool) ([]*model.Provider, error) {
	query := `
		SELECT id, name, address, city, phone, latitude, longitude,
		       rating, emergency_services, is_24_hours, hours, created_at
		FROM providers
	`
	if emergencyOnly {
		query += ` WHERE emergency_services = TRUE`
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list providers", zap.Error(err))
		return nil, fmt.Errorf("failed to list providers: %w", err)
	}
	defer rows.Close()

	var providers []*model.Provider
	for rows.Next() {
		var p model.Provider
		var hours []byte
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Address,
			&p.City,
			&p.Phone,
			&p.Latitude,
			&p.Longitude,
			&p.Rating,
			&p.EmergencyServices,
			&p.Is24Hours,
			&hours,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}

		if len(hours) > 0 {
			if err := json.Unmarshal(hours, &p.Hours); err != nil {
				return nil, fmt.Errorf("failed to decode provider hours: %w", err)
			}
		}

		providers = append(providers, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate providers: %w", err)
	}

	return providers, nil
}
