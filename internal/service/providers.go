package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pawscope/backend/internal/geo"
	"github.com/pawscope/backend/pkg/model"
)

// ProviderLister supplies the provider catalogue
type ProviderLister interface {
	List(ctx context.Context, emergencyOnly bool) ([]*model.Provider, error)
}

// ProviderService finds nearby veterinary providers
type ProviderService struct {
	repo   ProviderLister
	logger *zap.Logger
	now    func() time.Time
}

// NewProviderService creates a new ProviderService
func NewProviderService(repo ProviderLister, logger *zap.Logger) *ProviderService {
	return &ProviderService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Nearby returns providers within radiusKM of the given point, sorted by
// distance. A non-positive radius means no distance cutoff.
func (s *ProviderService) Nearby(ctx context.Context, lat, lng, radiusKM float64, emergencyOnly bool) ([]*model.Provider, error) {
	providers, err := s.repo.List(ctx, emergencyOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	var nearby []*model.Provider
	for _, p := range providers {
		distance := geo.DistanceKM(lat, lng, p.Latitude, p.Longitude)
		if radiusKM > 0 && distance > radiusKM {
			continue
		}
		copied := *p
		copied.DistanceKM = distance
		nearby = append(nearby, &copied)
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKM < nearby[j].DistanceKM
	})

	return nearby, nil
}

// OpenEmergency returns up to limit currently-open emergency providers,
// closest first. Used by the emergency follow-up after an analysis.
func (s *ProviderService) OpenEmergency(ctx context.Context, lat, lng float64, limit int) ([]*model.Provider, error) {
	if limit <= 0 {
		limit = 3
	}

	providers, err := s.Nearby(ctx, lat, lng, 0, true)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var open []*model.Provider
	for _, p := range providers {
		if !ProviderOpenAt(p, now) {
			continue
		}
		open = append(open, p)
		if len(open) >= limit {
			break
		}
	}

	return open, nil
}

// ProviderOpenAt reports whether a provider is open at t. Operating hours are
// free-form strings, so this is a heuristic: explicit 24-hour flags win, a
// "24" substring in the day's hours counts as always open, and otherwise an
// "HH:MM-HH:MM" range is parsed. Unparseable hours count as closed.
func ProviderOpenAt(p *model.Provider, t time.Time) bool {
	if p.Is24Hours {
		return true
	}

	day := strings.ToLower(t.Weekday().String())
	hours, ok := p.Hours[day]
	if !ok || hours == "" {
		return false
	}

	if strings.Contains(hours, "24") {
		return true
	}

	parts := strings.SplitN(hours, "-", 2)
	if len(parts) != 2 {
		return false
	}

	openAt, err1 := parseClock(strings.TrimSpace(parts[0]))
	closeAt, err2 := parseClock(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	if closeAt < openAt {
		// Range spans midnight
		return minutes >= openAt || minutes < closeAt
	}
	return minutes >= openAt && minutes < closeAt
}

// parseClock converts "HH:MM" into minutes since midnight
func parseClock(s string) (int, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatProviderSuggestions renders the emergency clinic list into a bot
// message. Deterministic: providers are listed in the order given.
func FormatProviderSuggestions(providers []*model.Provider) string {
	if len(providers) == 0 {
		return "I couldn't find an open emergency clinic nearby. Please call your regular veterinarian's emergency line."
	}

	var sb strings.Builder
	sb.WriteString("These emergency clinics are open right now:\n")
	for _, p := range providers {
		sb.WriteString(fmt.Sprintf("• %s, %s (%.1f km), %s\n", p.Name, p.Address, p.DistanceKM, p.Phone))
	}
	sb.WriteString("Please contact one immediately.")
	return sb.String()
}
