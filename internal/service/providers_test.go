package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pawscope/backend/pkg/model"
)

type stubProviderLister struct {
	providers []*model.Provider
	err       error
	calls     int32
}

func (s *stubProviderLister) List(ctx context.Context, emergencyOnly bool) ([]*model.Provider, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.providers, nil
}

func (s *stubProviderLister) callCount() int32 {
	return atomic.LoadInt32(&s.calls)
}

// Monday 2024-06-03 14:30 UTC
var testClock = time.Date(2024, 6, 3, 14, 30, 0, 0, time.UTC)

func TestProviderOpenAt(t *testing.T) {
	tests := []struct {
		name     string
		provider model.Provider
		at       time.Time
		open     bool
	}{
		{
			name:     "24 hour flag always open",
			provider: model.Provider{Is24Hours: true},
			at:       time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC),
			open:     true,
		},
		{
			name:     "no hours for the day",
			provider: model.Provider{Hours: map[string]string{"sunday": "10:00-16:00"}},
			at:       testClock,
			open:     false,
		},
		{
			name:     "24 in the day's hours counts as open",
			provider: model.Provider{Hours: map[string]string{"monday": "24 hours"}},
			at:       testClock,
			open:     true,
		},
		{
			name:     "inside the range",
			provider: model.Provider{Hours: map[string]string{"monday": "09:00-18:00"}},
			at:       testClock,
			open:     true,
		},
		{
			name:     "after closing",
			provider: model.Provider{Hours: map[string]string{"monday": "09:00-12:00"}},
			at:       testClock,
			open:     false,
		},
		{
			name:     "closing minute is exclusive",
			provider: model.Provider{Hours: map[string]string{"monday": "09:00-14:30"}},
			at:       testClock,
			open:     false,
		},
		{
			name:     "range spanning midnight, before midnight",
			provider: model.Provider{Hours: map[string]string{"monday": "20:00-06:00"}},
			at:       time.Date(2024, 6, 3, 22, 0, 0, 0, time.UTC),
			open:     true,
		},
		{
			name:     "range spanning midnight, after midnight",
			provider: model.Provider{Hours: map[string]string{"monday": "20:00-06:00"}},
			at:       time.Date(2024, 6, 3, 3, 0, 0, 0, time.UTC),
			open:     true,
		},
		{
			name:     "range spanning midnight, closed daytime",
			provider: model.Provider{Hours: map[string]string{"monday": "20:00-06:00"}},
			at:       testClock,
			open:     false,
		},
		{
			name:     "unparseable hours count as closed",
			provider: model.Provider{Hours: map[string]string{"monday": "by appointment"}},
			at:       testClock,
			open:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.provider
			if got := ProviderOpenAt(&p, tt.at); got != tt.open {
				t.Errorf("Expected open=%v, got %v", tt.open, got)
			}
		})
	}
}

func TestNearbySortsByDistance(t *testing.T) {
	lister := &stubProviderLister{providers: []*model.Provider{
		{ID: "far", Latitude: 48.2, Longitude: 16.4},
		{ID: "near", Latitude: 47.51, Longitude: 19.05},
		{ID: "mid", Latitude: 47.6, Longitude: 19.2},
	}}
	svc := NewProviderService(lister, zap.NewNop())

	got, err := svc.Nearby(context.Background(), 47.5, 19.04, 0, false)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "mid" || got[2].ID != "far" {
		t.Errorf("Unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	for _, p := range got {
		if p.DistanceKM <= 0 {
			t.Errorf("Provider %s should carry a positive distance", p.ID)
		}
	}
}

func TestNearbyAppliesRadiusCutoff(t *testing.T) {
	lister := &stubProviderLister{providers: []*model.Provider{
		{ID: "near", Latitude: 47.51, Longitude: 19.05},
		{ID: "far", Latitude: 48.2, Longitude: 16.4},
	}}
	svc := NewProviderService(lister, zap.NewNop())

	got, err := svc.Nearby(context.Background(), 47.5, 19.04, 10, false)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "near" {
		t.Errorf("Expected only the near provider, got %d results", len(got))
	}
}

func TestOpenEmergencyLimitsToThreeClosest(t *testing.T) {
	var providers []*model.Provider
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		providers = append(providers, &model.Provider{
			ID:                id,
			Latitude:          47.5 + float64(i)*0.01,
			Longitude:         19.04,
			EmergencyServices: true,
			Is24Hours:         true,
		})
	}
	lister := &stubProviderLister{providers: providers}
	svc := NewProviderService(lister, zap.NewNop())

	got, err := svc.OpenEmergency(context.Background(), 47.5, 19.04, 0)
	if err != nil {
		t.Fatalf("OpenEmergency failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("Expected the 3 closest, got %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestOpenEmergencySkipsClosedProviders(t *testing.T) {
	lister := &stubProviderLister{providers: []*model.Provider{
		{ID: "closed", Latitude: 47.5, Longitude: 19.04, EmergencyServices: true},
		{ID: "open", Latitude: 47.6, Longitude: 19.04, EmergencyServices: true, Is24Hours: true},
	}}
	svc := NewProviderService(lister, zap.NewNop())

	got, err := svc.OpenEmergency(context.Background(), 47.5, 19.04, 3)
	if err != nil {
		t.Fatalf("OpenEmergency failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "open" {
		t.Fatalf("Expected only the open provider, got %d results", len(got))
	}
}
