// Package forecast keeps the most recent city forecast so secondary views can
// follow the dashboard's last prediction.
package forecast

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

// Snapshot is the last city forecast and when it was taken. The zero value
// means no forecast is held.
type Snapshot struct {
	CityForecast []domain.ForecastRow `json:"cityForecast"`
	ForecastDays int                  `json:"forecastDays"`
	ForecastedAt time.Time            `json:"forecastedAt"`
}

// Empty reports whether the snapshot holds no forecast.
func (s Snapshot) Empty() bool {
	return s.ForecastedAt.IsZero()
}

// Session owns the current snapshot. Updates replace it whole.
type Session struct {
	mu    sync.RWMutex
	snap  Snapshot
	clock clockwork.Clock
}

// NewSession creates an empty session.
func NewSession(clock clockwork.Clock) *Session {
	return &Session{clock: clock}
}

// Update replaces the snapshot with rows for the given horizon, stamped now.
func (s *Session) Update(rows []domain.ForecastRow, horizon int) {
	snap := Snapshot{
		CityForecast: append([]domain.ForecastRow{}, rows...),
		ForecastDays: horizon,
		ForecastedAt: s.clock.Now(),
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Clear drops the snapshot.
func (s *Session) Clear() {
	s.mu.Lock()
	s.snap = Snapshot{}
	s.mu.Unlock()
}

// Snapshot returns a copy of the current snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	if snap.CityForecast != nil {
		snap.CityForecast = append([]domain.ForecastRow{}, snap.CityForecast...)
	}
	return snap
}
