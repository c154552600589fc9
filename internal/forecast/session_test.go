package forecast

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
)

func testRows(n int, pct float64) []domain.ForecastRow {
	rows := make([]domain.ForecastRow, n)
	for i := range rows {
		rows[i] = domain.ForecastRow{Date: time.Date(2025, 3, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), LeakagePercentage: pct}
	}
	return rows
}

func TestSession_StartsEmpty(t *testing.T) {
	s := NewSession(clockwork.NewFakeClock())
	snap := s.Snapshot()

	assert.True(t, snap.Empty())
	assert.Nil(t, snap.CityForecast)
	assert.Zero(t, snap.ForecastDays)
}

func TestSession_UpdateReplacesWholeSnapshot(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	s := NewSession(fc)

	s.Update(testRows(7, 12), 7)
	first := s.Snapshot()

	fc.Advance(time.Minute)
	s.Update(testRows(30, 9), 30)
	second := s.Snapshot()

	assert.Len(t, first.CityForecast, 7)
	assert.Equal(t, 7, first.ForecastDays)
	assert.Len(t, second.CityForecast, 30)
	assert.Equal(t, 30, second.ForecastDays)
	assert.Equal(t, fc.Now(), second.ForecastedAt)
	assert.True(t, second.ForecastedAt.After(first.ForecastedAt))
}

func TestSession_UpdateWithEmptyForecast(t *testing.T) {
	s := NewSession(clockwork.NewFakeClock())
	s.Update(nil, 1)

	snap := s.Snapshot()
	assert.False(t, snap.Empty())
	assert.NotNil(t, snap.CityForecast)
	assert.Empty(t, snap.CityForecast)
	assert.Equal(t, 1, snap.ForecastDays)
}

func TestSession_Clear(t *testing.T) {
	s := NewSession(clockwork.NewFakeClock())
	s.Update(testRows(7, 12), 7)

	s.Clear()

	assert.Equal(t, Snapshot{}, s.Snapshot())
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := NewSession(clockwork.NewFakeClock())
	rows := testRows(2, 12)
	s.Update(rows, 2)

	rows[0].LeakagePercentage = 99
	snap := s.Snapshot()
	snap.CityForecast[1].LeakagePercentage = 99

	again := s.Snapshot()
	assert.Equal(t, 12.0, again.CityForecast[0].LeakagePercentage)
	assert.Equal(t, 12.0, again.CityForecast[1].LeakagePercentage)
}

func TestSession_NoPartialStates(t *testing.T) {
	s := NewSession(clockwork.NewRealClock())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%5 == 0 {
				s.Clear()
				continue
			}
			n := 1 + i%3
			s.Update(testRows(n, 10), n)
		}
	}()

	for i := 0; i < 1000; i++ {
		snap := s.Snapshot()
		if snap.Empty() {
			require.Nil(t, snap.CityForecast)
			require.Zero(t, snap.ForecastDays)
			continue
		}
		require.Len(t, snap.CityForecast, snap.ForecastDays)
	}
	close(stop)
	wg.Wait()
}
