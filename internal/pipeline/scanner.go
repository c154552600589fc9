// Package pipeline turns forecasting API responses into alerts.
//
// A Scanner fetches the ward scan for a horizon once, records a notification
// per alerting ward immediately and releases the matching toasts on a
// stagger, finishing with one aggregate toast and notification. A Predictor
// runs the city forecast and then starts a scan in the background.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// DefaultThreshold is the leakage percentage passed to the scan endpoint
// when the caller does not supply one.
const DefaultThreshold = 10.0

// Stagger timing for one scan, measured from the moment results arrive.
const (
	FirstToastDelay = 400 * time.Millisecond
	ToastInterval   = 520 * time.Millisecond
	SummaryGrace    = 300 * time.Millisecond
)

// WardScanSource performs the ward scan request.
type WardScanSource interface {
	ScanWards(ctx context.Context, token string, threshold float64, days int) ([]domain.WardScanResult, error)
}

// NotificationSink receives persistent alert records.
type NotificationSink interface {
	Add(n domain.Notification) int64
	ClearByHorizon(days int) int
}

// ToastPublisher emits transient popups.
type ToastPublisher interface {
	Publish(message string, level domain.Level)
}

// generation is one scan for a horizon and the callbacks it still has pending.
type generation struct {
	horizon int
	timers  []clockwork.Timer
}

// Scanner orchestrates ward scans. Scans for the same horizon supersede each
// other: starting a new one cancels whatever the previous one still had
// scheduled. Scans for different horizons are independent.
type Scanner struct {
	source    WardScanSource
	store     NotificationSink
	toasts    ToastPublisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	threshold float64

	mu     sync.Mutex
	gens   map[int]*generation
	closed bool
}

// NewScanner creates a Scanner. A threshold outside (0, 100] falls back to DefaultThreshold.
func NewScanner(source WardScanSource, store NotificationSink, toasts ToastPublisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, threshold float64) *Scanner {
	if !domain.ValidThreshold(threshold) {
		threshold = DefaultThreshold
	}
	return &Scanner{
		source:    source,
		store:     store,
		toasts:    toasts,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		threshold: threshold,
		gens:      make(map[int]*generation),
	}
}

// Scan runs one ward scan for horizon days and returns the endpoint's results.
// Failures are reported as a toast and yield an empty slice; Scan never
// returns an error. A threshold outside (0, 100] uses the scanner's default.
func (s *Scanner) Scan(ctx context.Context, horizon int, token string, threshold float64) []domain.WardScanResult {
	if !domain.ValidThreshold(threshold) {
		threshold = s.threshold
	}

	gen, ok := s.begin(horizon)
	if !ok {
		s.logger.Warn("scan rejected, scanner closed", "days", horizon)
		return []domain.WardScanResult{}
	}

	s.metrics.ScansStarted.Inc()
	s.metrics.ScanInFlight.Inc()
	results, err := s.source.ScanWards(ctx, token, threshold, domain.ScanDays(horizon))
	s.metrics.ScanInFlight.Dec()

	if err != nil {
		s.fail(gen, err)
		return []domain.WardScanResult{}
	}

	for i := range results {
		results[i] = results[i].Normalize()
		s.metrics.WardsScanned.WithLabelValues(string(results[i].Level)).Inc()
	}

	if !s.apply(gen, results, threshold) {
		s.logger.Info("scan superseded before results arrived, not applying", "days", horizon)
	}
	return results
}

// CheckReadiness reports an error once the scanner has been closed.
func (s *Scanner) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("scanner is shut down")
	}
	return nil
}

// Close cancels every pending callback. Later scans are rejected.
func (s *Scanner) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for h, g := range s.gens {
		stopAll(g)
		delete(s.gens, h)
	}
}

// begin starts a new generation for horizon, cancelling the previous one
// and clearing that horizon's notifications.
func (s *Scanner) begin(horizon int) (*generation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}

	if prev, ok := s.gens[horizon]; ok {
		stopAll(prev)
		s.metrics.ScansSuperseded.Inc()
		s.logger.Debug("superseding pending scan", "days", horizon, "pending_callbacks", len(prev.timers))
	}

	gen := &generation{horizon: horizon}
	s.gens[horizon] = gen
	removed := s.store.ClearByHorizon(horizon)
	s.logger.Debug("scan started", "days", horizon, "cleared", removed)
	return gen, true
}

func (s *Scanner) fail(gen *generation, err error) {
	s.metrics.ScanFailures.Inc()
	s.logger.Warn("ward scan failed", "days", gen.horizon, "error", err)

	s.mu.Lock()
	s.finishLocked(gen)
	s.mu.Unlock()

	s.toasts.Publish(scanFailedMessage, domain.LevelHigh)
}

// apply records notifications and schedules toasts for results, unless gen
// has been superseded in the meantime.
func (s *Scanner) apply(gen *generation, results []domain.WardScanResult, threshold float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(gen) {
		return false
	}

	alerting, normal := domain.PartitionWards(results)
	days := gen.horizon

	delay := FirstToastDelay
	for i, w := range alerting {
		delay = FirstToastDelay + time.Duration(i)*ToastInterval
		s.store.Add(wardNotification(w, days))
		toast, level := wardToast(w), w.Level
		s.scheduleLocked(gen, delay, func() {
			s.toasts.Publish(toast, level)
		})
	}

	s.scheduleLocked(gen, delay+SummaryGrace, func() {
		if len(alerting) == 0 {
			s.toasts.Publish(allClearToast(len(normal), days), domain.LevelSuccess)
			s.store.Add(allClearNotification(len(normal), days, threshold))
		} else {
			counts := countLevels(alerting, len(normal))
			s.toasts.Publish(summaryToast(counts, days), domain.LevelInfo)
			s.store.Add(summaryNotification(counts, len(alerting), days))
		}
		s.finishLocked(gen)
		s.logger.Info("scan complete", "days", days, "alerting", len(alerting), "normal", len(normal))
	})
	return true
}

// scheduleLocked arranges for fn to run after d, under s.mu, as long as gen
// is still the current generation for its horizon.
func (s *Scanner) scheduleLocked(gen *generation, d time.Duration, fn func()) {
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.currentLocked(gen) {
			fn()
		}
	})
	gen.timers = append(gen.timers, t)
}

func (s *Scanner) currentLocked(gen *generation) bool {
	return !s.closed && s.gens[gen.horizon] == gen
}

func (s *Scanner) finishLocked(gen *generation) {
	if s.gens[gen.horizon] == gen {
		delete(s.gens, gen.horizon)
	}
}

func stopAll(g *generation) {
	for _, t := range g.timers {
		t.Stop()
	}
	g.timers = nil
}
