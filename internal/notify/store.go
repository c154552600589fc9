// Package notify holds the session's persistent notification feed.
package notify

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// Capacity is the number of most recent notifications the store keeps.
const Capacity = 100

// Hook observes notifications after they are added.
type Hook func(domain.Notification)

// Store is the single authority over the notification list and unread count.
// Every operation is atomic with respect to readers.
type Store struct {
	mu     sync.Mutex
	items  []domain.Notification // newest first
	unread int
	lastID int64
	hooks  []Hook

	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewStore creates an empty store.
func NewStore(clock clockwork.Clock, metrics *observability.Metrics) *Store {
	return &Store{clock: clock, metrics: metrics}
}

// OnAdd registers a hook called, outside the store lock, for each added notification.
func (s *Store) OnAdd(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Add inserts a candidate notification at the front of the feed and returns its ID.
// ID, Timestamp and Read are assigned by the store; the oldest record is
// evicted once the feed holds more than Capacity entries.
func (s *Store) Add(candidate domain.Notification) int64 {
	n := candidate.WithDefaults()

	s.mu.Lock()
	s.lastID++
	n.ID = s.lastID
	n.Timestamp = s.clock.Now()
	n.Read = false

	s.items = append([]domain.Notification{n}, s.items...)
	s.unread++
	for len(s.items) > Capacity {
		evicted := s.items[len(s.items)-1]
		s.items = s.items[:len(s.items)-1]
		if !evicted.Read {
			s.unread--
		}
		s.metrics.NotificationsEvicted.Inc()
	}
	s.metrics.NotificationsAdded.WithLabelValues(string(n.Level)).Inc()
	s.metrics.NotificationsUnread.Set(float64(s.unread))
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		h(n)
	}
	return n.ID
}

// MarkAllRead marks every notification read and zeroes the unread count.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.metrics.NotificationsUnread.Set(0)
}

// ClearAll empties the feed.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.unread = 0
	s.metrics.NotificationsUnread.Set(0)
}

// ClearByHorizon removes every notification of the scan generation for days,
// read or not, and returns how many were removed. Notifications without a
// horizon are never removed.
func (s *Store) ClearByHorizon(days int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0:0]
	removed := 0
	for _, n := range s.items {
		if n.InHorizon(days) {
			removed++
			if !n.Read {
				s.unread--
			}
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	s.metrics.NotificationsUnread.Set(float64(s.unread))
	return removed
}

// Notifications returns a copy of the feed, newest first.
func (s *Store) Notifications() []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Notification(nil), s.items...)
}

// UnreadCount returns the number of unread notifications.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Filter returns notifications at the given level, newest first. An empty
// level returns the whole feed.
func (s *Store) Filter(level domain.Level) []domain.Notification {
	if level == "" {
		return s.Notifications()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.items {
		if n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

// CountByLevel tallies the feed per level.
func (s *Store) CountByLevel() map[domain.Level]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[domain.Level]int{
		domain.LevelCritical: 0,
		domain.LevelHigh:     0,
		domain.LevelModerate: 0,
		domain.LevelSuccess:  0,
		domain.LevelInfo:     0,
	}
	for _, n := range s.items {
		counts[n.Level]++
	}
	return counts
}
