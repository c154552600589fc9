package toast

import (
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// MaxVisible is the number of toasts shown at once.
const MaxVisible = 5

// Board holds the visible toasts, newest first. Each toast removes itself
// after its TTL; users may dismiss it earlier.
type Board struct {
	mu       sync.Mutex
	toasts   []domain.Toast
	timers   map[string]clockwork.Timer
	onChange func([]domain.Toast)

	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewBoard creates an empty board. Subscribe its Show method to an Emitter.
func NewBoard(clock clockwork.Clock, metrics *observability.Metrics) *Board {
	return &Board{
		timers:  make(map[string]clockwork.Timer),
		clock:   clock,
		metrics: metrics,
	}
}

// OnChange sets a callback invoked with the visible set after every change.
// It runs outside the board's lock.
func (b *Board) OnChange(fn func([]domain.Toast)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Show puts t at the front of the board and schedules its expiry. Toasts
// pushed past MaxVisible are dropped.
func (b *Board) Show(t domain.Toast) {
	b.mu.Lock()
	b.toasts = append([]domain.Toast{t}, b.toasts...)
	for len(b.toasts) > MaxVisible {
		last := b.toasts[len(b.toasts)-1]
		b.toasts = b.toasts[:len(b.toasts)-1]
		b.stopTimerLocked(last.ID)
	}
	id := t.ID
	b.timers[id] = b.clock.AfterFunc(t.TTL(), func() { b.expire(id) })
	visible, notify := b.snapshotLocked()
	b.mu.Unlock()

	notify(visible)
}

// Dismiss removes a toast by ID. Unknown or already removed IDs are ignored.
func (b *Board) Dismiss(id string) bool {
	b.mu.Lock()
	removed := b.removeLocked(id)
	b.stopTimerLocked(id)
	visible, notify := b.snapshotLocked()
	b.mu.Unlock()

	if removed {
		notify(visible)
	}
	return removed
}

func (b *Board) expire(id string) {
	b.mu.Lock()
	delete(b.timers, id)
	removed := b.removeLocked(id)
	visible, notify := b.snapshotLocked()
	b.mu.Unlock()

	if removed {
		notify(visible)
	}
}

// Visible returns a copy of the toasts on the board, newest first.
func (b *Board) Visible() []domain.Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Toast(nil), b.toasts...)
}

// Close stops every pending expiry timer.
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id := range b.timers {
		b.stopTimerLocked(id)
	}
}

func (b *Board) removeLocked(id string) bool {
	for i, t := range b.toasts {
		if t.ID == id {
			b.toasts = append(b.toasts[:i], b.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Board) stopTimerLocked(id string) {
	if timer, ok := b.timers[id]; ok {
		timer.Stop()
		delete(b.timers, id)
	}
}

func (b *Board) snapshotLocked() ([]domain.Toast, func([]domain.Toast)) {
	b.metrics.ToastsVisible.Set(float64(len(b.toasts)))
	visible := append([]domain.Toast(nil), b.toasts...)
	fn := b.onChange
	if fn == nil {
		fn = func([]domain.Toast) {}
	}
	return visible, fn
}
