package toast

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

const waitFor = time.Second

// --- helpers ---

type recorder struct {
	mu     sync.Mutex
	toasts []domain.Toast
}

func (r *recorder) listen(t domain.Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.toasts))
	for _, t := range r.toasts {
		out = append(out, t.Message)
	}
	return out
}

func newTestEmitter(clock clockwork.Clock) (*Emitter, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewEmitter(clock, observability.DiscardLogger(), m), m
}

func visibleIDs(b *Board) []string {
	var ids []string
	for _, t := range b.Visible() {
		ids = append(ids, t.ID)
	}
	return ids
}

func toastAt(id string, level domain.Level) domain.Toast {
	return domain.Toast{ID: id, Message: "msg " + id, Level: level}
}

// --- Emitter ---

func TestEmitter_PublishWithoutListenerIsLost(t *testing.T) {
	e, m := newTestEmitter(clockwork.NewFakeClock())

	e.Publish("nobody hears this", domain.LevelHigh)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ToastsDropped), 0)

	// A listener subscribed later does not receive the earlier toast.
	rec := &recorder{}
	e.Subscribe(rec.listen)
	assert.Empty(t, rec.messages())
}

func TestEmitter_DeliversToAllListenersInOrder(t *testing.T) {
	e, m := newTestEmitter(clockwork.NewFakeClock())

	var order []string
	e.Subscribe(func(domain.Toast) { order = append(order, "first") })
	e.Subscribe(func(domain.Toast) { order = append(order, "second") })

	e.Publish("hello", domain.LevelCritical)

	assert.Equal(t, []string{"first", "second"}, order)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ToastsPublished.WithLabelValues("CRITICAL")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.ToastsDropped), 0)
}

func TestEmitter_DefaultsLevelAndStampsToast(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	e, _ := newTestEmitter(fc)

	rec := &recorder{}
	e.Subscribe(rec.listen)
	e.Publish("loaded", "")
	e.Publish("loaded again", "")

	require.Len(t, rec.toasts, 2)
	assert.Equal(t, domain.LevelInfo, rec.toasts[0].Level)
	assert.Equal(t, fc.Now(), rec.toasts[0].CreatedAt)
	assert.NotEmpty(t, rec.toasts[0].ID)
	assert.NotEqual(t, rec.toasts[0].ID, rec.toasts[1].ID)
}

func TestEmitter_Unsubscribe(t *testing.T) {
	e, m := newTestEmitter(clockwork.NewFakeClock())

	rec := &recorder{}
	unsubscribe := e.Subscribe(rec.listen)
	e.Publish("one", domain.LevelInfo)
	unsubscribe()
	unsubscribe()
	e.Publish("two", domain.LevelInfo)

	assert.Equal(t, []string{"one"}, rec.messages())
	assert.InDelta(t, 1, testutil.ToFloat64(m.ToastsDropped), 0)
}

// --- Board ---

func TestBoard_CapsVisibleToasts(t *testing.T) {
	b := NewBoard(clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	for i := 1; i <= 6; i++ {
		b.Show(toastAt(fmt.Sprintf("t%d", i), domain.LevelInfo))
	}

	assert.Equal(t, []string{"t6", "t5", "t4", "t3", "t2"}, visibleIDs(b))
}

func TestBoard_CriticalToastExpiresAfterSevenSeconds(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewBoard(fc, observability.NewMetricsForTesting())

	b.Show(toastAt("crit", domain.LevelCritical))

	fc.Advance(6999 * time.Millisecond)
	assert.Equal(t, []string{"crit"}, visibleIDs(b))

	fc.Advance(time.Millisecond)
	assert.Eventually(t, func() bool { return len(b.Visible()) == 0 }, waitFor, time.Millisecond)
}

func TestBoard_HighToastExpiresAfterFourAndAHalfSeconds(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewBoard(fc, observability.NewMetricsForTesting())

	b.Show(toastAt("high", domain.LevelHigh))
	b.Show(toastAt("crit", domain.LevelCritical))

	fc.Advance(4499 * time.Millisecond)
	assert.Equal(t, []string{"crit", "high"}, visibleIDs(b))

	fc.Advance(time.Millisecond)
	assert.Eventually(t, func() bool {
		ids := visibleIDs(b)
		return len(ids) == 1 && ids[0] == "crit"
	}, waitFor, time.Millisecond)
}

func TestBoard_DismissIsIdempotent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewBoard(fc, observability.NewMetricsForTesting())

	b.Show(toastAt("a", domain.LevelInfo))
	b.Show(toastAt("b", domain.LevelInfo))

	assert.True(t, b.Dismiss("a"))
	assert.False(t, b.Dismiss("a"))
	assert.False(t, b.Dismiss("missing"))
	assert.Equal(t, []string{"b"}, visibleIDs(b))

	// The expiry of a dismissed toast must not disturb the board.
	fc.Advance(domain.ToastTTL)
	assert.Eventually(t, func() bool { return len(b.Visible()) == 0 }, waitFor, time.Millisecond)
}

func TestBoard_OnChange(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewBoard(fc, observability.NewMetricsForTesting())

	var mu sync.Mutex
	var sizes []int
	b.OnChange(func(v []domain.Toast) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(v))
	})

	b.Show(toastAt("a", domain.LevelInfo))
	b.Show(toastAt("b", domain.LevelInfo))
	b.Dismiss("a")
	b.Dismiss("a")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 1}, sizes)
}

func TestBoard_SubscribedToEmitter(t *testing.T) {
	fc := clockwork.NewFakeClock()
	e, _ := newTestEmitter(fc)
	b := NewBoard(fc, observability.NewMetricsForTesting())
	e.Subscribe(b.Show)

	e.Publish("Ward 3 · Kalamboli — 21.4% avg leakage", domain.LevelCritical)

	visible := b.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, domain.LevelCritical, visible[0].Level)
}

func TestBoard_CloseStopsTimers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	b := NewBoard(fc, observability.NewMetricsForTesting())

	b.Show(toastAt("a", domain.LevelInfo))
	b.Close()
	fc.Advance(domain.CriticalToastTTL)

	assert.Equal(t, []string{"a"}, visibleIDs(b))
}
