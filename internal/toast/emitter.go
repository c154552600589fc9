// Package toast delivers transient popup messages.
//
// An Emitter fans each published toast out to whichever listeners are
// subscribed at that moment. Nothing is buffered: a toast published with no
// listener is lost. Board is the listener that keeps the visible set.
package toast

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/leakwatch-service/internal/domain"
	"github.com/couchcryptid/leakwatch-service/internal/observability"
)

// Listener receives every toast published while it is subscribed.
type Listener func(domain.Toast)

type subscription struct {
	id int
	fn Listener
}

// Emitter is a fire-and-forget toast channel.
type Emitter struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    int

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEmitter creates an Emitter with no listeners.
func NewEmitter(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Emitter {
	return &Emitter{
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Subscribe registers a listener and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (e *Emitter) Subscribe(fn Listener) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, subscription{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter) remove(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.listeners {
		if s.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Publish builds a toast and hands it to every current listener, in
// subscription order. An empty level is treated as INFO.
func (e *Emitter) Publish(message string, level domain.Level) {
	t := domain.Toast{
		ID:        newToastID(),
		Message:   message,
		Level:     level.OrDefault(),
		CreatedAt: e.clock.Now(),
	}

	e.mu.RLock()
	listeners := make([]Listener, len(e.listeners))
	for i, s := range e.listeners {
		listeners[i] = s.fn
	}
	e.mu.RUnlock()

	if len(listeners) == 0 {
		e.metrics.ToastsDropped.Inc()
		e.logger.Debug("toast dropped, no listener", "level", t.Level, "message", t.Message)
		return
	}

	e.metrics.ToastsPublished.WithLabelValues(string(t.Level)).Inc()
	for _, fn := range listeners {
		fn(t)
	}
}

// newToastID returns a time-ordered random identifier.
func newToastID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
