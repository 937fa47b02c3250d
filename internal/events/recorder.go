package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/yourorg/flowhub/internal/observability/metrics"
)

// Event names emitted across the user lifecycle
const (
	UserInvited            = "user-invited"
	TransactionalEmailSent = "user-transactional-email-sent"
	EmailFailed            = "email-failed"
	UserRoleChanged        = "user-role-changed"
	UserSignedUp           = "user-signed-up"
)

// Event is one lifecycle event with its payload
type Event struct {
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Recorder receives lifecycle events, logs them in audit form, counts them,
// and fans them out to subscribers. Emit never blocks the caller: a slow
// subscriber drops events rather than stalling the primary operation.
type Recorder struct {
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewRecorder creates an event recorder
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger: logger,
		subs:   map[chan Event]struct{}{},
	}
}

// Emit records one lifecycle event
func (r *Recorder) Emit(name string, payload map[string]any) {
	event := Event{Name: name, Payload: payload, Timestamp: time.Now()}

	attrs := []any{slog.String("event", name)}
	for k, v := range payload {
		attrs = append(attrs, slog.Any(k, v))
	}
	r.logger.Info("lifecycle event", attrs...)
	metrics.ObserveLifecycleEvent(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	for ch := range r.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving future events and a cancel func
func (r *Recorder) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		delete(r.subs, ch)
		r.mu.Unlock()
	}
	return ch, cancel
}
