// Package events fans confirmed gesture changes out to the sinks that care
// about them: persistence, MQTT, the live websocket feed and the tray.
package events

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// Change is a confirmed label change in one session.
type Change struct {
	SessionID string        `json:"session"`
	Label     gesture.Label `json:"label"`
	Raw       gesture.Label `json:"raw"`
	Hands     int           `json:"hands"`
	Timestamp time.Time     `json:"timestamp"`
}

// Consumer receives changes. Consume must not block for long; the dispatcher
// calls consumers in registration order on the caller's goroutine.
type Consumer interface {
	Name() string
	Consume(c Change) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc struct {
	ID string
	Fn func(Change) error
}

// Name returns the consumer name.
func (f ConsumerFunc) Name() string { return f.ID }

// Consume calls the function.
func (f ConsumerFunc) Consume(c Change) error { return f.Fn(c) }

// ErrorObserver is notified of each consumer failure.
type ErrorObserver interface {
	ObservePublishError(err error)
}

// Dispatcher delivers each change to every registered consumer.
// A failing consumer is logged and does not stop delivery to the rest.
type Dispatcher struct {
	mu        sync.RWMutex
	consumers []Consumer
	observer  ErrorObserver
}

// NewDispatcher creates a Dispatcher. observer may be nil.
func NewDispatcher(observer ErrorObserver) *Dispatcher {
	return &Dispatcher{observer: observer}
}

// Register adds a consumer.
func (d *Dispatcher) Register(c Consumer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consumers = append(d.consumers, c)
}

// Consumers returns the names of registered consumers.
func (d *Dispatcher) Consumers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, len(d.consumers))
	for i, c := range d.consumers {
		names[i] = c.Name()
	}
	return names
}

// Publish delivers c to every consumer and joins their errors.
func (d *Dispatcher) Publish(c Change) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}

	d.mu.RLock()
	consumers := append([]Consumer(nil), d.consumers...)
	d.mu.RUnlock()

	var errs []error
	for _, consumer := range consumers {
		if err := consumer.Consume(c); err != nil {
			err = fmt.Errorf("%s: %w", consumer.Name(), err)
			slog.Warn("gesture change not delivered",
				"consumer", consumer.Name(),
				"session", c.SessionID,
				"label", c.Label.String(),
				"error", err)
			if d.observer != nil {
				d.observer.ObservePublishError(err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreRecorder persists changes as gesture events.
type StoreRecorder struct {
	events *store.EventRepository
}

// NewStoreRecorder creates a consumer writing to s.
func NewStoreRecorder(s *store.Store) *StoreRecorder {
	return &StoreRecorder{events: s.Events()}
}

// Name returns the consumer name.
func (r *StoreRecorder) Name() string { return "store" }

// Consume records the change.
func (r *StoreRecorder) Consume(c Change) error {
	return r.events.Record(&store.Event{
		SessionID: c.SessionID,
		Label:     string(c.Label),
		RawLabel:  string(c.Raw),
		Hands:     c.Hands,
		CreatedAt: c.Timestamp,
	})
}
