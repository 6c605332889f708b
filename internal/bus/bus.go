// Package bus provides the synchronous publish/subscribe hub that closes
// the circuit between UI-originated events and trait consumers.
//
// Events are plain namespaced strings. By convention user-interaction
// events carry a "UI:" prefix (UI:SAVE, UI:CANCEL) so trait consumers can
// filter by prefix; the bus itself is prefix-agnostic.
//
// The bus is single-threaded: Emit dispatches synchronously on
// the caller's stack, and handlers may re-enter the bus (subscribe,
// unsubscribe, emit) without corrupting the in-flight dispatch. There is
// no locking - the bus must not be shared across goroutines.
package bus

import (
	"log/slog"

	"github.com/almadar-io/orbital/internal/expr"
)

// Handler receives an event payload. A nil payload is delivered as
// undefined; handlers share the evaluator's value model.
type Handler func(payload expr.Value)

// subscription is one registered handler. Identity (pointer) is what the
// unsubscribe closure removes; the same Handler func may be registered
// twice and unsubscribed independently.
type subscription struct {
	event   string
	handler Handler
	once    bool
}

// Bus dispatches events to subscribers in registration order.
type Bus struct {
	subs   map[string][]*subscription
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for handler panic reports.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{subs: make(map[string][]*subscription)}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// On subscribes a handler to an event and returns an unsubscribe
// function. Delivery order is registration order. The unsubscribe
// function is idempotent - calling it twice is harmless.
func (b *Bus) On(event string, handler Handler) func() {
	return b.add(&subscription{event: event, handler: handler})
}

// Once subscribes a handler that is removed after its first delivery.
// Returns an unsubscribe function for cancelling before delivery.
func (b *Bus) Once(event string, handler Handler) func() {
	return b.add(&subscription{event: event, handler: handler, once: true})
}

func (b *Bus) add(sub *subscription) func() {
	b.subs[sub.event] = append(b.subs[sub.event], sub)
	return func() {
		b.remove(sub)
	}
}

func (b *Bus) remove(sub *subscription) {
	current := b.subs[sub.event]
	for i, s := range current {
		if s == sub {
			// Copy-on-remove keeps any snapshot taken by an in-flight
			// Emit intact.
			next := make([]*subscription, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, sub.event)
			} else {
				b.subs[sub.event] = next
			}
			return
		}
	}
}

// Emit dispatches an event to a snapshot of the current subscriber list.
// Handlers added or removed during the dispatch do not affect the
// current pass. A panicking handler is logged and skipped; remaining
// handlers still run.
func (b *Bus) Emit(event string, payload expr.Value) {
	snapshot := b.subs[event]

	for _, sub := range snapshot {
		// Once-subscriptions are removed before delivery so a handler
		// re-emitting the same event cannot trigger them twice.
		if sub.once {
			b.remove(sub)
		}
		b.dispatch(event, sub, payload)
	}
}

func (b *Bus) dispatch(event string, sub *subscription, payload expr.Value) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", event,
				"panic", r)
		}
	}()
	sub.handler(payload)
}

// SubscriberCount returns the number of live subscriptions for an event.
func (b *Bus) SubscriberCount(event string) int {
	return len(b.subs[event])
}

// Clear removes all subscriptions for an event, or every subscription
// when event is empty. Intended for test isolation.
func (b *Bus) Clear(event string) {
	if event == "" {
		b.subs = make(map[string][]*subscription)
		return
	}
	delete(b.subs, event)
}
