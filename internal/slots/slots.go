// Package slots provides the named-slot content registry. A slot is a
// named UI region whose content is set by the render-ui effect and
// consumed by the composer.
//
// Each slot holds at most one content value. Set fully replaces prior
// content; there is no merge. The Priority field on content is
// informational metadata for the consumer - the store never uses it to
// arbitrate between writers, last write wins.
//
// Like the bus, the store is single-threaded: listener notification runs
// synchronously on the caller's stack after the internal map is
// committed, and listeners may re-enter the store.
package slots

import "github.com/almadar-io/orbital/internal/expr"

// Content is the value held by a slot.
type Content struct {
	// ID is the slot name the content was written to.
	ID string `json:"id"`

	// Pattern names the abstract UI node type to render, resolved
	// against the pattern registry by the composer.
	Pattern string `json:"pattern"`

	// Props carries the pattern's properties. Props["children"], when
	// present, is a list of nested pattern nodes consumed recursively
	// by the composer.
	Props expr.Object `json:"props,omitempty"`

	// Priority is informational metadata forwarded to the consumer.
	// Nil when the render-ui call carried no priority.
	Priority *float64 `json:"priority,omitempty"`

	// SourceTrait names the trait whose effect produced this content,
	// when known. Diagnostic only.
	SourceTrait string `json:"source_trait,omitempty"`
}

// Listener observes slot changes. content is nil when the slot was
// cleared.
type Listener func(id string, content *Content)

// Store maps slot names to their current content and notifies
// subscribers on every change.
type Store struct {
	slots     map[string]Content
	listeners []*listenerEntry
}

type listenerEntry struct {
	fn Listener
}

// NewStore creates an empty slot store.
func NewStore() *Store {
	return &Store{slots: make(map[string]Content)}
}

// Set replaces the content of a slot and notifies subscribers once,
// after the map update is committed. The content's ID field is forced
// to the given slot id.
func (s *Store) Set(id string, content Content) {
	content.ID = id
	s.slots[id] = content
	s.notify(id, &content)
}

// Clear empties a slot and notifies subscribers. Clearing an already
// empty slot still notifies: a clear signal is a distinct event, not a
// state diff.
func (s *Store) Clear(id string) {
	delete(s.slots, id)
	s.notify(id, nil)
}

// Get returns the current content of a slot. ok is false when the slot
// is empty.
func (s *Store) Get(id string) (Content, bool) {
	content, ok := s.slots[id]
	return content, ok
}

// Slots returns the ids of all non-empty slots, unordered.
func (s *Store) Slots() []string {
	ids := make([]string, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	return ids
}

// Subscribe registers a change listener and returns an unsubscribe
// function. Listeners run synchronously in registration order.
func (s *Store) Subscribe(fn Listener) func() {
	entry := &listenerEntry{fn: fn}
	s.listeners = append(s.listeners, entry)
	return func() {
		for i, e := range s.listeners {
			if e == entry {
				next := make([]*listenerEntry, 0, len(s.listeners)-1)
				next = append(next, s.listeners[:i]...)
				next = append(next, s.listeners[i+1:]...)
				s.listeners = next
				return
			}
		}
	}
}

// notify runs all listeners against a snapshot, so a listener that
// subscribes or unsubscribes re-entrantly does not affect this pass.
func (s *Store) notify(id string, content *Content) {
	snapshot := s.listeners
	for _, entry := range snapshot {
		entry.fn(id, content)
	}
}
