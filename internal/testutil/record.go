// Package testutil provides deterministic helpers for engine and
// harness tests: a recording handler bag and a discard logger.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/slots"
)

// DiscardLogger returns a logger that drops everything. Suppresses the
// effect layer's degraded-mode warnings in tests that trigger them on
// purpose.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// EmittedEvent is one recorded emit call.
type EmittedEvent struct {
	Event   string
	Payload expr.Value
}

// PersistCall is one recorded persist call.
type PersistCall struct {
	Action   string
	EntityID string
	Data     expr.Value
}

// ServiceCall is one recorded call-service call.
type ServiceCall struct {
	Service string
	Method  string
	Params  expr.Value
}

// Navigation is one recorded navigate call.
type Navigation struct {
	Route  string
	Params expr.Value
}

// Notification is one recorded notify call.
type Notification struct {
	Message  string
	Severity string
}

// SpawnCall is one recorded spawn call.
type SpawnCall struct {
	Kind  string
	Props expr.Value
}

// RenderCall is one recorded render-ui call. Content is nil for the
// clear signal.
type RenderCall struct {
	Slot    string
	Content *slots.Content
}

// Recorder is a full handler bag that records every call. The async
// capabilities (persist, call-service) signal a channel so tests can
// wait for fire-and-forget completion; the mutex guards their slices,
// everything else is single-threaded.
type Recorder struct {
	mu sync.Mutex

	Mutations     []map[string]expr.Value
	Events        []EmittedEvent
	Persists      []PersistCall
	Navigations   []Navigation
	Notifications []Notification
	Spawns        []SpawnCall
	Despawns      []string
	Services      []ServiceCall
	Renders       []RenderCall

	asyncDone chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{asyncDone: make(chan struct{}, 64)}
}

// Capabilities returns a handler bag recording into the receiver.
func (r *Recorder) Capabilities() engine.Capabilities {
	return engine.Capabilities{
		MutateEntity: func(fields map[string]expr.Value) {
			r.Mutations = append(r.Mutations, fields)
		},
		Emit: func(event string, payload expr.Value) {
			r.Events = append(r.Events, EmittedEvent{Event: event, Payload: payload})
		},
		Persist: func(_ context.Context, action, entityID string, data expr.Value) error {
			r.mu.Lock()
			r.Persists = append(r.Persists, PersistCall{Action: action, EntityID: entityID, Data: data})
			r.mu.Unlock()
			r.asyncDone <- struct{}{}
			return nil
		},
		Navigate: func(route string, params expr.Value) {
			r.Navigations = append(r.Navigations, Navigation{Route: route, Params: params})
		},
		Notify: func(message, severity string) {
			r.Notifications = append(r.Notifications, Notification{Message: message, Severity: severity})
		},
		Spawn: func(kind string, props expr.Value) {
			r.Spawns = append(r.Spawns, SpawnCall{Kind: kind, Props: props})
		},
		Despawn: func(id string) {
			r.Despawns = append(r.Despawns, id)
		},
		CallService: func(_ context.Context, service, method string, params expr.Value) error {
			r.mu.Lock()
			r.Services = append(r.Services, ServiceCall{Service: service, Method: method, Params: params})
			r.mu.Unlock()
			r.asyncDone <- struct{}{}
			return nil
		},
		RenderUI: func(slot string, content *slots.Content) {
			r.Renders = append(r.Renders, RenderCall{Slot: slot, Content: content})
		},
	}
}

// WaitAsync blocks until n async effect calls (persist, call-service)
// have completed, failing the test after a timeout.
func (r *Recorder) WaitAsync(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.asyncDone:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for async effect %d of %d", i+1, n)
		}
	}
}

// PersistCalls returns a copy of the recorded persist calls.
func (r *Recorder) PersistCalls() []PersistCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PersistCall, len(r.Persists))
	copy(out, r.Persists)
	return out
}

// ServiceCalls returns a copy of the recorded call-service calls.
func (r *Recorder) ServiceCalls() []ServiceCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ServiceCall, len(r.Services))
	copy(out, r.Services)
	return out
}
