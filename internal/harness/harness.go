// Package harness provides a conformance testing framework for the
// Orbital effect core.
//
// A scenario wires a real handler bag - in-memory entity state, a live
// event bus, a live slot store, and an in-memory SQLite repository for
// persistence - then dispatches its events through a trait program and
// asserts over the recorded effect trace and final state. Traces are
// deterministic (logical seq ordering, fixed entity ids, canonical
// JSON), which is what golden comparison relies on.
package harness

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/almadar-io/orbital/internal/bus"
	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/program"
	"github.com/almadar-io/orbital/internal/query"
	"github.com/almadar-io/orbital/internal/slots"
	"github.com/almadar-io/orbital/internal/store"
	"github.com/almadar-io/orbital/internal/testutil"
)

// Result is the outcome of one scenario run.
type Result struct {
	ScenarioName string

	// Responses holds the per-step dispatch responses, in step order.
	Responses []engine.Response

	// Trace is the accumulated effect trace across all steps.
	Trace *engine.Trace

	// Entity is the final entity state after all mutations.
	Entity expr.Object

	// Slots is the final slot store.
	Slots *slots.Store

	// Failures holds assertion failure messages. Empty means pass.
	Failures []string

	// repo is the run's repository, valid while assertions execute.
	repo *store.Store
}

// Pass reports whether every assertion held.
func (r *Result) Pass() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario. baseDir resolves the scenario's relative
// program path.
//
// Each run gets a fresh in-memory repository, bus, slot store and
// query registry for isolation. The persist capability is backed by
// SQLite via store.Bind; spawned entities get fixed sequential ids so
// traces stay reproducible.
func Run(scenario *Scenario, baseDir string) (*Result, error) {
	prog, err := program.Load(filepath.Join(baseDir, scenario.Program))
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("scenario %q: open store: %w", scenario.Name, err)
	}
	defer st.Close()
	st.SetIDGenerator(store.NewFixedGenerator("spawned"))

	logger := testutil.DiscardLogger()
	eventBus := bus.New(bus.WithLogger(logger))
	slotStore := slots.NewStore()

	entity, _ := expr.FromGo(scenario.Entity).(expr.Object)
	if entity == nil {
		entity = expr.Object{}
	}

	caps := engine.Capabilities{
		MutateEntity: func(fields map[string]expr.Value) {
			expr.ApplyFields(entity, fields)
		},
		Emit: eventBus.Emit,
		RenderUI: func(slot string, content *slots.Content) {
			if content == nil {
				slotStore.Clear(slot)
				return
			}
			slotStore.Set(slot, *content)
		},
	}
	st.Bind(&caps, logger)

	// Persist runs fire-and-forget on its own goroutine. Signal each
	// completion so the run can drain in-flight writes before asserting
	// over repository state or closing the store.
	persistDone := make(chan struct{}, 64)
	boundPersist := caps.Persist
	caps.Persist = func(ctx context.Context, action, entityID string, data expr.Value) error {
		defer func() { persistDone <- struct{}{} }()
		return boundPersist(ctx, action, entityID, data)
	}

	trace := engine.NewTrace()
	result := &Result{
		ScenarioName: scenario.Name,
		Trace:        trace,
		Slots:        slotStore,
		repo:         st,
	}

	for _, step := range scenario.Steps {
		ctx := engine.Context{
			Entity:   entity,
			EntityID: scenario.EntityID,
			Queries:  query.NewRegistry(),
			Caps:     caps,
			Trace:    trace,
			Logger:   logger,
		}
		resp := engine.Dispatch(prog, engine.Request{
			Event:    step.Event,
			Payload:  expr.FromGo(step.Payload),
			EntityID: scenario.EntityID,
		}, ctx)
		result.Responses = append(result.Responses, resp)

		if !resp.Success {
			result.Failures = append(result.Failures,
				fmt.Sprintf("step %q: dispatch failed: %s", step.Event, resp.Error))
		}
	}

	result.Entity = entity

	// One trace record per launched persist; wait for all of them.
	pending := 0
	for _, rec := range trace.Records() {
		if rec.Kind == "persist" {
			pending++
		}
	}
	deadline := time.After(5 * time.Second)
drain:
	for i := 0; i < pending; i++ {
		select {
		case <-persistDone:
		case <-deadline:
			result.Failures = append(result.Failures,
				fmt.Sprintf("%d persist effect(s) still pending after 5s", pending-i))
			break drain
		}
	}

	for i, assertion := range scenario.Assertions {
		if err := check(assertion, result); err != nil {
			result.Failures = append(result.Failures,
				fmt.Sprintf("assertion %d (%s): %v", i, assertion.Type, err))
		}
	}

	return result, nil
}
