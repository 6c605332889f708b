package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/almadar-io/orbital/internal/engine"
	"github.com/almadar-io/orbital/internal/expr"
)

// check evaluates one assertion against a run result.
func check(a Assertion, result *Result) error {
	switch a.Type {
	case "trace_contains":
		return assertTraceContains(a, result.Trace.Records())
	case "trace_count":
		return assertTraceCount(a, result.Trace.Records())
	case "entity_field":
		return assertEntityField(a, result.Entity)
	case "slot_content":
		return assertSlotContent(a, result)
	case "slot_empty":
		return assertSlotEmpty(a, result)
	case "persisted_count":
		return assertPersistedCount(a, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains passes when some effect of the given kind has
// the expected detail as a subset.
func assertTraceContains(a Assertion, records []engine.Record) error {
	expected, _ := expr.FromGo(a.Detail).(expr.Object)
	for _, rec := range records {
		if rec.Kind != a.Kind {
			continue
		}
		if matchSubset(expected, rec.Detail) {
			return nil
		}
	}
	return fmt.Errorf("no %s effect matching %s in %d records",
		a.Kind, expr.Format(expected), len(records))
}

func assertTraceCount(a Assertion, records []engine.Record) error {
	if a.Count == nil {
		return fmt.Errorf("trace_count needs a count")
	}
	n := 0
	for _, rec := range records {
		if a.Kind == "" || rec.Kind == a.Kind {
			n++
		}
	}
	if n != *a.Count {
		return fmt.Errorf("expected %d %s effects, got %d", *a.Count, a.Kind, n)
	}
	return nil
}

func assertEntityField(a Assertion, entity expr.Object) error {
	actual := walkPath(entity, a.Field)
	expected := expr.FromGo(a.Value)
	if !expr.Equal(actual, expected) {
		return fmt.Errorf("entity.%s is %s, expected %s",
			a.Field, expr.Format(actual), expr.Format(expected))
	}
	return nil
}

func assertSlotContent(a Assertion, result *Result) error {
	content, ok := result.Slots.Get(a.Slot)
	if !ok {
		return fmt.Errorf("slot %q is empty", a.Slot)
	}
	if a.Pattern != "" && content.Pattern != a.Pattern {
		return fmt.Errorf("slot %q holds pattern %q, expected %q",
			a.Slot, content.Pattern, a.Pattern)
	}
	if expected, ok := expr.FromGo(a.Detail).(expr.Object); ok && len(expected) > 0 {
		if !matchSubset(expected, content.Props) {
			return fmt.Errorf("slot %q props %s do not contain %s",
				a.Slot, expr.Format(content.Props), expr.Format(expected))
		}
	}
	return nil
}

// assertPersistedCount checks the repository, not the in-memory trace:
// it runs after the harness has drained in-flight persist effects.
func assertPersistedCount(a Assertion, result *Result) error {
	if a.Count == nil {
		return fmt.Errorf("persisted_count needs a count")
	}
	ents, err := result.repo.List(context.Background(), a.Kind)
	if err != nil {
		return fmt.Errorf("list %q entities: %w", a.Kind, err)
	}
	if len(ents) != *a.Count {
		return fmt.Errorf("repository holds %d %q entities, expected %d",
			len(ents), a.Kind, *a.Count)
	}
	return nil
}

func assertSlotEmpty(a Assertion, result *Result) error {
	if content, ok := result.Slots.Get(a.Slot); ok {
		return fmt.Errorf("slot %q holds pattern %q, expected empty",
			a.Slot, content.Pattern)
	}
	return nil
}

// matchSubset reports whether every field of expected equals the
// corresponding field of actual. Nested objects match recursively with
// the same subset semantics; everything else matches by deep equality.
func matchSubset(expected, actual expr.Object) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok {
			return false
		}
		if wantObj, isObj := want.(expr.Object); isObj {
			gotObj, ok := got.(expr.Object)
			if !ok || !matchSubset(wantObj, gotObj) {
				return false
			}
			continue
		}
		if !expr.Equal(want, got) {
			return false
		}
	}
	return true
}

// walkPath follows a dot path through nested objects, mirroring the
// resolver's read semantics.
func walkPath(obj expr.Object, path string) expr.Value {
	if path == "" {
		return obj
	}
	var v expr.Value = obj
	for {
		head, rest, found := strings.Cut(path, ".")
		cur, ok := v.(expr.Object)
		if !ok {
			return nil
		}
		v = cur.Field(head)
		if !found {
			return v
		}
		path = rest
	}
}
