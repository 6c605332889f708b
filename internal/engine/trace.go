package engine

import (
	"sync/atomic"

	"github.com/almadar-io/orbital/internal/expr"
)

// Trace is an inspectable log of executed effects. The executor records
// every effect it dispatches - including ones skipped for a missing
// capability - so a host can observe what a program did past the
// fire-and-forget boundary.
//
// Ordering uses a monotonic seq counter, never wall-clock timestamps:
// two traces of the same program over the same context are identical,
// which is what golden comparison relies on.
type Trace struct {
	seq     atomic.Int64
	records []Record
}

// Record is one executed effect.
type Record struct {
	// ID is a content-addressed hash of the record (kind, detail, seq).
	ID string `json:"id"`

	// Seq is the record's position in the trace, starting at 1.
	Seq int64 `json:"seq"`

	// Kind is the effect form: set, emit, persist, navigate, notify,
	// spawn, despawn, call-service, render-ui.
	Kind string `json:"kind"`

	// Detail holds the effect's resolved arguments.
	Detail expr.Object `json:"detail"`
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{}
}

// Record appends an effect record and returns it.
func (t *Trace) Record(kind string, detail expr.Object) Record {
	rec := Record{
		Seq:    t.seq.Add(1),
		Kind:   kind,
		Detail: detail,
	}
	rec.ID = recordID(rec)
	t.records = append(t.records, rec)
	return rec
}

// Records returns the recorded effects in execution order.
func (t *Trace) Records() []Record {
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of recorded effects.
func (t *Trace) Len() int {
	return len(t.records)
}

// Value renders the trace as a value for serialization and golden
// comparison. Undefined detail fields are dropped: they have no wire
// form.
func (t *Trace) Value() expr.Value {
	list := make(expr.List, len(t.records))
	for i, rec := range t.records {
		list[i] = rec.value()
	}
	return list
}

func (rec Record) value() expr.Object {
	detail := make(expr.Object, len(rec.Detail))
	for k, v := range rec.Detail {
		if v == nil {
			continue
		}
		detail[k] = v
	}
	return expr.Object{
		"id":     expr.String(rec.ID),
		"seq":    expr.Number(rec.Seq),
		"kind":   expr.String(rec.Kind),
		"detail": detail,
	}
}

// recordID computes the content-addressed ID for a record. A detail
// that cannot be canonically marshaled (it never should be) degrades to
// an empty ID rather than failing the effect.
func recordID(rec Record) string {
	id, err := expr.ContentID(expr.DomainEffect, expr.Object{
		"seq":    expr.Number(rec.Seq),
		"kind":   expr.String(rec.Kind),
		"detail": dropUndefined(rec.Detail),
	})
	if err != nil {
		return ""
	}
	return id
}

func dropUndefined(obj expr.Object) expr.Object {
	out := make(expr.Object, len(obj))
	for k, v := range obj {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// record forwards to the context's trace when one is attached.
func (c *Context) record(kind string, detail expr.Object) {
	if c.Trace == nil {
		return
	}
	c.Trace.Record(kind, detail)
}
