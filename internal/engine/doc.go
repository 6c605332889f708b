// Package engine implements the Orbital expression evaluator and effect
// executor.
//
// The engine is the heart of the core: it resolves layered data
// bindings, evaluates pure expressions, and executes the closed set of
// side-effecting forms (set, emit, persist, navigate, notify, spawn,
// despawn, call-service, render-ui) through an injected handler bag.
//
// ARCHITECTURE:
//
// Single-threaded, synchronous execution:
// All evaluation, effect execution, bus dispatch and slot mutation
// happen on the call stack of whatever external event triggered them.
// There is no parallelism inside the core. The only asynchronous
// operations are persist and call-service, which are launched on their
// own goroutine and never awaited (fire and forget).
//
// Two error policies coexist:
//
// Pure evaluation errors (unknown operator, malformed expression shape)
// are fatal to that evaluation call - they indicate an authoring error
// that must not be tolerated silently. They surface as *EvalError.
//
// Effect execution errors (missing handler, handler panic, async
// failure) are non-fatal - logged and swallowed, because the evaluator
// must keep running in degraded environments: tests, previews, hosts
// with no live UI.
//
// Binding resolution failures are not errors at all; they resolve to
// undefined and any meaning of "missing" is deferred to the operator
// consuming the value.
package engine
