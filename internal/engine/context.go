package engine

import (
	"context"
	"log/slog"

	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/query"
	"github.com/almadar-io/orbital/internal/slots"
)

// Capabilities is the effect handler bag: one optional callback per
// effect form. Each field is independently optional - a nil field is a
// valid, expected runtime configuration (evaluating outside a live UI),
// and executing the corresponding effect then logs a warning and does
// nothing.
type Capabilities struct {
	// MutateEntity applies field mutations to the focused entity.
	// Keys are dot paths relative to the entity root ("count",
	// "profile.name").
	MutateEntity func(fields map[string]expr.Value)

	// Emit publishes an event. Wired to bus.Emit in a live host; the
	// executor forwards event keys prefixless.
	Emit func(event string, payload expr.Value)

	// Persist writes to durable storage. Asynchronous: launched on its
	// own goroutine and never awaited. action is one of "create",
	// "update", "delete"; entityID is the ambient focused entity id.
	Persist func(ctx context.Context, action, entityID string, data expr.Value) error

	// Navigate requests a route change.
	Navigate func(route string, params expr.Value)

	// Notify surfaces a user-facing message.
	Notify func(message, severity string)

	// Spawn creates a new domain entity.
	Spawn func(kind string, props expr.Value)

	// Despawn removes a domain entity by id.
	Despawn func(id string)

	// CallService invokes an external service method. Asynchronous,
	// fire-and-forget like Persist.
	CallService func(ctx context.Context, service, method string, params expr.Value) error

	// RenderUI writes slot content. A nil content is the distinct
	// clear-slot signal. Wired to the slot store in a live host.
	RenderUI func(slot string, content *slots.Content)
}

// Context is the read-only bag a caller assembles per evaluation. It is
// constructed fresh per evaluation; the engine never retains one.
//
// Entity mutation through the set effect goes through the MutateEntity
// capability, never through direct writes to the Entity object here.
type Context struct {
	// Entity is the currently focused domain object.
	Entity expr.Object

	// User is the authenticated user, when present.
	User expr.Object

	// FormValues holds live form field values, resolved via @form.
	FormValues expr.Object

	// Globals and Locals are the global and local variable layers.
	Globals expr.Object
	Locals  expr.Object

	// Payload is the triggering event's payload, resolved via @payload.
	Payload expr.Value

	// EntityID identifies the focused entity for persist and despawn
	// defaults.
	EntityID string

	// SourceTrait names the trait whose program is being evaluated.
	// Stamped onto rendered slot content for diagnostics.
	SourceTrait string

	// Queries is the host-owned query-singleton registry. Optional;
	// @query:* bindings resolve to undefined when nil.
	Queries *query.Registry

	// Caps is the effect handler bag.
	Caps Capabilities

	// Trace, when non-nil, records every executed effect.
	Trace *Trace

	// Logger receives degraded-mode warnings and async effect
	// failures. Defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// warnMissing is the single missing-capability path: every effect form
// funnels its degraded-mode warning through here.
func (c *Context) warnMissing(effect, capability string) {
	c.logger().Warn("effect handler missing, skipping",
		"effect", effect,
		"capability", capability)
}
