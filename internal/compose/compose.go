// Package compose materializes slot content into rendered node trees.
//
// The composer consumes slot store content, looks the content's pattern
// type up in an externally supplied registry, and recursively resolves
// nested pattern children depth-first before handing each node to its
// renderer. Unknown pattern types produce a visible fallback placeholder
// and never abort the surrounding tree.
//
// The composer is placement-agnostic: whether a slot renders inline, in
// a portal or at a fixed screen position is a property of how the
// caller wires the slot id, carried as metadata on delivered updates.
package compose

import (
	"log/slog"

	"github.com/almadar-io/orbital/internal/expr"
	"github.com/almadar-io/orbital/internal/slots"
)

// Renderer is one pattern type's rendering capability, registered in
// the registry at startup. One variant per pattern type.
type Renderer interface {
	// AcceptsChildren reports whether the pattern type supports nested
	// pattern children. When false, props children are ignored.
	AcceptsChildren() bool

	// Render materializes the node given its props and the outputs of
	// its already-composed children. The output is opaque to the
	// composer; a concrete host decides what a rendered fragment is.
	Render(props expr.Object, children []any) any
}

// Registry maps pattern-type names to renderers. The fallback renderer
// serves every unknown type.
type Registry struct {
	renderers map[string]Renderer
	fallback  Renderer
}

// NewRegistry creates a registry with the default fallback placeholder.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
		fallback:  fallbackRenderer{},
	}
}

// Register binds a pattern type to its renderer. Re-registering a type
// replaces the previous renderer.
func (r *Registry) Register(pattern string, renderer Renderer) {
	r.renderers[pattern] = renderer
}

// Lookup returns the renderer for a pattern type.
func (r *Registry) Lookup(pattern string) (Renderer, bool) {
	renderer, ok := r.renderers[pattern]
	return renderer, ok
}

// SetFallback replaces the fallback renderer used for unknown types.
func (r *Registry) SetFallback(renderer Renderer) {
	r.fallback = renderer
}

// Placeholder is the default fallback output for an unknown pattern
// type: visible, inert, and safe to render anywhere.
type Placeholder struct {
	Pattern string
}

type fallbackRenderer struct{}

func (fallbackRenderer) AcceptsChildren() bool { return false }

func (fallbackRenderer) Render(props expr.Object, children []any) any {
	return Placeholder{Pattern: expr.ToString(props.Field("pattern"))}
}

// Node is one materialized pattern node.
type Node struct {
	// Pattern is the pattern type that was dispatched.
	Pattern string

	// Props are the node's properties as received.
	Props expr.Object

	// Fallback marks a node rendered by the fallback placeholder
	// because its type was unknown or its shape invalid.
	Fallback bool

	// Children are the composed child nodes, in array order.
	Children []*Node

	// Output is the renderer's product for this node.
	Output any
}

// Composer dispatches slot content through a registry.
type Composer struct {
	registry *Registry
	logger   *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger for fallback diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// New creates a composer over a registry.
func New(registry *Registry, opts ...Option) *Composer {
	c := &Composer{registry: registry}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Compose materializes slot content into a node tree. Children resolve
// depth-first, siblings in array order, so a renderer receives its
// children fully composed and never needs to know their types.
func (c *Composer) Compose(content slots.Content) *Node {
	node := PatternNode{
		Type:     content.Pattern,
		Props:    content.Props,
		Children: DecodeChildren(content.Props),
	}
	return c.composeNode(node)
}

func (c *Composer) composeNode(pn PatternNode) *Node {
	renderer, known := c.registry.Lookup(pn.Type)
	if !known || pn.Type == "" {
		c.logger.Warn("unknown pattern type, rendering placeholder",
			"pattern", pn.Type)
		return c.fallbackNode(pn)
	}

	node := &Node{Pattern: pn.Type, Props: pn.Props}

	var childOutputs []any
	if renderer.AcceptsChildren() {
		for _, child := range pn.Children {
			composed := c.composeNode(child)
			node.Children = append(node.Children, composed)
			childOutputs = append(childOutputs, composed.Output)
		}
	}

	node.Output = renderer.Render(pn.Props, childOutputs)
	return node
}

func (c *Composer) fallbackNode(pn PatternNode) *Node {
	props := expr.Object{"pattern": expr.String(pn.Type)}
	return &Node{
		Pattern:  pn.Type,
		Props:    pn.Props,
		Fallback: true,
		Output:   c.registry.fallback.Render(props, nil),
	}
}

// Placement classifies how a host mounts a slot's output. The composer
// never interprets these; they ride along on updates.
type Placement string

const (
	// PlacementInline renders into document flow.
	PlacementInline Placement = "inline"

	// PlacementPortal renders detached: overlays, toasts, dialogs.
	PlacementPortal Placement = "portal"

	// PlacementFixed renders at a fixed screen position (HUD).
	PlacementFixed Placement = "fixed"
)

// ContentDigest computes the content-addressed id of slot content under
// the slot hash domain. Equal content hashes to the same digest across
// processes, so a host can compare digests to skip redundant re-renders.
func ContentDigest(content slots.Content) (string, error) {
	obj := expr.Object{
		"id":      expr.String(content.ID),
		"pattern": expr.String(content.Pattern),
	}
	if content.Props != nil {
		obj["props"] = content.Props
	}
	if content.Priority != nil {
		obj["priority"] = expr.Number(*content.Priority)
	}
	if content.SourceTrait != "" {
		obj["source_trait"] = expr.String(content.SourceTrait)
	}
	return expr.ContentID(expr.DomainSlot, obj)
}

// Update is one delivered slot change: the composed tree, or a nil
// Node when the slot was cleared.
type Update struct {
	Slot      string
	Placement Placement

	// Digest is the content-addressed id of the slot content that
	// produced this update. Empty on clear.
	Digest string

	Node *Node
}

// Sink receives composed updates.
type Sink func(Update)

// Binder connects a slot store to a composer: every store change is
// composed and delivered to the sink, closing the render half of the
// circuit.
type Binder struct {
	composer   *Composer
	placements map[string]Placement
}

// NewBinder creates a binder over a composer.
func NewBinder(composer *Composer) *Binder {
	return &Binder{
		composer:   composer,
		placements: make(map[string]Placement),
	}
}

// Wire assigns a placement class to a slot id. Unwired slots deliver
// as inline.
func (b *Binder) Wire(slot string, placement Placement) {
	b.placements[slot] = placement
}

// PlacementFor returns the placement class wired for a slot.
func (b *Binder) PlacementFor(slot string) Placement {
	if p, ok := b.placements[slot]; ok {
		return p
	}
	return PlacementInline
}

// Attach subscribes the binder to a slot store. Returns the
// unsubscribe function.
func (b *Binder) Attach(store *slots.Store, sink Sink) func() {
	return store.Subscribe(func(id string, content *slots.Content) {
		update := Update{Slot: id, Placement: b.PlacementFor(id)}
		if content != nil {
			update.Node = b.composer.Compose(*content)
			digest, err := ContentDigest(*content)
			if err != nil {
				b.composer.logger.Warn("slot content not hashable",
					"slot", id, "error", err)
			}
			update.Digest = digest
		}
		sink(update)
	})
}
