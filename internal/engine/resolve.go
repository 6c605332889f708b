package engine

import (
	"strings"

	"github.com/almadar-io/orbital/internal/expr"
)

// Resolve maps a binding path (without the "@" marker) to a value in
// the layered context.
//
// Grammar: namespace (`.` field)*, where namespace is one of
// entity | user | form | global | local | payload | query:<name>.
//
// Resolution walks the named root, then nested object fields. Any
// failure - unknown namespace, malformed path, missing intermediate
// field - yields undefined (nil), never an error. Resolution has no
// side effects: referencing @query:x does not materialize query x.
func Resolve(path string, ctx *Context) expr.Value {
	if path == "" {
		return nil
	}

	segments := strings.Split(path, ".")
	root, ok := resolveRoot(segments[0], ctx)
	if !ok {
		return nil
	}
	return walk(root, segments[1:])
}

// resolveRoot maps the first path segment to its context layer.
func resolveRoot(ns string, ctx *Context) (expr.Value, bool) {
	if name, isQuery := strings.CutPrefix(ns, "query:"); isQuery {
		if name == "" || ctx.Queries == nil {
			return nil, false
		}
		state, ok := ctx.Queries.Lookup(name)
		if !ok {
			// Unreferenced queries read as an empty state, not as an
			// unknown namespace.
			return expr.Object{}, true
		}
		return state.Value(), true
	}

	switch ns {
	case "entity":
		return ctx.Entity, true
	case "user":
		return ctx.User, true
	case "form":
		return ctx.FormValues, true
	case "global":
		return ctx.Globals, true
	case "local":
		return ctx.Locals, true
	case "payload":
		return ctx.Payload, true
	default:
		return nil, false
	}
}

// walk follows nested field accesses. A missing or non-object
// intermediate yields undefined.
func walk(v expr.Value, fields []string) expr.Value {
	for _, field := range fields {
		if field == "" {
			// Malformed path ("entity..x", trailing dot).
			return nil
		}
		obj, ok := v.(expr.Object)
		if !ok {
			return nil
		}
		v = obj.Field(field)
	}
	return v
}

// ResolveDeep resolves "@" binding strings embedded anywhere in a value:
// strings are resolved when they carry the marker, lists and objects are
// rebuilt with each element resolved. Everything else passes through.
// Used for effect props and persist payloads, where authored documents
// mix literal data with bindings.
func ResolveDeep(v expr.Value, ctx *Context) expr.Value {
	switch val := v.(type) {
	case expr.String:
		if path, ok := strings.CutPrefix(string(val), "@"); ok {
			return Resolve(path, ctx)
		}
		return val
	case expr.List:
		out := make(expr.List, len(val))
		for i, elem := range val {
			out[i] = ResolveDeep(elem, ctx)
		}
		return out
	case expr.Object:
		out := make(expr.Object, len(val))
		for k, elem := range val {
			out[k] = ResolveDeep(elem, ctx)
		}
		return out
	default:
		return v
	}
}
