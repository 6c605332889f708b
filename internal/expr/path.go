package expr

import (
	"slices"
	"strings"
)

// SetField writes a value into nested objects under a dot path,
// creating intermediate objects as needed. A non-object intermediate is
// replaced - the mutation key wins. This is the write-side counterpart
// of binding resolution's field walk; the set and set-dynamic effects
// produce keys in exactly this form.
func SetField(obj Object, path string, v Value) {
	for {
		head, rest, found := strings.Cut(path, ".")
		if !found {
			obj[head] = v
			return
		}
		next, ok := obj[head].(Object)
		if !ok {
			next = Object{}
			obj[head] = next
		}
		obj = next
		path = rest
	}
}

// ApplyFields applies a mutation map (dot-path key -> value) to an
// object, in sorted key order for determinism.
func ApplyFields(obj Object, fields map[string]Value) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	// Sorted application keeps sibling-path writes deterministic.
	slices.Sort(keys)
	for _, k := range keys {
		SetField(obj, k, fields[k])
	}
}
