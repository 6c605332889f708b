package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Value is a sealed interface representing runtime values flowing through
// the evaluator: null, string, number, bool, list, object.
//
// The ABSENCE of a value ("undefined") is represented by a nil Value.
// Null{} is an explicit null literal and is distinct from undefined:
// a binding to a missing field resolves to nil, a binding to a field
// holding JSON null resolves to Null{}.
type Value interface {
	value() // Sealed - only the types below implement it
}

// Null represents an explicit null value.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) value() {}

// Number represents a numeric value. All numbers are float64; authored
// integers survive round-trips because the JSON codec prints integral
// floats without a fraction.
type Number float64

func (Number) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered list of values.
type List []Value

func (List) value() {}

// Object represents a map of string keys to values.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Field returns the named field of an object, or nil (undefined) when the
// field is absent. A nil Object is treated as empty.
func (obj Object) Field(name string) Value {
	if obj == nil {
		return nil
	}
	return obj[name]
}

// SortedKeys returns the object's keys in lexicographic order.
// Canonical serialization applies its own UTF-16 ordering; this is for
// plain deterministic iteration (logging, text output).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// FromGo converts a decoded-JSON/YAML style Go value (nil, bool, string,
// numbers, []any, map[string]any) into a Value. Unknown types are
// stringified rather than rejected: authored documents are loosely typed
// and the evaluator's coercions are total.
func FromGo(v any) Value {
	switch val := v.(type) {
	case nil:
		return Null{}
	case Value:
		return val
	case bool:
		return Bool(val)
	case string:
		return String(val)
	case float64:
		return Number(val)
	case float32:
		return Number(val)
	case int:
		return Number(val)
	case int64:
		return Number(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return String(val.String())
		}
		return Number(f)
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			list[i] = FromGo(elem)
		}
		return list
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			obj[k] = FromGo(elem)
		}
		return obj
	case map[any]any:
		// yaml.v3 can produce this shape for untyped mappings.
		obj := make(Object, len(val))
		for k, elem := range val {
			obj[fmt.Sprint(k)] = FromGo(elem)
		}
		return obj
	default:
		return String(fmt.Sprint(val))
	}
}

// ToGo converts a Value back into plain Go types (nil, bool, string,
// float64, []any, map[string]any). Undefined (nil Value) maps to nil,
// same as Null.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality of two values.
// Undefined equals undefined and equals nothing else; in particular
// undefined != null, mirroring the resolver's missing-field semantics.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, exists := bv[k]
			if !exists || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (list *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*list = make(List, len(raw))
	for i, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("list index %d: %w", i, err)
		}
		(*list)[i] = val
	}
	return nil
}

// UnmarshalValue decodes a JSON value into the appropriate Value type.
// JSON null decodes to Null{}, never to a nil Value: undefined has no
// wire representation.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var list List
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil

	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return Number(f), nil
	}
}

// MarshalValue marshals a Value to JSON bytes.
// Undefined (nil) marshals as null; the distinction is an in-memory
// concern only.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Number:
		return marshalNumber(float64(val)), nil
	case Bool:
		return json.Marshal(bool(val))
	case List:
		return marshalList(val)
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// MarshalJSON implements json.Marshaler for Object with sorted keys,
// so logged and golden output is deterministic.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for List.
func (list List) MarshalJSON() ([]byte, error) {
	return marshalList(list)
}

func marshalList(list List) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// marshalNumber prints integral floats without a fraction so authored
// integers round-trip as integers.
func marshalNumber(f float64) []byte {
	if f == float64(int64(f)) {
		return []byte(fmt.Sprintf("%d", int64(f)))
	}
	b, _ := json.Marshal(f)
	return b
}

// formatValue renders a value for log lines and error messages.
func formatValue(v Value) string {
	b, err := MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return string(b)
}

// Format renders a value as compact JSON for diagnostics.
// Undefined renders as "undefined" to keep it distinguishable from null.
func Format(v Value) string {
	if v == nil {
		return "undefined"
	}
	return formatValue(v)
}

// TypeName returns the tag name of a value for error messages:
// "undefined", "null", "string", "number", "bool", "list", "object".
func TypeName(v Value) string {
	switch v.(type) {
	case nil:
		return "undefined"
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case List:
		return "list"
	case Object:
		return "object"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "expr.")
	}
}
