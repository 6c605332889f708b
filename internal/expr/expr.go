package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Expr is a sealed interface over the three expression shapes: a literal
// value, a binding path, or an operator call. Expression trees are
// immutable - the evaluator never mutates them.
//
// Wire format (JSON):
//
//	["set", "@entity.count", 5, "increment"]   -> Call
//	"@entity.count"                            -> Binding
//	"hello", 5, true, null, {...}              -> Lit
//
// A JSON array whose first element is a string is an operator call; any
// other array is a literal list. Strings starting with "@" are bindings.
type Expr interface {
	expr() // Sealed - only Lit, Binding and Call implement it
}

// Lit is a literal expression; evaluation yields its value unchanged.
type Lit struct {
	Val Value
}

func (Lit) expr() {}

// Binding is a namespaced path into the evaluation context, stored
// without the leading "@" marker (e.g. "entity.count").
type Binding string

func (Binding) expr() {}

// Path returns the binding path without the "@" marker.
func (b Binding) Path() string { return string(b) }

// Call is an operator application: a name plus ordered argument
// expressions. The evaluator dispatches on Op.
type Call struct {
	Op   string
	Args []Expr
}

func (Call) expr() {}

// ParseExpr decodes a JSON document into an expression tree.
func ParseExpr(data []byte) (Expr, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty expression")
	}

	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return parseArray(raw)
	}

	val, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	return FromValue(val), nil
}

// parseArray decodes a JSON array: an operator call when the head is a
// non-binding string, a literal list otherwise.
func parseArray(raw []json.RawMessage) (Expr, error) {
	if len(raw) > 0 {
		var op string
		if err := json.Unmarshal(raw[0], &op); err == nil && !strings.HasPrefix(op, "@") {
			args := make([]Expr, 0, len(raw)-1)
			for i, elem := range raw[1:] {
				arg, err := ParseExpr(elem)
				if err != nil {
					return nil, fmt.Errorf("%s arg %d: %w", op, i, err)
				}
				args = append(args, arg)
			}
			return Call{Op: op, Args: args}, nil
		}
	}

	list := make(List, len(raw))
	for i, elem := range raw {
		val, err := UnmarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		list[i] = val
	}
	return Lit{Val: list}, nil
}

// FromValue reinterprets an already-decoded value as an expression:
// lists headed by a string become calls, "@" strings become bindings,
// everything else is a literal. Used when programs arrive through a
// decoder that does not distinguish code from data (CUE, YAML).
func FromValue(v Value) Expr {
	switch val := v.(type) {
	case String:
		if strings.HasPrefix(string(val), "@") {
			return Binding(strings.TrimPrefix(string(val), "@"))
		}
		return Lit{Val: val}
	case List:
		if len(val) > 0 {
			if head, ok := val[0].(String); ok && !strings.HasPrefix(string(head), "@") {
				args := make([]Expr, len(val)-1)
				for i, elem := range val[1:] {
					args[i] = FromValue(elem)
				}
				return Call{Op: string(head), Args: args}
			}
		}
		return Lit{Val: val}
	default:
		return Lit{Val: v}
	}
}

// MarshalExpr encodes an expression tree back to its JSON wire form.
func MarshalExpr(e Expr) ([]byte, error) {
	switch node := e.(type) {
	case Lit:
		return MarshalValue(node.Val)
	case Binding:
		return json.Marshal("@" + string(node))
	case Call:
		var buf bytes.Buffer
		buf.WriteByte('[')
		opBytes, err := json.Marshal(node.Op)
		if err != nil {
			return nil, err
		}
		buf.Write(opBytes)
		for i, arg := range node.Args {
			buf.WriteByte(',')
			argBytes, err := MarshalExpr(arg)
			if err != nil {
				return nil, fmt.Errorf("%s arg %d: %w", node.Op, i, err)
			}
			buf.Write(argBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown Expr type: %T", e)
	}
}
