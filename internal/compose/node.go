package compose

import "github.com/almadar-io/orbital/internal/expr"

// PatternNode is the validated recursive form of a pattern child: the
// loosely-typed props.children entries are parsed into this once, at
// the composition boundary, instead of being re-interpreted from raw
// maps at every render pass.
type PatternNode struct {
	Type     string
	Props    expr.Object
	Children []PatternNode
}

// DecodeChildren extracts and validates props["children"] as a pattern
// node list. Entries that are not objects, or that lack a string type,
// decode to a typeless node - composed as a fallback placeholder so one
// bad entry never takes down its siblings.
func DecodeChildren(props expr.Object) []PatternNode {
	raw, ok := props.Field("children").(expr.List)
	if !ok {
		return nil
	}

	nodes := make([]PatternNode, 0, len(raw))
	for _, entry := range raw {
		nodes = append(nodes, DecodeNode(entry))
	}
	return nodes
}

// DecodeNode validates one raw child entry.
func DecodeNode(v expr.Value) PatternNode {
	obj, ok := v.(expr.Object)
	if !ok {
		return PatternNode{}
	}

	node := PatternNode{}
	if t, ok := obj.Field("type").(expr.String); ok {
		node.Type = string(t)
	}
	if props, ok := obj.Field("props").(expr.Object); ok {
		node.Props = props
		node.Children = DecodeChildren(props)
	}
	return node
}
