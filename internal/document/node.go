package document

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NodeKind is the JSON type of a Node
type NodeKind int

const (
	NullNode NodeKind = iota
	BoolNode
	NumberNode
	StringNode
	ArrayNode
	ObjectNode
)

// String returns the JSON type name of the kind
func (k NodeKind) String() string {
	switch k {
	case BoolNode:
		return "boolean"
	case NumberNode:
		return "number"
	case StringNode:
		return "string"
	case ArrayNode:
		return "array"
	case ObjectNode:
		return "object"
	default:
		return "null"
	}
}

// Field is one key/value pair of an object node
type Field struct {
	Key   string
	Line  int
	Value *Node
}

// Node is a generic structured-data value. Objects keep their fields in
// declaration order and every node remembers the 1-based line it starts on.
type Node struct {
	Kind   NodeKind
	Value  string
	Fields []Field
	Items  []*Node
	Line   int
}

// Get returns the value of key in an object node, or nil. Duplicate keys
// resolve to the last occurrence. Safe on a nil receiver.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != ObjectNode {
		return nil
	}
	for i := len(n.Fields) - 1; i >= 0; i-- {
		if n.Fields[i].Key == key {
			return n.Fields[i].Value
		}
	}
	return nil
}

// Has reports whether an object node declares key
func (n *Node) Has(key string) bool {
	return n.Get(key) != nil
}

// Str returns the value of a string node, or "" for any other node
func (n *Node) Str() string {
	if n == nil || n.Kind != StringNode {
		return ""
	}
	return n.Value
}

// Bool returns the value of a boolean node, or false for any other node
func (n *Node) Bool() bool {
	return n != nil && n.Kind == BoolNode && n.Value == "true"
}

// Float returns the value of a number node
func (n *Node) Float() (float64, bool) {
	if n == nil || n.Kind != NumberNode {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Strings returns the string items of an array node, or a one-element slice
// for a string node.
func (n *Node) Strings() []string {
	if n == nil {
		return nil
	}
	if n.Kind == StringNode {
		return []string{n.Value}
	}
	var out []string
	for _, item := range n.Items {
		if item.Kind == StringNode {
			out = append(out, item.Value)
		}
	}
	return out
}

// IsObject reports whether n is an object node
func (n *Node) IsObject() bool {
	return n != nil && n.Kind == ObjectNode
}

// MarshalJSON encodes the node, keeping object fields in declaration order
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}

	switch n.Kind {
	case NullNode:
		buf.WriteString("null")
	case BoolNode, NumberNode:
		buf.WriteString(n.Value)
	case StringNode:
		return writeString(buf, n.Value)
	case ArrayNode:
		buf.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectNode:
		buf.WriteByte('{')
		for i, f := range n.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
