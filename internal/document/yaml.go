package document

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseYAML builds a node tree from YAML text
func parseYAML(text string) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, &SyntaxError{Line: 1, Msg: "empty document"}
	}
	c := &yamlConverter{}
	return c.convert(&root, 0)
}

// maxAliasExpansions caps alias fan-out ("billion laughs" documents)
const maxAliasExpansions = 10000

type yamlConverter struct {
	aliases int
}

func (c *yamlConverter) convert(y *yaml.Node, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, &SyntaxError{Line: y.Line, Msg: fmt.Sprintf("nesting deeper than %d levels", maxDepth)}
	}

	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: NullNode, Line: y.Line}, nil
		}
		return c.convert(y.Content[0], depth+1)
	case yaml.AliasNode:
		c.aliases++
		if c.aliases > maxAliasExpansions {
			return nil, &SyntaxError{Line: y.Line, Msg: "too many alias expansions"}
		}
		return c.convert(y.Alias, depth+1)
	case yaml.MappingNode:
		return c.convertMapping(y, depth)
	case yaml.SequenceNode:
		node := &Node{Kind: ArrayNode, Line: y.Line}
		for _, child := range y.Content {
			item, err := c.convert(child, depth+1)
			if err != nil {
				return nil, err
			}
			node.Items = append(node.Items, item)
		}
		return node, nil
	default:
		return scalarFromYAML(y), nil
	}
}

// convertMapping builds an object node. Merge keys contribute only the keys
// the mapping does not declare itself; with a sequence of maps the earlier
// map wins.
func (c *yamlConverter) convertMapping(y *yaml.Node, depth int) (*Node, error) {
	taken := make(map[string]bool)
	for i := 0; i+1 < len(y.Content); i += 2 {
		if k := y.Content[i]; k.ShortTag() != "!!merge" {
			taken[k.Value] = true
		}
	}

	node := &Node{Kind: ObjectNode, Line: y.Line}
	for i := 0; i+1 < len(y.Content); i += 2 {
		k, v := y.Content[i], y.Content[i+1]
		value, err := c.convert(v, depth+1)
		if err != nil {
			return nil, err
		}
		if k.ShortTag() != "!!merge" {
			node.Fields = append(node.Fields, Field{Key: k.Value, Line: k.Line, Value: value})
			continue
		}

		sources := []*Node{value}
		if value.Kind == ArrayNode {
			sources = value.Items
		}
		for _, src := range sources {
			if src.Kind != ObjectNode {
				return nil, &SyntaxError{Line: k.Line, Msg: "merge value must be a mapping or a sequence of mappings"}
			}
			for _, f := range src.Fields {
				if !taken[f.Key] {
					taken[f.Key] = true
					node.Fields = append(node.Fields, f)
				}
			}
		}
	}
	return node, nil
}

func scalarFromYAML(y *yaml.Node) *Node {
	node := &Node{Kind: StringNode, Value: y.Value, Line: y.Line}

	switch y.ShortTag() {
	case "!!null":
		node.Kind, node.Value = NullNode, "null"
	case "!!bool":
		var b bool
		if err := y.Decode(&b); err == nil {
			node.Kind, node.Value = BoolNode, strconv.FormatBool(b)
		}
	case "!!int":
		var i int64
		if err := y.Decode(&i); err == nil {
			node.Kind, node.Value = NumberNode, strconv.FormatInt(i, 10)
		} else if wide, ok := bigIntFromYAML(y.Value); ok {
			node.Kind, node.Value = NumberNode, wide.String()
		}
	case "!!float":
		var f float64
		if err := y.Decode(&f); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			node.Kind, node.Value = NumberNode, strconv.FormatFloat(f, 'g', -1, 64)
		}
	}
	return node
}

// bigIntFromYAML reads an integer literal that overflows int64
func bigIntFromYAML(value string) (*big.Int, bool) {
	value = strings.ReplaceAll(value, "_", "")
	if strings.HasPrefix(value, "+") {
		value = value[1:]
	}
	return new(big.Int).SetString(value, 0)
}
