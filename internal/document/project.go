package document

import (
	"fmt"
	"strings"
)

// operationProjector turns an operation node into an Operation. shared holds
// the parameters declared on the enclosing path item.
type operationProjector func(r *refResolver, path string, m Method, n *Node, shared []*Parameter) (*Operation, error)

// parameterProjector turns a parameter node into a Parameter
type parameterProjector func(n *Node) *Parameter

// expectKind checks the kind of an optional section; a missing section is fine
func expectKind(n *Node, kind NodeKind, field string) error {
	if n == nil || n.Kind == kind {
		return nil
	}
	return &SyntaxError{
		Line: n.Line,
		Msg:  fmt.Sprintf("%s must be an %s, found %s", field, kind, n.Kind),
	}
}

func isExtension(key string) bool {
	return strings.HasPrefix(key, "x-")
}

func projectPaths(r *refResolver, n *Node, projectOp operationProjector, projectParam parameterProjector) (*OrderedMap[*PathItem], error) {
	paths := newOrderedMap[*PathItem]()
	if err := expectKind(n, ObjectNode, "paths"); err != nil || n == nil {
		return paths, err
	}

	for _, f := range n.Fields {
		if isExtension(f.Key) {
			continue
		}
		field := "paths." + f.Key
		if err := expectKind(f.Value, ObjectNode, field); err != nil {
			return nil, err
		}

		shared, err := projectParameters(r, f.Value.Get("parameters"), field+".parameters", projectParam)
		if err != nil {
			return nil, err
		}

		item := &PathItem{
			Template:   f.Key,
			Line:       f.Line,
			operations: make(map[Method]*Operation),
		}
		for _, m := range Methods {
			opNode := f.Value.Get(string(m))
			if opNode == nil {
				continue
			}
			if err := expectKind(opNode, ObjectNode, field+"."+string(m)); err != nil {
				return nil, err
			}
			op, err := projectOp(r, f.Key, m, opNode, shared)
			if err != nil {
				return nil, err
			}
			item.operations[m] = op
		}
		paths.set(f.Key, item)
	}
	return paths, nil
}

// baseOperation projects the fields every flavor shares
func baseOperation(r *refResolver, path string, m Method, n *Node, shared []*Parameter, projectParam parameterProjector) (*Operation, error) {
	field := fmt.Sprintf("paths.%s.%s", path, m)
	op := &Operation{
		Method:      m,
		Path:        path,
		OperationID: n.Get("operationId").Str(),
		Line:        n.Line,
		Tags:        n.Get("tags").Strings(),
		Responses:   newOrderedMap[*Response](),
	}

	params, err := projectParameters(r, n.Get("parameters"), field+".parameters", projectParam)
	if err != nil {
		return nil, err
	}
	op.Parameters = append(append([]*Parameter(nil), shared...), params...)

	if sec := n.Get("security"); sec != nil {
		reqs, err := projectSecurity(sec, field+".security")
		if err != nil {
			return nil, err
		}
		op.Security = reqs
		op.SecurityDeclared = true
	}

	if err := expectKind(n.Get("responses"), ObjectNode, field+".responses"); err != nil {
		return nil, err
	}
	return op, nil
}

// projectParameters projects a parameter list, following references into the
// reusable parameter section
func projectParameters(r *refResolver, n *Node, field string, projectParam parameterProjector) ([]*Parameter, error) {
	if err := expectKind(n, ArrayNode, field); err != nil || n == nil {
		return nil, err
	}
	var params []*Parameter
	for _, item := range n.Items {
		resolved, err := r.resolve(item)
		if err != nil {
			return nil, err
		}
		if !resolved.IsObject() {
			continue
		}
		params = append(params, projectParam(resolved))
	}
	return params, nil
}

// projectNamed projects every entry of a reusable section with project.
// References between entries are followed.
func projectNamed[V any](r *refResolver, n *Node, field string, project func(name string, line int, n *Node) V) (*OrderedMap[V], error) {
	out := newOrderedMap[V]()
	if err := expectKind(n, ObjectNode, field); err != nil || n == nil {
		return out, err
	}
	for _, f := range n.Fields {
		if isExtension(f.Key) {
			continue
		}
		value, err := r.resolve(f.Value)
		if err != nil {
			return nil, err
		}
		if !value.IsObject() {
			continue
		}
		out.set(f.Key, project(f.Key, f.Line, value))
	}
	return out, nil
}

func projectSecurity(n *Node, field string) ([]SecurityRequirement, error) {
	if err := expectKind(n, ArrayNode, field); err != nil || n == nil {
		return nil, err
	}
	reqs := make([]SecurityRequirement, 0, len(n.Items))
	for _, item := range n.Items {
		if err := expectKind(item, ObjectNode, field+"[]"); err != nil {
			return nil, err
		}
		req := SecurityRequirement{}
		for _, f := range item.Fields {
			req[f.Key] = f.Value.Strings()
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func projectSchemas(n *Node, field string) (*OrderedMap[*Schema], error) {
	schemas := newOrderedMap[*Schema]()
	if err := expectKind(n, ObjectNode, field); err != nil || n == nil {
		return schemas, err
	}
	for _, f := range n.Fields {
		if s := projectSchema(f.Key, f.Value); s != nil {
			schemas.set(f.Key, s)
		}
	}
	return schemas, nil
}

// projectSchema generalizes a schema object. Non-object nodes yield nil.
func projectSchema(name string, n *Node) *Schema {
	if !n.IsObject() {
		return nil
	}

	s := &Schema{
		Name:      name,
		Ref:       n.Get("$ref").Str(),
		Types:     n.Get("type").Strings(),
		Format:    n.Get("format").Str(),
		Pattern:   n.Get("pattern").Str(),
		MaxLength: n.Get("maxLength"),
		MaxItems:  n.Get("maxItems"),
		Maximum:   n.Get("maximum"),
		Line:      n.Line,
	}
	if enum := n.Get("enum"); enum != nil && enum.Kind == ArrayNode {
		s.Enum = enum.Items
	}

	if props := n.Get("properties"); props.IsObject() {
		s.Properties = newOrderedMap[*Schema]()
		for _, f := range props.Fields {
			if prop := projectSchema(f.Key, f.Value); prop != nil {
				prop.Line = f.Line
				s.Properties.set(f.Key, prop)
			}
		}
	}

	s.Items = projectSchema(name+"[]", n.Get("items"))
	s.AllOf = projectSchemaList(name, n.Get("allOf"))
	s.OneOf = projectSchemaList(name, n.Get("oneOf"))
	s.AnyOf = projectSchemaList(name, n.Get("anyOf"))
	return s
}

func projectSchemaList(name string, n *Node) []*Schema {
	if n == nil || n.Kind != ArrayNode {
		return nil
	}
	var out []*Schema
	for _, item := range n.Items {
		if s := projectSchema(name, item); s != nil {
			out = append(out, s)
		}
	}
	return out
}
