package document

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/propenster/rustysec/internal/dialect"
)

// projectOpenAPI3 maps an OpenAPI 3.x node tree onto a Document
func projectOpenAPI3(root *Node) (*apiDocument, error) {
	doc := newAPIDocument(dialect.FlavorOpenAPI3)
	r := &refResolver{root: root}

	// Servers
	servers := root.Get("servers")
	if err := expectKind(servers, ArrayNode, "servers"); err != nil {
		return nil, err
	}
	if servers != nil {
		for _, s := range servers.Items {
			if !s.IsObject() {
				continue
			}
			doc.servers = append(doc.servers, Server{URL: s.Get("url").Str(), Line: s.Line})
		}
	}

	// Paths and operations
	paths, err := projectPaths(r, root.Get("paths"), projectOpenAPI3Operation, projectOpenAPI3Parameter)
	if err != nil {
		return nil, err
	}
	doc.paths = paths

	// Components
	components := root.Get("components")
	if err := expectKind(components, ObjectNode, "components"); err != nil {
		return nil, err
	}
	schemas, err := projectSchemas(components.Get("schemas"), "components.schemas")
	if err != nil {
		return nil, err
	}
	doc.components.Schemas = schemas

	params, err := projectNamed(r, components.Get("parameters"), "components.parameters",
		func(_ string, _ int, n *Node) *Parameter { return projectOpenAPI3Parameter(n) })
	if err != nil {
		return nil, err
	}
	doc.components.Parameters = params

	bodies, err := projectNamed(r, components.Get("requestBodies"), "components.requestBodies",
		func(_ string, _ int, n *Node) *RequestBody { return projectRequestBody(n) })
	if err != nil {
		return nil, err
	}
	doc.components.RequestBodies = bodies

	responses, err := projectNamed(r, components.Get("responses"), "components.responses", projectOpenAPI3Response)
	if err != nil {
		return nil, err
	}
	doc.components.Responses = responses

	schemes := components.Get("securitySchemes")
	if err := expectKind(schemes, ObjectNode, "components.securitySchemes"); err != nil {
		return nil, err
	}
	if schemes != nil {
		for _, f := range schemes.Fields {
			doc.securitySchemes.set(f.Key, decodeSecurityScheme(f.Key, f.Line, f.Value))
		}
	}

	// Document-level security
	security, err := projectSecurity(root.Get("security"), "security")
	if err != nil {
		return nil, err
	}
	doc.security = security

	return doc, nil
}

func projectOpenAPI3Operation(r *refResolver, path string, m Method, n *Node, shared []*Parameter) (*Operation, error) {
	op, err := baseOperation(r, path, m, n, shared, projectOpenAPI3Parameter)
	if err != nil {
		return nil, err
	}

	body, err := r.resolve(n.Get("requestBody"))
	if err != nil {
		return nil, err
	}
	if body.IsObject() {
		op.RequestBody = projectRequestBody(body)
	}

	if responses := n.Get("responses"); responses != nil {
		for _, f := range responses.Fields {
			if isExtension(f.Key) {
				continue
			}
			resp, err := r.resolve(f.Value)
			if err != nil {
				return nil, err
			}
			if !resp.IsObject() {
				continue
			}
			// the status key stays the anchor line of a referenced response
			op.Responses.set(f.Key, projectOpenAPI3Response(f.Key, f.Line, resp))
		}
	}
	return op, nil
}

func projectOpenAPI3Response(status string, line int, n *Node) *Response {
	return &Response{
		Status:      status,
		Description: n.Get("description").Str(),
		Content:     projectContent(n.Get("content")),
		Line:        line,
	}
}

func projectRequestBody(n *Node) *RequestBody {
	return &RequestBody{
		Required: n.Get("required").Bool(),
		Content:  projectContent(n.Get("content")),
		Line:     n.Line,
	}
}

func projectOpenAPI3Parameter(n *Node) *Parameter {
	return &Parameter{
		Name:     n.Get("name").Str(),
		In:       n.Get("in").Str(),
		Required: n.Get("required").Bool(),
		Schema:   projectSchema(n.Get("name").Str(), n.Get("schema")),
		Line:     n.Line,
	}
}

func projectContent(n *Node) *OrderedMap[*MediaType] {
	content := newOrderedMap[*MediaType]()
	if !n.IsObject() {
		return content
	}
	for _, f := range n.Fields {
		mt := &MediaType{Name: f.Key, Line: f.Line}
		if schema := f.Value.Get("schema"); schema != nil {
			mt.SchemaRef = schema.Get("$ref").Str()
			mt.Schema = projectSchema("", schema)
		}
		content.set(f.Key, mt)
	}
	return content
}

// decodeSecurityScheme types a security scheme through kin-openapi and keeps
// its validation verdict
func decodeSecurityScheme(name string, line int, n *Node) *SecurityScheme {
	scheme := &SecurityScheme{Name: name, Line: line}
	if !n.IsObject() {
		scheme.Problem = fmt.Errorf("security scheme %q must be an object", name)
		return scheme
	}
	if ref := n.Get("$ref").Str(); ref != "" {
		scheme.Ref = ref
		return scheme
	}

	raw, err := json.Marshal(n)
	if err != nil {
		scheme.Problem = err
		return scheme
	}
	var ss openapi3.SecurityScheme
	if err := json.Unmarshal(raw, &ss); err != nil {
		scheme.Problem = fmt.Errorf("security scheme %q: %w", name, err)
		return scheme
	}

	scheme.Type = ss.Type
	scheme.Scheme = ss.Scheme
	scheme.In = ss.In
	scheme.ParamName = ss.Name
	scheme.Description = ss.Description
	if err := ss.Validate(context.Background()); err != nil {
		scheme.Problem = err
	}
	return scheme
}
