package document

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/spec"
	"github.com/propenster/rustysec/internal/dialect"
)

const defaultMediaType = "application/json"

// swaggerHeaderKeys are the top-level fields typed through go-openapi. Paths,
// definitions and the reusable sections stay on the node tree, so a malformed
// schema keyword reaches the rules instead of failing the typed decode.
var swaggerHeaderKeys = []string{"swagger", "host", "basePath", "schemes", "consumes", "produces", "security"}

// projectSwagger2 maps a Swagger 2.0 node tree onto a Document.
// The typed view from go-openapi supplies servers and security requirements;
// ordered sections come from the node tree.
func projectSwagger2(root *Node) (*apiDocument, error) {
	raw, err := json.Marshal(swaggerHeader(root))
	if err != nil {
		return nil, err
	}
	analyzed, err := loads.Analyzed(raw, "2.0")
	if err != nil {
		return nil, fmt.Errorf("failed to load Swagger 2.0 spec: %w", err)
	}
	swagger := analyzed.Spec()

	doc := newAPIDocument(dialect.FlavorSwagger2)
	r := &refResolver{root: root}
	doc.servers = swaggerServers(swagger, root.Get("host"))

	produces := swagger.Produces
	projectOp := func(res *refResolver, path string, m Method, n *Node, shared []*Parameter) (*Operation, error) {
		return projectSwagger2Operation(res, path, m, n, shared, produces)
	}
	paths, err := projectPaths(r, root.Get("paths"), projectOp, projectSwagger2Parameter)
	if err != nil {
		return nil, err
	}
	doc.paths = paths

	schemas, err := projectSchemas(root.Get("definitions"), "definitions")
	if err != nil {
		return nil, err
	}
	doc.components.Schemas = schemas

	params, err := projectNamed(r, root.Get("parameters"), "parameters",
		func(_ string, _ int, n *Node) *Parameter { return projectSwagger2Parameter(n) })
	if err != nil {
		return nil, err
	}
	doc.components.Parameters = params

	responses, err := projectNamed(r, root.Get("responses"), "responses",
		func(status string, line int, n *Node) *Response { return projectSwagger2Response(status, line, n, produces) })
	if err != nil {
		return nil, err
	}
	doc.components.Responses = responses

	defs := root.Get("securityDefinitions")
	if err := expectKind(defs, ObjectNode, "securityDefinitions"); err != nil {
		return nil, err
	}
	if defs != nil {
		for _, f := range defs.Fields {
			doc.securitySchemes.set(f.Key, decodeSecurityDefinition(f.Key, f.Line, f.Value))
		}
	}

	for _, req := range swagger.Security {
		doc.security = append(doc.security, SecurityRequirement(req))
	}
	return doc, nil
}

// swaggerHeader copies the typed top-level fields into a document with empty
// paths
func swaggerHeader(root *Node) *Node {
	header := &Node{Kind: ObjectNode, Line: root.Line}
	for _, key := range swaggerHeaderKeys {
		if v := root.Get(key); v != nil {
			header.Fields = append(header.Fields, Field{Key: key, Line: v.Line, Value: v})
		}
	}
	header.Fields = append(header.Fields, Field{Key: "paths", Line: root.Line, Value: &Node{Kind: ObjectNode, Line: root.Line}})
	return header
}

// swaggerServers derives base URLs from host, basePath and schemes.
// Without schemes the URL is scheme-relative.
func swaggerServers(swagger *spec.Swagger, host *Node) []Server {
	if swagger.Host == "" {
		return nil
	}
	line := 0
	if host != nil {
		line = host.Line
	}
	base := swagger.Host + swagger.BasePath
	if len(swagger.Schemes) == 0 {
		return []Server{{URL: "//" + base, Line: line}}
	}
	servers := make([]Server, 0, len(swagger.Schemes))
	for _, scheme := range swagger.Schemes {
		servers = append(servers, Server{URL: strings.ToLower(scheme) + "://" + base, Line: line})
	}
	return servers
}

func projectSwagger2Operation(r *refResolver, path string, m Method, n *Node, shared []*Parameter, produces []string) (*Operation, error) {
	op, err := baseOperation(r, path, m, n, shared, projectSwagger2Parameter)
	if err != nil {
		return nil, err
	}

	if own := n.Get("produces").Strings(); len(own) > 0 {
		produces = own
	}
	if len(produces) == 0 {
		produces = []string{defaultMediaType}
	}
	consumes := n.Get("consumes").Strings()
	if len(consumes) == 0 {
		consumes = []string{defaultMediaType}
	}

	// A body parameter becomes the request body
	if params := n.Get("parameters"); params != nil {
		for _, item := range params.Items {
			p, err := r.resolve(item)
			if err != nil {
				return nil, err
			}
			if p.Get("in").Str() != "body" {
				continue
			}
			op.RequestBody = &RequestBody{
				Required: p.Get("required").Bool(),
				Content:  swaggerContent(p.Get("schema"), consumes, p.Line),
				Line:     p.Line,
			}
		}
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
			op.Responses.set(f.Key, projectSwagger2Response(f.Key, f.Line, resp, produces))
		}
	}
	return op, nil
}

func projectSwagger2Response(status string, line int, n *Node, produces []string) *Response {
	if len(produces) == 0 {
		produces = []string{defaultMediaType}
	}
	resp := &Response{
		Status:      status,
		Description: n.Get("description").Str(),
		Content:     newOrderedMap[*MediaType](),
		Line:        line,
	}
	if schema := n.Get("schema"); schema != nil {
		resp.Content = swaggerContent(schema, produces, line)
	}
	return resp
}

// swaggerContent spreads one Swagger schema over the media types in effect
func swaggerContent(schema *Node, mediaTypes []string, line int) *OrderedMap[*MediaType] {
	content := newOrderedMap[*MediaType]()
	for _, name := range mediaTypes {
		mt := &MediaType{Name: name, Line: line}
		if schema != nil {
			mt.SchemaRef = schema.Get("$ref").Str()
			mt.Schema = projectSchema("", schema)
		}
		content.set(name, mt)
	}
	return content
}

// projectSwagger2Parameter handles both body parameters (schema) and simple
// parameters (type declared inline)
func projectSwagger2Parameter(n *Node) *Parameter {
	name := n.Get("name").Str()
	param := &Parameter{
		Name:     name,
		In:       n.Get("in").Str(),
		Required: n.Get("required").Bool(),
		Line:     n.Line,
	}
	if schema := n.Get("schema"); schema != nil {
		param.Schema = projectSchema(name, schema)
	} else if n.Has("type") {
		param.Schema = projectSchema(name, n)
	}
	return param
}

// decodeSecurityDefinition types a security definition through go-openapi and
// keeps its validation verdict
func decodeSecurityDefinition(name string, line int, n *Node) *SecurityScheme {
	scheme := &SecurityScheme{Name: name, Line: line}
	if !n.IsObject() {
		scheme.Problem = fmt.Errorf("security definition %q must be an object", name)
		return scheme
	}

	raw, err := json.Marshal(n)
	if err != nil {
		scheme.Problem = err
		return scheme
	}
	var def spec.SecurityScheme
	if err := json.Unmarshal(raw, &def); err != nil {
		scheme.Problem = fmt.Errorf("security definition %q: %w", name, err)
		return scheme
	}

	scheme.Type = def.Type
	scheme.In = def.In
	scheme.ParamName = def.Name
	scheme.Description = def.Description
	scheme.Problem = checkSecurityDefinition(name, &def)
	return scheme
}

// checkSecurityDefinition validates a Swagger 2.0 security definition
func checkSecurityDefinition(name string, scheme *spec.SecurityScheme) error {
	switch scheme.Type {
	case "":
		return fmt.Errorf("security definition %q missing type", name)
	case "basic":
		return nil
	case "apiKey":
		if scheme.Name == "" || scheme.In == "" {
			return fmt.Errorf("API key security definition %q missing name or location", name)
		}
		if scheme.In != "header" && scheme.In != "query" {
			return fmt.Errorf("API key security definition %q has invalid location %q", name, scheme.In)
		}
	case "oauth2":
		if scheme.Flow == "" {
			return fmt.Errorf("OAuth2 security definition %q missing flow", name)
		}
		if (scheme.Flow == "implicit" || scheme.Flow == "accessCode") && scheme.AuthorizationURL == "" {
			return fmt.Errorf("OAuth2 security definition %q missing authorizationUrl", name)
		}
		if scheme.Flow != "implicit" && scheme.TokenURL == "" {
			return fmt.Errorf("OAuth2 security definition %q missing tokenUrl", name)
		}
	default:
		return fmt.Errorf("security definition %q has unsupported type %q", name, scheme.Type)
	}
	return nil
}
