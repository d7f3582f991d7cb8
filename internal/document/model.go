package document

import (
	"github.com/propenster/rustysec/internal/dialect"
)

// Method is an HTTP verb an operation can be declared under
type Method string

const (
	MethodGet    Method = "get"
	MethodPost   Method = "post"
	MethodPut    Method = "put"
	MethodPatch  Method = "patch"
	MethodDelete Method = "delete"
)

// Methods lists the verbs in canonical traversal order
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete}

// Document is a parsed API specification. It is built once per scan and
// never mutated afterwards.
type Document interface {
	Dialect() dialect.SpecDialect
	Flavor() dialect.Flavor
	// Servers returns the declared base URLs in declaration order
	Servers() []Server
	// Paths maps URL templates to path items in declaration order
	Paths() *OrderedMap[*PathItem]
	Components() *Components
	SecuritySchemes() *OrderedMap[*SecurityScheme]
	// SecurityRequirements returns the document-level requirements
	SecurityRequirements() []SecurityRequirement
}

// Server is one declared base URL
type Server struct {
	URL  string
	Line int
}

// PathItem holds the operations declared under one URL template
type PathItem struct {
	Template   string
	Line       int
	operations map[Method]*Operation
}

// Operation returns the operation declared for m, or nil
func (p *PathItem) Operation(m Method) *Operation {
	if p == nil {
		return nil
	}
	return p.operations[m]
}

// Operations returns the declared operations in canonical verb order
func (p *PathItem) Operations() []*Operation {
	var ops []*Operation
	for _, m := range Methods {
		if op := p.Operation(m); op != nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// Operation is a single verb on a path
type Operation struct {
	Method      Method
	Path        string
	OperationID string
	Line        int
	Tags        []string
	Parameters  []*Parameter
	RequestBody *RequestBody
	// Responses maps status codes (including "default") to responses
	Responses *OrderedMap[*Response]
	// Security is only meaningful when SecurityDeclared is set; otherwise the
	// document-level requirements apply.
	Security         []SecurityRequirement
	SecurityDeclared bool
}

// Parameter is an operation input outside the request body
type Parameter struct {
	Name     string
	In       string
	Required bool
	Schema   *Schema
	Line     int
}

// RequestBody is the documented operation payload
type RequestBody struct {
	Required bool
	Content  *OrderedMap[*MediaType]
	Line     int
}

// Response is one documented status of an operation
type Response struct {
	Status      string
	Description string
	Content     *OrderedMap[*MediaType]
	Line        int
}

// MediaType is one content entry of a response or request body
type MediaType struct {
	Name string
	// SchemaRef is the $ref into the component schemas, if any
	SchemaRef string
	Schema    *Schema
	Line      int
}

// HasSchema reports whether the entry documents its payload
func (m *MediaType) HasSchema() bool {
	return m.SchemaRef != "" || m.Schema != nil
}

// Schema is the generalized shape of every schema object in a document
type Schema struct {
	Name    string
	Ref     string
	Types   []string
	Format  string
	Pattern string
	Enum    []*Node
	// Bounds are kept as raw nodes so rules can tell "absent" from "malformed"
	MaxLength  *Node
	MaxItems   *Node
	Maximum    *Node
	Properties *OrderedMap[*Schema]
	Items      *Schema
	AllOf      []*Schema
	OneOf      []*Schema
	AnyOf      []*Schema
	Line       int
}

// HasType reports whether the schema declares type t
func (s *Schema) HasType(t string) bool {
	if s == nil {
		return false
	}
	for _, st := range s.Types {
		if st == t {
			return true
		}
	}
	return false
}

// Components holds the reusable definitions of a document. For Swagger 2.0
// these are the top-level definitions, parameters and responses sections.
type Components struct {
	Schemas       *OrderedMap[*Schema]
	Parameters    *OrderedMap[*Parameter]
	RequestBodies *OrderedMap[*RequestBody]
	Responses     *OrderedMap[*Response]
}

// SecurityScheme is a declared authentication mechanism
type SecurityScheme struct {
	Name        string
	Ref         string
	Type        string
	Scheme      string
	In          string
	ParamName   string
	Description string
	Line        int
	// Problem is set when the scheme declaration is incomplete or invalid
	Problem error
}

// SecurityRequirement maps scheme names to required scopes
type SecurityRequirement map[string][]string

// apiDocument is the Document implementation shared by OpenAPI 3 and Swagger 2
type apiDocument struct {
	flavor          dialect.Flavor
	servers         []Server
	paths           *OrderedMap[*PathItem]
	components      *Components
	securitySchemes *OrderedMap[*SecurityScheme]
	security        []SecurityRequirement
}

func newAPIDocument(flavor dialect.Flavor) *apiDocument {
	components := &Components{
		Schemas:       newOrderedMap[*Schema](),
		Parameters:    newOrderedMap[*Parameter](),
		RequestBodies: newOrderedMap[*RequestBody](),
		Responses:     newOrderedMap[*Response](),
	}
	return &apiDocument{
		flavor:          flavor,
		paths:           newOrderedMap[*PathItem](),
		components:      components,
		securitySchemes: newOrderedMap[*SecurityScheme](),
	}
}

func (d *apiDocument) Dialect() dialect.SpecDialect { return dialect.OpenApiRest }

func (d *apiDocument) Flavor() dialect.Flavor { return d.flavor }

func (d *apiDocument) Servers() []Server { return append([]Server(nil), d.servers...) }

func (d *apiDocument) Paths() *OrderedMap[*PathItem] { return d.paths }

func (d *apiDocument) Components() *Components { return d.components }

func (d *apiDocument) SecuritySchemes() *OrderedMap[*SecurityScheme] { return d.securitySchemes }

func (d *apiDocument) SecurityRequirements() []SecurityRequirement {
	return append([]SecurityRequirement(nil), d.security...)
}
