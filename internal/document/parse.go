// Package document parses API specification text into a queryable,
// read-only Document.
//
// OpenAPI 3.x and Swagger 2.0 documents, in JSON or YAML, are projected onto
// the same small set of shapes (PathItem, Operation, Response, MediaType,
// Schema). Parsing is all-or-nothing: a syntax or structure problem returns a
// *scanerr.ParseError and no Document.
package document

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/scanerr"
)

// Parse builds the Document for text in the given dialect
func Parse(text string, d dialect.SpecDialect) (Document, error) {
	if text == "" {
		return nil, scanerr.ErrInvalidInputText
	}

	switch d {
	case dialect.OpenApiRest:
		doc, err := parseOpenAPI(text)
		if err != nil {
			return nil, wrapParseError(d, err)
		}
		return doc, nil
	case dialect.SoapWSDL:
		return nil, wrapParseError(d, parseWSDL(text))
	default:
		return nil, scanerr.ErrInvalidSpecificationType
	}
}

// ParseTree parses JSON or YAML text into a generic node tree. JSON input
// (starting with '{' or '[') goes through the token-driven parser.
func ParseTree(text string) (*Node, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return parseJSON(text)
	}
	return parseYAML(text)
}

func parseOpenAPI(text string) (*apiDocument, error) {
	root, err := ParseTree(text)
	if err != nil {
		return nil, err
	}
	if err := expectKind(root, ObjectNode, "document root"); err != nil {
		return nil, err
	}

	switch {
	case root.Has(dialect.OpenAPIMarker):
		return projectOpenAPI3(root)
	case root.Has(dialect.SwaggerMarker):
		return projectSwagger2(root)
	default:
		return nil, &SyntaxError{
			Line: root.Line,
			Msg:  fmt.Sprintf("missing top-level %q or %q key", dialect.OpenAPIMarker, dialect.SwaggerMarker),
		}
	}
}

// parseWSDL is the extension point for SOAP documents. It checks that the
// markup is well-formed and then reports the dialect as unsupported.
func parseWSDL(text string) error {
	dec := xml.NewDecoder(strings.NewReader(text))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return scanerr.ErrUnsupportedDialect
		}
		if err != nil {
			return err
		}
	}
}

func wrapParseError(d dialect.SpecDialect, err error) error {
	perr := &scanerr.ParseError{Dialect: d.String(), Cause: err}

	var syntaxErr *SyntaxError
	var xmlErr *xml.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		perr.Line = syntaxErr.Line
	case errors.As(err, &xmlErr):
		perr.Line = xmlErr.Line
	}
	return perr
}
