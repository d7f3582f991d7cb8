// Package dialect sniffs which API specification dialect a document is
// written in without fully parsing it.
package dialect

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// SpecDialect represents the detected specification format
type SpecDialect int

const (
	Unknown SpecDialect = iota
	OpenApiRest
	SoapWSDL
)

// String returns the display name of the dialect
func (d SpecDialect) String() string {
	switch d {
	case OpenApiRest:
		return "Open API"
	case SoapWSDL:
		return "SOAP WSDL"
	default:
		return "Unknown"
	}
}

// Flavor distinguishes OpenAPI generations that share the OpenApiRest dialect
type Flavor string

const (
	FlavorNone     Flavor = ""
	FlavorOpenAPI3 Flavor = "openapi3"
	FlavorSwagger2 Flavor = "swagger2"
)

const (
	// OpenAPIMarker is the top-level key of OpenAPI 3.x documents
	OpenAPIMarker = "openapi"
	// SwaggerMarker is the top-level key of Swagger 2.0 documents
	SwaggerMarker = "swagger"
	// WSDLMarker is looked for in the normalized document prefix
	WSDLMarker = "<definitions"
	// WSDLPrefixLength is the number of characters inspected for WSDLMarker
	WSDLPrefixLength = 50
)

// Detect classifies text. It never fails: unrecognized input is Unknown.
func Detect(text string) SpecDialect {
	d, _ := DetectFlavor(text)
	return d
}

// DetectFlavor classifies text and, for OpenAPI documents, reports which
// marker key was found.
func DetectFlavor(text string) (SpecDialect, Flavor) {
	// Try JSON first
	var top any
	if err := json.Unmarshal([]byte(text), &top); err == nil {
		return fromTopLevel(top)
	}

	if IsWSDL(text) {
		return SoapWSDL, FlavorNone
	}

	// If JSON fails and it is not markup, try YAML
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err == nil {
		var mapping map[string]any
		if err := node.Decode(&mapping); err == nil {
			return fromTopLevel(mapping)
		}
	}

	return Unknown, FlavorNone
}

// IsWSDL reports whether the first WSDLPrefixLength characters of text,
// lower-cased and with spaces removed, contain the WSDL root marker.
func IsWSDL(text string) bool {
	prefix := text
	if utf8.RuneCountInString(text) > WSDLPrefixLength {
		runes := 0
		for i := range text {
			if runes == WSDLPrefixLength {
				prefix = text[:i]
				break
			}
			runes++
		}
	}
	normalized := strings.ReplaceAll(strings.ToLower(prefix), " ", "")
	return strings.Contains(normalized, WSDLMarker)
}

func fromTopLevel(top any) (SpecDialect, Flavor) {
	obj, ok := top.(map[string]any)
	if !ok {
		return Unknown, FlavorNone
	}
	if _, ok := obj[OpenAPIMarker]; ok {
		return OpenApiRest, FlavorOpenAPI3
	}
	if _, ok := obj[SwaggerMarker]; ok {
		return OpenApiRest, FlavorSwagger2
	}
	return Unknown, FlavorNone
}
