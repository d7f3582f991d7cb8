package rules

import (
	"fmt"
	"strings"

	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/document"
)

// propertyVisitor is called for every named property schema. path is the
// dotted location of the property inside the document.
type propertyVisitor func(path string, prop *document.Schema) error

// operationVisitor is called for every operation in traversal order
type operationVisitor func(path string, op *document.Operation) error

// walkOperations visits operations: paths in declaration order, then verbs in
// canonical order
func walkOperations(doc document.Document, visit operationVisitor) error {
	var err error
	doc.Paths().Range(func(template string, item *document.PathItem) bool {
		for _, op := range item.Operations() {
			if err = visit(fmt.Sprintf("paths.%s.%s", template, op.Method), op); err != nil {
				return false
			}
		}
		return true
	})
	return err
}

// walkProperties visits every property schema of the document. Inline
// schemas under paths come first, then the component schemas. Parameters are
// treated as properties of their operation.
func walkProperties(doc document.Document, visit propertyVisitor) error {
	err := walkOperations(doc, func(path string, op *document.Operation) error {
		for _, p := range op.Parameters {
			paramPath := path + ".parameters." + p.Name
			// a Swagger body parameter is walked as the request body
			if p.Schema == nil || p.In == "body" {
				continue
			}
			if p.Schema.Ref == "" {
				if err := visit(paramPath, p.Schema); err != nil {
					return err
				}
			}
			if err := walkSchema(paramPath, p.Schema, visit); err != nil {
				return err
			}
		}

		if op.RequestBody != nil {
			if err := walkContent(path+".requestBody", op.RequestBody.Content, visit); err != nil {
				return err
			}
		}

		var err error
		op.Responses.Range(func(status string, resp *document.Response) bool {
			err = walkContent(path+".responses."+status, resp.Content, visit)
			return err == nil
		})
		return err
	})
	if err != nil {
		return err
	}

	prefix := "components.schemas"
	if doc.Flavor() == dialect.FlavorSwagger2 {
		prefix = "definitions"
	}
	doc.Components().Schemas.Range(func(name string, s *document.Schema) bool {
		err = walkSchema(prefix+"."+name, s, visit)
		return err == nil
	})
	return err
}

func walkContent(path string, content *document.OrderedMap[*document.MediaType], visit propertyVisitor) error {
	var err error
	content.Range(func(name string, mt *document.MediaType) bool {
		err = walkSchema(path+".content."+name+".schema", mt.Schema, visit)
		return err == nil
	})
	return err
}

// walkSchema descends into properties, items and composition keywords.
// Properties that are references are not visited; the referenced component
// is checked in its own right.
func walkSchema(path string, s *document.Schema, visit propertyVisitor) error {
	if s == nil {
		return nil
	}

	var err error
	s.Properties.Range(func(name string, prop *document.Schema) bool {
		propPath := path + ".properties." + name
		if prop.Ref == "" {
			if err = visit(propPath, prop); err != nil {
				return false
			}
		}
		err = walkSchema(propPath, prop, visit)
		return err == nil
	})
	if err != nil {
		return err
	}

	if err := walkSchema(path+".items", s.Items, visit); err != nil {
		return err
	}
	for _, group := range []struct {
		keyword string
		schemas []*document.Schema
	}{
		{"allOf", s.AllOf},
		{"oneOf", s.OneOf},
		{"anyOf", s.AnyOf},
	} {
		for i, sub := range group.schemas {
			if err := walkSchema(fmt.Sprintf("%s.%s[%d]", path, group.keyword, i), sub, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// displayPath trims the schema plumbing from a walk path for messages
func displayPath(path string) string {
	path = strings.ReplaceAll(path, ".properties.", ".")
	return strings.ReplaceAll(path, ".schema.", ".")
}
