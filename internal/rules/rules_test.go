package rules

import (
	"errors"
	"testing"

	"github.com/propenster/rustysec/internal/document"
	"github.com/propenster/rustysec/internal/scanerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleByID(t *testing.T, id string) Rule {
	t.Helper()
	for _, r := range Defaults() {
		if r.ID == id {
			return r
		}
	}
	t.Fatalf("rule %s not found", id)
	return Rule{}
}

const nestedSchemas = `{
  "openapi": "3.0.0",
  "paths": {
    "/orders": {
      "post": {
        "parameters": [
          {"name": "q", "in": "query", "schema": {"type": "string", "maxLength": 10, "pattern": "^a"}},
          {"name": "page", "in": "query", "schema": {"type": "integer"}}
        ],
        "requestBody": {
          "content": {
            "application/json": {
              "schema": {
                "type": "object",
                "properties": {
                  "lines": {
                    "type": "array",
                    "items": {
                      "type": "object",
                      "properties": {
                        "sku": {"type": "string", "format": "sku-code"},
                        "tags": {"type": "array", "maxItems": 5, "items": {"type": "string"}}
                      }
                    }
                  }
                }
              }
            }
          }
        },
        "responses": {"201": {"description": "created"}}
      }
    }
  },
  "components": {
    "schemas": {
      "Order": {
        "allOf": [
          {"$ref": "#/components/schemas/Base"},
          {"type": "object", "properties": {"notes": {"type": "string", "format": "email"}}}
        ]
      },
      "Base": {
        "type": "object",
        "properties": {"owner": {"$ref": "#/components/schemas/Owner"}}
      }
    }
  }
}`

func TestPropertyRules(t *testing.T) {
	doc := parseDoc(t, nestedSchemas)

	tests := []struct {
		id    string
		paths []string
	}{
		{"R3", []string{
			"paths./orders.post.requestBody.content.application/json.schema.properties.lines",
		}},
		{"R4", []string{
			"paths./orders.post.requestBody.content.application/json.schema.properties.lines.items.properties.sku",
			"components.schemas.Order.allOf[1].properties.notes",
		}},
		{"R5", []string{
			"paths./orders.post.requestBody.content.application/json.schema.properties.lines.items.properties.sku",
			"components.schemas.Order.allOf[1].properties.notes",
		}},
		{"R6", []string{
			"paths./orders.post.requestBody.content.application/json.schema.properties.lines.items.properties.sku",
		}},
		{"R7", []string{
			"paths./orders.post.parameters.page",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			matches, err := ruleByID(t, tt.id).Check(doc)
			require.NoError(t, err)
			paths := make([]string, 0, len(matches))
			for _, m := range matches {
				paths = append(paths, m.Path)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestUndocumentedMediaTypeRule(t *testing.T) {
	doc := parseDoc(t, `{
  "openapi": "3.0.0",
  "paths": {
    "/a": {
      "delete": {"responses": {"204": {"description": "gone", "content": {"application/json": {}}}}},
      "get": {"responses": {"200": {"description": "ok", "content": {
        "application/json": {"schema": {"type": "object"}},
        "application/xml": {}
      }}}}
    }
  }
}`)

	matches, err := ruleByID(t, "R2").Check(doc)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// get is visited before delete regardless of declaration order
	assert.Equal(t, "paths./a.get.responses.200.content.application/xml", matches[0].Path)
	assert.Equal(t, "paths./a.delete.responses.204.content.application/json", matches[1].Path)
	assert.Equal(t, `"application/xml" of GET /a response 200`, matches[0].Subject)
}

func TestSecurityRules(t *testing.T) {
	doc := parseDoc(t, `{
  "openapi": "3.0.0",
  "servers": [{"url": "HTTP://legacy.example.com"}, {"url": "https://api.example.com"}],
  "security": [{"key": []}],
  "paths": {
    "/health": {
      "get": {"security": [], "responses": {"200": {"description": "ok"}}}
    },
    "/guest": {
      "get": {"security": [{}], "responses": {"429": {"description": "slow down"}}}
    },
    "/me": {
      "get": {"responses": {"200": {"description": "ok"}, "429": {"description": "slow down"}}}
    }
  },
  "components": {
    "securitySchemes": {
      "key": {"type": "apiKey", "name": "X-Key", "in": "header"},
      "broken": {"type": "oauth2"}
    }
  }
}`)

	tests := []struct {
		id    string
		paths []string
	}{
		{"R8", []string{"servers[0]"}},
		{"R9", nil},
		{"R10", []string{"securitySchemes.broken"}},
		{"R11", []string{"paths./health.get", "paths./guest.get"}},
		{"R12", []string{"paths./health.get.responses"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			matches, err := ruleByID(t, tt.id).Check(doc)
			require.NoError(t, err)
			var paths []string
			for _, m := range matches {
				paths = append(paths, m.Path)
			}
			assert.Equal(t, tt.paths, paths)
		})
	}
}

func TestNoSecuritySchemesRule(t *testing.T) {
	doc := parseDoc(t, `{"openapi": "3.0.0", "paths": {}}`)
	matches, err := ruleByID(t, "R9").Check(doc)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func matchPaths(t *testing.T, id string, doc document.Document) []string {
	t.Helper()
	matches, err := ruleByID(t, id).Check(doc)
	require.NoError(t, err)
	var paths []string
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	return paths
}

const referencedComponents = `{
  "openapi": "3.0.0",
  "paths": {
    "/items": {
      "parameters": [{"$ref": "#/components/parameters/Filter"}],
      "post": {
        "requestBody": {"$ref": "#/components/requestBodies/Item"},
        "responses": {
          "404": {"$ref": "#/components/responses/NotFound"},
          "410": {"$ref": "#/components/responses/Gone"}
        }
      }
    }
  },
  "components": {
    "parameters": {
      "Filter": {"name": "q", "in": "query", "schema": {"type": "string"}}
    },
    "requestBodies": {
      "Item": {"content": {"application/json": {"schema": {
        "type": "object",
        "properties": {"tags": {"type": "array"}}
      }}}}
    },
    "responses": {
      "NotFound": {"description": "missing", "content": {"application/json": {}}},
      "Gone": {"$ref": "#/components/responses/NotFound"}
    }
  }
}`

func TestReferencedComponentsAreChecked(t *testing.T) {
	doc := parseDoc(t, referencedComponents)

	tests := []struct {
		id    string
		paths []string
	}{
		{"R2", []string{
			"paths./items.post.responses.404.content.application/json",
			"paths./items.post.responses.410.content.application/json",
		}},
		{"R3", []string{
			"paths./items.post.requestBody.content.application/json.schema.properties.tags",
		}},
		{"R4", []string{"paths./items.post.parameters.q"}},
		{"R5", []string{"paths./items.post.parameters.q"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.paths, matchPaths(t, tt.id, doc))
		})
	}

	components := doc.Components()
	assert.Equal(t, []string{"Filter"}, components.Parameters.Keys())
	assert.Equal(t, []string{"Item"}, components.RequestBodies.Keys())
	assert.Equal(t, []string{"NotFound", "Gone"}, components.Responses.Keys())
	gone, _ := components.Responses.Get("Gone")
	assert.Equal(t, 1, gone.Content.Len())
}

func TestReferencedSwaggerSectionsAreChecked(t *testing.T) {
	doc := parseDoc(t, `{
  "swagger": "2.0",
  "info": {"title": "t", "version": "1"},
  "host": "api.example.com",
  "schemes": ["https"],
  "paths": {
    "/items": {
      "get": {
        "parameters": [{"$ref": "#/parameters/limit"}],
        "responses": {"404": {"$ref": "#/responses/NotFound"}}
      },
      "post": {
        "parameters": [{"$ref": "#/parameters/itemBody"}],
        "responses": {"201": {"description": "created"}}
      }
    }
  },
  "parameters": {
    "limit": {"name": "limit", "in": "query", "type": "integer"},
    "itemBody": {"name": "body", "in": "body", "required": true, "schema": {
      "type": "object",
      "properties": {"name": {"type": "string", "maxLength": 64}}
    }}
  },
  "responses": {
    "NotFound": {"description": "missing", "schema": {
      "type": "object",
      "properties": {"ids": {"type": "array"}}
    }}
  }
}`)

	tests := []struct {
		id    string
		paths []string
	}{
		{"R3", []string{
			"paths./items.get.responses.404.content.application/json.schema.properties.ids",
		}},
		{"R5", []string{
			"paths./items.post.requestBody.content.application/json.schema.properties.name",
		}},
		{"R7", []string{"paths./items.get.parameters.limit"}},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.paths, matchPaths(t, tt.id, doc))
		})
	}

	assert.Equal(t, []string{"limit", "itemBody"}, doc.Components().Parameters.Keys())
	assert.Equal(t, []string{"NotFound"}, doc.Components().Responses.Keys())
}

func TestSwaggerMalformedBounds(t *testing.T) {
	tests := []struct {
		name      string
		maxLength string
		wantErr   bool
	}{
		{"fractional bound", `5.5`, false},
		{"string bound", `"10"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, `{
  "swagger": "2.0",
  "info": {"title": "t", "version": "1"},
  "paths": {},
  "definitions": {
    "User": {
      "type": "object",
      "properties": {
        "name": {"type": "string", "pattern": "^a", "maxLength": `+tt.maxLength+`}
      }
    }
  }
}`)

			matches, err := ruleByID(t, "R4").Check(doc)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Empty(t, matches)
				return
			}
			var dvErr *scanerr.DataValidationError
			require.True(t, errors.As(err, &dvErr))
			assert.Equal(t, "definitions.User.properties.name", dvErr.Path)
			assert.Equal(t, 9, dvErr.Line)
		})
	}
}
