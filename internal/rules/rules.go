// Package rules evaluates a parsed Document against a battery of API hygiene
// checks and scores the result.
package rules

import (
	"fmt"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/document"
	"github.com/propenster/rustysec/internal/scanerr"
)

// Match is one place in a document a rule fires on
type Match struct {
	Line int
	Path string
	// Subject fills the rule's message template
	Subject string
}

// Check finds every match of a rule in doc. An error aborts the scan.
type Check func(doc document.Document) ([]Match, error)

// Rule is one entry of the rule table
type Rule struct {
	ID      string
	Title   string
	Dialect dialect.SpecDialect
	Counter Counter
	Weight  Weight
	// Message is a fmt template; %s is replaced by the match subject
	Message string
	Check   Check
}

// Fixable builds the finding for one match
func (r Rule) Fixable(m Match) Fixable {
	msg := r.Message
	if strings.Contains(msg, "%s") {
		msg = fmt.Sprintf(msg, m.Subject)
	}
	return Fixable{
		RuleID:   r.ID,
		Message:  msg,
		Line:     m.Line,
		Weight:   r.Weight,
		Severity: r.Weight.String(),
		Category: CategoryOf(r.Weight),
		Counter:  r.Counter,
		Path:     m.Path,
	}
}

// Defaults returns the built-in rule battery in evaluation order
func Defaults() []Rule {
	return []Rule{
		{
			ID:      "R1",
			Title:   "Missing server base URL",
			Dialect: dialect.OpenApiRest,
			Counter: CounterSecurity,
			Weight:  Critical,
			Message: "No server base URL is declared; clients cannot tell which host the API is served from",
			Check:   checkMissingServer,
		},
		{
			ID:      "R2",
			Title:   "Undocumented media-type schema",
			Dialect: dialect.OpenApiRest,
			Counter: CounterDataValidation,
			Weight:  Medium,
			Message: "Response content %s has no schema",
			Check:   checkUndocumentedMediaType,
		},
		{
			ID:      "R3",
			Title:   "Unbounded array property",
			Dialect: dialect.OpenApiRest,
			Counter: CounterDataValidation,
			Weight:  High,
			Message: "Array property %s has no maxItems bound",
			Check:   checkProperties("maxItems", unboundedArray),
		},
		{
			ID:      "R4",
			Title:   "Unbounded string property",
			Dialect: dialect.OpenApiRest,
			Counter: CounterDataValidation,
			Weight:  Medium,
			Message: "String property %s has no maxLength bound",
			Check:   checkProperties("maxLength", unboundedString),
		},
		{
			ID:      "R5",
			Title:   "Unvalidated string property",
			Dialect: dialect.OpenApiRest,
			Counter: CounterDataValidation,
			Weight:  Medium,
			Message: "String property %s has no validation pattern",
			Check:   checkProperties("pattern", unvalidatedString),
		},
		{
			ID:      "R6",
			Title:   "Unknown string format",
			Dialect: dialect.OpenApiRest,
			Counter: CounterDataValidation,
			Weight:  Minimum,
			Message: "String property %s uses an unregistered format",
			Check:   checkProperties("format", unknownFormat),
		},
		{
			ID:      "R7",
			Title:   "Unbounded numeric property",
			Dialect: dialect.OpenApiRest,
			Counter: CounterDataValidation,
			Weight:  Minimum,
			Message: "Numeric property %s has no maximum",
			Check:   checkProperties("maximum", unboundedNumber),
		},
		{
			ID:      "R8",
			Title:   "Plain HTTP server",
			Dialect: dialect.OpenApiRest,
			Counter: CounterSecurity,
			Weight:  Medium,
			Message: "Server %s is served over plain HTTP",
			Check:   checkPlainHTTPServers,
		},
		{
			ID:      "R9",
			Title:   "No security schemes",
			Dialect: dialect.OpenApiRest,
			Counter: CounterSecurity,
			Weight:  High,
			Message: "No security schemes are declared",
			Check:   checkNoSecuritySchemes,
		},
		{
			ID:      "R10",
			Title:   "Invalid security scheme",
			Dialect: dialect.OpenApiRest,
			Counter: CounterSecurity,
			Weight:  Medium,
			Message: "Security scheme %s",
			Check:   checkInvalidSecuritySchemes,
		},
		{
			ID:      "R11",
			Title:   "Unprotected operation",
			Dialect: dialect.OpenApiRest,
			Counter: CounterSecurity,
			Weight:  Medium,
			Message: "Operation %s has no security requirement",
			Check:   checkUnprotectedOperations,
		},
		{
			ID:      "R12",
			Title:   "No rate limit response",
			Dialect: dialect.OpenApiRest,
			Counter: CounterSecurity,
			Weight:  Minimum,
			Message: "Operation %s does not document a 429 response",
			Check:   checkMissingRateLimit,
		},
	}
}

func checkMissingServer(doc document.Document) ([]Match, error) {
	servers := doc.Servers()
	for _, s := range servers {
		if s.URL != "" {
			return nil, nil
		}
	}
	m := Match{Path: "servers"}
	if len(servers) > 0 {
		m.Line = servers[0].Line
	}
	return []Match{m}, nil
}

func checkUndocumentedMediaType(doc document.Document) ([]Match, error) {
	var matches []Match
	err := walkOperations(doc, func(path string, op *document.Operation) error {
		op.Responses.Range(func(status string, resp *document.Response) bool {
			resp.Content.Range(func(name string, mt *document.MediaType) bool {
				if !mt.HasSchema() {
					matches = append(matches, Match{
						Line:    mt.Line,
						Path:    fmt.Sprintf("%s.responses.%s.content.%s", path, status, name),
						Subject: fmt.Sprintf("%q of %s %s response %s", name, strings.ToUpper(string(op.Method)), op.Path, status),
					})
				}
				return true
			})
			return true
		})
		return nil
	})
	return matches, err
}

// propertyPredicate reports whether a property violates a rule. Malformed
// keyword values are returned as an error message.
type propertyPredicate func(prop *document.Schema) (bool, string)

// checkProperties runs pred on every property of the document
func checkProperties(keyword string, pred propertyPredicate) Check {
	return func(doc document.Document) ([]Match, error) {
		var matches []Match
		err := walkProperties(doc, func(path string, prop *document.Schema) error {
			hit, problem := pred(prop)
			if problem != "" {
				return &scanerr.DataValidationError{
					Path:    path,
					Line:    prop.Line,
					Message: fmt.Sprintf("%s %s", keyword, problem),
				}
			}
			if hit {
				matches = append(matches, Match{
					Line:    prop.Line,
					Path:    path,
					Subject: displayPath(path),
				})
			}
			return nil
		})
		return matches, err
	}
}

// missingBound tells an absent bound from a malformed one
func missingBound(bound *document.Node) (bool, string) {
	if bound == nil {
		return true, ""
	}
	if _, ok := bound.Float(); !ok {
		return false, fmt.Sprintf("must be a number, found %s", bound.Kind)
	}
	return false, ""
}

func unboundedArray(prop *document.Schema) (bool, string) {
	if !prop.HasType("array") {
		return false, ""
	}
	return missingBound(prop.MaxItems)
}

func unboundedString(prop *document.Schema) (bool, string) {
	if !prop.HasType("string") {
		return false, ""
	}
	return missingBound(prop.MaxLength)
}

func unvalidatedString(prop *document.Schema) (bool, string) {
	return prop.HasType("string") && prop.Pattern == "", ""
}

func unknownFormat(prop *document.Schema) (bool, string) {
	if !prop.HasType("string") || prop.Format == "" {
		return false, ""
	}
	return !strfmt.Default.ContainsName(prop.Format), ""
}

func unboundedNumber(prop *document.Schema) (bool, string) {
	if !prop.HasType("number") && !prop.HasType("integer") {
		return false, ""
	}
	return missingBound(prop.Maximum)
}

func checkPlainHTTPServers(doc document.Document) ([]Match, error) {
	var matches []Match
	for i, s := range doc.Servers() {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(s.URL)), "http://") {
			matches = append(matches, Match{
				Line:    s.Line,
				Path:    fmt.Sprintf("servers[%d]", i),
				Subject: s.URL,
			})
		}
	}
	return matches, nil
}

func checkNoSecuritySchemes(doc document.Document) ([]Match, error) {
	if doc.SecuritySchemes().Len() > 0 {
		return nil, nil
	}
	return []Match{{Path: "securitySchemes"}}, nil
}

func checkInvalidSecuritySchemes(doc document.Document) ([]Match, error) {
	var matches []Match
	doc.SecuritySchemes().Range(func(name string, s *document.SecurityScheme) bool {
		if s.Problem != nil {
			matches = append(matches, Match{
				Line:    s.Line,
				Path:    "securitySchemes." + name,
				Subject: fmt.Sprintf("%q is invalid: %v", name, s.Problem),
			})
		}
		return true
	})
	return matches, nil
}

// protected reports whether any requirement names at least one scheme. An
// empty requirement object allows anonymous access.
func protected(reqs []document.SecurityRequirement) bool {
	for _, req := range reqs {
		if len(req) > 0 {
			return true
		}
	}
	return false
}

func checkUnprotectedOperations(doc document.Document) ([]Match, error) {
	global := doc.SecurityRequirements()
	var matches []Match
	err := walkOperations(doc, func(path string, op *document.Operation) error {
		reqs := global
		if op.SecurityDeclared {
			reqs = op.Security
		}
		if !protected(reqs) {
			matches = append(matches, Match{Line: op.Line, Path: path, Subject: operationName(op)})
		}
		return nil
	})
	return matches, err
}

func checkMissingRateLimit(doc document.Document) ([]Match, error) {
	var matches []Match
	err := walkOperations(doc, func(path string, op *document.Operation) error {
		if _, ok := op.Responses.Get("429"); !ok {
			matches = append(matches, Match{Line: op.Line, Path: path + ".responses", Subject: operationName(op)})
		}
		return nil
	})
	return matches, err
}

func operationName(op *document.Operation) string {
	return strings.ToUpper(string(op.Method)) + " " + op.Path
}
