// Package scanerr provides the error kinds produced while scanning an API
// specification document.
//
// Each typed error matches its sentinel through errors.Is, so callers can
// branch on the category without a type assertion:
//
//	report, err := s.Scan(text)
//	if errors.Is(err, scanerr.ErrInvalidSpecificationType) {
//	    // neither OpenAPI nor WSDL
//	}
package scanerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrInvalidInputText indicates an empty document.
	ErrInvalidInputText = errors.New("invalid input text: specification text is empty")

	// ErrInvalidSpecificationType indicates the dialect could not be classified.
	ErrInvalidSpecificationType = errors.New("invalid specification type: expected an OpenAPI or SOAP WSDL document")

	// ErrParseFailed indicates a structural parse failure for a recognized dialect.
	ErrParseFailed = errors.New("parse failed")

	// ErrNumberFormat indicates a malformed numeric token.
	ErrNumberFormat = errors.New("number format error")

	// ErrUnterminatedLiteral indicates a quoted literal without a closing quote.
	ErrUnterminatedLiteral = errors.New("unterminated literal")

	// ErrDataValidation indicates a rule precondition could not be evaluated.
	ErrDataValidation = errors.New("data validation error")

	// ErrIncompatibleSpecification indicates a rule ran against a document of another dialect.
	ErrIncompatibleSpecification = errors.New("incompatible specification and document type")

	// ErrUnsupportedDialect indicates a recognized dialect that has no parser yet.
	ErrUnsupportedDialect = errors.New("dialect not supported")
)

// ParseError represents a structural parse failure for a recognized dialect.
type ParseError struct {
	// Dialect is the human-readable name of the dialect being parsed
	Dialect string
	// Line is the 1-based line of the failure (0 if unknown)
	Line int
	// Cause is the underlying error
	Cause error
}

// Error returns a human-readable error message.
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("error parsing %s type specification", e.Dialect)
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error chaining.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error type.
func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailed
}

// NumberFormatError represents a numeric literal with more than one decimal point.
type NumberFormatError struct {
	// Offset is the byte offset where the literal starts
	Offset int
	// Text is the offending literal
	Text string
}

// Error returns a human-readable error message.
func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("number format error at offset %d: %q has more than one decimal point", e.Offset, e.Text)
}

// Is reports whether target matches this error type.
func (e *NumberFormatError) Is(target error) bool {
	return target == ErrNumberFormat
}

// LexError represents a recoverable lexical problem. Tokenization can
// continue past it.
type LexError struct {
	// Offset is the byte offset of the problem
	Offset int
	// Line is the 1-based line of the problem
	Line int
	// Cause is the sentinel describing the problem
	Cause error
}

// Error returns a human-readable error message.
func (e *LexError) Error() string {
	return fmt.Sprintf("lexical error at line %d (offset %d): %v", e.Line, e.Offset, e.Cause)
}

// Unwrap returns the underlying cause for error chaining.
func (e *LexError) Unwrap() error {
	return e.Cause
}

// DataValidationError represents a rule that could not evaluate its precondition.
type DataValidationError struct {
	Rule    string
	Path    string
	Line    int
	Message string
}

// Error returns a human-readable error message.
func (e *DataValidationError) Error() string {
	msg := "data validation error"
	if e.Rule != "" {
		msg += " in rule " + e.Rule
	}
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	return msg + ": " + e.Message
}

// Is reports whether target matches this error type.
func (e *DataValidationError) Is(target error) bool {
	return target == ErrDataValidation
}

// IncompatibleSpecificationError represents a rule for one dialect invoked
// against a document of another.
type IncompatibleSpecificationError struct {
	Rule     string
	Expected string
	Actual   string
}

// Error returns a human-readable error message.
func (e *IncompatibleSpecificationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("incompatible specification and document type: scan requested for %s, document is %s", e.Expected, e.Actual)
	}
	return fmt.Sprintf("incompatible specification and document type: rule %s applies to %s, document is %s", e.Rule, e.Expected, e.Actual)
}

// Is reports whether target matches this error type.
func (e *IncompatibleSpecificationError) Is(target error) bool {
	return target == ErrIncompatibleSpecification
}
