package lexer

import "fmt"

// Kind identifies the lexical class of a token
type Kind int

const (
	Bad Kind = iota
	LeftParen
	RightParen
	LeftCurlyBrace
	RightCurlyBrace
	LeftSquareBrace
	RightSquareBrace
	Colon
	Comma
	Literal
	Number
	Eof
)

var kindNames = map[Kind]string{
	Bad:              "Bad",
	LeftParen:        "LeftParen",
	RightParen:       "RightParen",
	LeftCurlyBrace:   "LeftCurlyBrace",
	RightCurlyBrace:  "RightCurlyBrace",
	LeftSquareBrace:  "LeftSquareBrace",
	RightSquareBrace: "RightSquareBrace",
	Colon:            "Colon",
	Comma:            "Comma",
	Literal:          "Literal",
	Number:           "Number",
	Eof:              "Eof",
}

// String returns the name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// punctuation maps single-character punctuation to its kind
var punctuation = map[rune]Kind{
	'(': LeftParen,
	')': RightParen,
	'{': LeftCurlyBrace,
	'}': RightCurlyBrace,
	'[': LeftSquareBrace,
	']': RightSquareBrace,
	':': Colon,
	',': Comma,
}

// Span is the byte range a token covers in the source. End is exclusive and
// never less than Start; Text is exactly input[Start:End].
type Span struct {
	Start int
	End   int
	Text  string
}

// Len returns the number of bytes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Token is a single lexical unit
type Token struct {
	Kind Kind
	Span Span
	// Line is the 1-based line the token starts on
	Line int
}

// String returns a debug representation of the token
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Span.Text, t.Span.Start, t.Span.End)
}
