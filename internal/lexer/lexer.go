// Package lexer tokenizes the JSON-like serialization used by OpenAPI
// documents.
//
// The tokenizer walks the input once with a forward-only byte cursor, so
// multi-byte text costs the same as ASCII and offsets in every Span are byte
// offsets into the original string.
package lexer

import (
	"errors"
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/propenster/rustysec/internal/scanerr"
)

// Tokenizer produces tokens from an input string
type Tokenizer struct {
	input string
	pos   int
	line  int
	done  bool
	err   error
}

// New creates a new Tokenizer over input
func New(input string) *Tokenizer {
	return &Tokenizer{
		input: input,
		line:  1,
	}
}

// Next returns the next token.
//
// At the end of input it returns a single Eof token; every later call
// returns io.EOF. An unterminated quoted literal yields a Bad token together
// with a *scanerr.LexError and tokenization may continue. A malformed number
// yields a *scanerr.NumberFormatError, which is returned again by every later
// call.
func (t *Tokenizer) Next() (Token, error) {
	if t.err != nil {
		return Token{}, t.err
	}
	if t.done {
		return Token{}, io.EOF
	}

	t.skipWhitespace()

	if t.pos >= len(t.input) {
		t.done = true
		return t.token(Eof, t.pos, t.pos, t.line), nil
	}

	r, size := utf8.DecodeRuneInString(t.input[t.pos:])
	if kind, ok := punctuation[r]; ok {
		start := t.pos
		t.pos += size
		return t.token(kind, start, t.pos, t.line), nil
	}

	switch {
	case r == '"':
		return t.consumeLiteral()
	case isDigit(r):
		return t.consumeNumber()
	default:
		return t.consumeBad(), nil
	}
}

// Tokenize collects every token of input up to and including Eof.
// Recoverable lexical errors are joined into the returned error while
// tokenization continues; a hard error stops it.
func Tokenize(input string) ([]Token, error) {
	t := New(input)
	var (
		tokens []Token
		soft   []error
	)
	for {
		tok, err := t.Next()
		if err != nil {
			var lexErr *scanerr.LexError
			if !errors.As(err, &lexErr) {
				return tokens, err
			}
			soft = append(soft, err)
		}
		tokens = append(tokens, tok)
		if tok.Kind == Eof {
			return tokens, errors.Join(soft...)
		}
	}
}

func (t *Tokenizer) token(kind Kind, start, end, line int) Token {
	return Token{
		Kind: kind,
		Span: Span{Start: start, End: end, Text: t.input[start:end]},
		Line: line,
	}
}

func (t *Tokenizer) skipWhitespace() {
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		if r == '\n' {
			t.line++
		}
		t.pos += size
	}
}

// consumeLiteral reads a quoted literal. The span excludes both quotes.
// The quote and backslash bytes never occur inside a multi-byte sequence,
// so scanning bytes is safe here.
func (t *Tokenizer) consumeLiteral() (Token, error) {
	quote := t.pos
	line := t.line
	t.pos++
	start := t.pos

	for t.pos < len(t.input) {
		switch t.input[t.pos] {
		case '\\':
			if t.pos+1 < len(t.input) && t.input[t.pos+1] == '\n' {
				t.line++
			}
			t.pos += 2
			continue
		case '"':
			tok := t.token(Literal, start, t.pos, line)
			t.pos++
			return tok, nil
		case '\n':
			t.line++
		}
		t.pos++
	}

	t.pos = len(t.input)
	return t.token(Bad, quote, t.pos, line), &scanerr.LexError{
		Offset: quote,
		Line:   line,
		Cause:  scanerr.ErrUnterminatedLiteral,
	}
}

func (t *Tokenizer) consumeNumber() (Token, error) {
	start := t.pos
	dots := 0
	for t.pos < len(t.input) {
		c := t.input[t.pos]
		if c == '.' {
			dots++
		} else if !isDigit(rune(c)) {
			break
		}
		t.pos++
	}

	if dots > 1 {
		t.err = &scanerr.NumberFormatError{Offset: start, Text: t.input[start:t.pos]}
		return Token{}, t.err
	}
	return t.token(Number, start, t.pos, t.line), nil
}

// consumeBad groups a run of unrecognized characters into one Bad token
func (t *Tokenizer) consumeBad() Token {
	start := t.pos
	for t.pos < len(t.input) {
		r, size := utf8.DecodeRuneInString(t.input[t.pos:])
		if unicode.IsSpace(r) || r == '"' || isDigit(r) {
			break
		}
		if _, ok := punctuation[r]; ok {
			break
		}
		t.pos += size
	}
	return t.token(Bad, start, t.pos, t.line)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
