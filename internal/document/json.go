package document

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/propenster/rustysec/internal/lexer"
)

// maxDepth bounds object/array nesting so hostile input cannot exhaust the stack
const maxDepth = 512

var jsonNumber = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// SyntaxError describes malformed structured data
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// jsonParser is a recursive-descent parser over lexer tokens
type jsonParser struct {
	tz    *lexer.Tokenizer
	tok   lexer.Token
	depth int
}

// parseJSON builds a node tree from JSON text
func parseJSON(text string) (*Node, error) {
	p := &jsonParser{tz: lexer.New(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	root, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != lexer.Eof {
		return nil, p.unexpected("end of input")
	}
	return root, nil
}

func (p *jsonParser) advance() error {
	tok, err := p.tz.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *jsonParser) unexpected(want string) error {
	found := p.tok.Kind.String()
	if p.tok.Kind != lexer.Eof {
		found = fmt.Sprintf("%s %q", found, p.tok.Span.Text)
	}
	return &SyntaxError{Line: p.tok.Line, Msg: fmt.Sprintf("expected %s, found %s", want, found)}
}

func (p *jsonParser) parseValue() (*Node, error) {
	switch p.tok.Kind {
	case lexer.LeftCurlyBrace:
		return p.parseObject()
	case lexer.LeftSquareBrace:
		return p.parseArray()
	case lexer.Literal:
		return p.parseString()
	case lexer.Number, lexer.Bad:
		return p.parseScalar()
	default:
		return nil, p.unexpected("a value")
	}
}

func (p *jsonParser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return &SyntaxError{Line: p.tok.Line, Msg: fmt.Sprintf("nesting deeper than %d levels", maxDepth)}
	}
	return nil
}

func (p *jsonParser) parseObject() (*Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	node := &Node{Kind: ObjectNode, Line: p.tok.Line}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.RightCurlyBrace {
		return node, p.advance()
	}

	for {
		if p.tok.Kind != lexer.Literal {
			return nil, p.unexpected("an object key")
		}
		key, err := unescape(p.tok)
		if err != nil {
			return nil, err
		}
		keyLine := p.tok.Line

		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != lexer.Colon {
			return nil, p.unexpected("':'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		node.Fields = append(node.Fields, Field{Key: key, Line: keyLine, Value: value})

		switch p.tok.Kind {
		case lexer.Comma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case lexer.RightCurlyBrace:
			return node, p.advance()
		default:
			return nil, p.unexpected("',' or '}'")
		}
	}
}

func (p *jsonParser) parseArray() (*Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	node := &Node{Kind: ArrayNode, Line: p.tok.Line}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.RightSquareBrace {
		return node, p.advance()
	}

	for {
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)

		switch p.tok.Kind {
		case lexer.Comma:
			if err := p.advance(); err != nil {
				return nil, err
			}
		case lexer.RightSquareBrace:
			return node, p.advance()
		default:
			return nil, p.unexpected("',' or ']'")
		}
	}
}

func (p *jsonParser) parseString() (*Node, error) {
	value, err := unescape(p.tok)
	if err != nil {
		return nil, err
	}
	node := &Node{Kind: StringNode, Value: value, Line: p.tok.Line}
	return node, p.advance()
}

// parseScalar joins byte-adjacent Number and Bad tokens into one bare
// literal, so "-1", "1e5" and "true" arrive as a single scalar.
func (p *jsonParser) parseScalar() (*Node, error) {
	line := p.tok.Line
	var sb strings.Builder
	end := p.tok.Span.Start
	for (p.tok.Kind == lexer.Number || p.tok.Kind == lexer.Bad) && p.tok.Span.Start == end {
		sb.WriteString(p.tok.Span.Text)
		end = p.tok.Span.End
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	text := sb.String()
	switch {
	case text == "true" || text == "false":
		return &Node{Kind: BoolNode, Value: text, Line: line}, nil
	case text == "null":
		return &Node{Kind: NullNode, Value: text, Line: line}, nil
	case jsonNumber.MatchString(text):
		return &Node{Kind: NumberNode, Value: text, Line: line}, nil
	default:
		return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("invalid literal %q", text)}
	}
}

// unescape resolves JSON escape sequences in a literal token. Raw control
// characters are rejected, as encoding/json does.
func unescape(tok lexer.Token) (string, error) {
	raw := tok.Span.Text
	for i := 0; i < len(raw); i++ {
		if raw[i] < 0x20 {
			return "", &SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("control character %#x in string literal", raw[i])}
		}
	}
	if !strings.Contains(raw, `\`) {
		return raw, nil
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err != nil {
		return "", &SyntaxError{Line: tok.Line, Msg: fmt.Sprintf("invalid escape in %q", raw)}
	}
	return s, nil
}
