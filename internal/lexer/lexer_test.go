package lexer

import (
	"errors"
	"io"
	"testing"

	"github.com/propenster/rustysec/internal/scanerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []Kind {
	out := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, tok.Kind)
	}
	return out
}

func TestTokenizeEmptyObject(t *testing.T) {
	tokens, err := Tokenize("{}")
	require.NoError(t, err)
	assert.Equal(t, []Kind{LeftCurlyBrace, RightCurlyBrace, Eof}, kinds(tokens))

	// spans are contiguous and do not overlap
	for i := 1; i < len(tokens); i++ {
		assert.Equal(t, tokens[i-1].Span.End, tokens[i].Span.Start)
	}
	assert.Equal(t, Span{Start: 2, End: 2, Text: ""}, tokens[2].Span)
}

func TestTokenizeQuotedLiteral(t *testing.T) {
	tokens, err := Tokenize(`"ab"`)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, Literal, tokens[0].Kind)
	assert.Equal(t, "ab", tokens[0].Span.Text)
	assert.Equal(t, 1, tokens[0].Span.Start)
	assert.Equal(t, 3, tokens[0].Span.End)
	assert.Equal(t, Eof, tokens[1].Kind)
}

func TestTokenizeNumbers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"integer", "42", []string{"42"}, false},
		{"decimal", "3.14", []string{"3.14"}, false},
		{"two numbers", "1, 2", []string{"1", "2"}, false},
		{"two dots", "1.2.3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, scanerr.ErrNumberFormat)
				return
			}
			require.NoError(t, err)
			var got []string
			for _, tok := range tokens {
				if tok.Kind == Number {
					got = append(got, tok.Span.Text)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumberFormatErrorIsSticky(t *testing.T) {
	tz := New("1.2.3 {}")
	_, err := tz.Next()
	require.ErrorIs(t, err, scanerr.ErrNumberFormat)

	_, err = tz.Next()
	assert.ErrorIs(t, err, scanerr.ErrNumberFormat)
}

func TestPunctuation(t *testing.T) {
	tokens, err := Tokenize(" ( ) { } [ ] : , ")
	require.NoError(t, err)
	assert.Equal(t, []Kind{
		LeftParen, RightParen, LeftCurlyBrace, RightCurlyBrace,
		LeftSquareBrace, RightSquareBrace, Colon, Comma, Eof,
	}, kinds(tokens))
}

func TestBadTokensDoNotAbort(t *testing.T) {
	tokens, err := Tokenize(`{"ok": true, "n": -1}`)
	require.NoError(t, err)
	assert.Equal(t, []Kind{
		LeftCurlyBrace, Literal, Colon, Bad, Comma, Literal, Colon, Bad, Number, RightCurlyBrace, Eof,
	}, kinds(tokens))
	assert.Equal(t, "true", tokens[3].Span.Text)
	assert.Equal(t, "-", tokens[7].Span.Text)
	assert.Equal(t, tokens[7].Span.End, tokens[8].Span.Start)
}

func TestEofReturnedOnce(t *testing.T) {
	tz := New("  ")
	tok, err := tz.Next()
	require.NoError(t, err)
	assert.Equal(t, Eof, tok.Kind)

	for i := 0; i < 3; i++ {
		_, err = tz.Next()
		assert.True(t, errors.Is(err, io.EOF))
	}
}

func TestUnterminatedLiteralIsRecoverable(t *testing.T) {
	tz := New(`{"name`)
	tok, err := tz.Next()
	require.NoError(t, err)
	assert.Equal(t, LeftCurlyBrace, tok.Kind)

	tok, err = tz.Next()
	assert.ErrorIs(t, err, scanerr.ErrUnterminatedLiteral)
	assert.Equal(t, Bad, tok.Kind)
	assert.Equal(t, `"name`, tok.Span.Text)

	tok, err = tz.Next()
	require.NoError(t, err)
	assert.Equal(t, Eof, tok.Kind)
}

func TestEscapedQuoteInsideLiteral(t *testing.T) {
	tokens, err := Tokenize(`"say \"hi\""`)
	require.NoError(t, err)
	assert.Equal(t, `say \"hi\"`, tokens[0].Span.Text)
}

func TestMultiByteOffsets(t *testing.T) {
	input := `{"名前": "värde", "n": 7}`
	tokens, err := Tokenize(input)
	require.NoError(t, err)

	for _, tok := range tokens {
		assert.GreaterOrEqual(t, tok.Span.End, tok.Span.Start)
		assert.Equal(t, input[tok.Span.Start:tok.Span.End], tok.Span.Text)
	}
	assert.Equal(t, "名前", tokens[1].Span.Text)
	assert.Equal(t, "värde", tokens[3].Span.Text)
	assert.Equal(t, "7", tokens[7].Span.Text)
}

func TestMultiByteBadRun(t *testing.T) {
	tokens, err := Tokenize("ü€ 1")
	require.NoError(t, err)
	assert.Equal(t, []Kind{Bad, Number, Eof}, kinds(tokens))
	assert.Equal(t, "ü€", tokens[0].Span.Text)
}

func TestLineTracking(t *testing.T) {
	tokens, err := Tokenize("{\n  \"a\":\n  1\n}")
	require.NoError(t, err)
	lines := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		lines = append(lines, tok.Line)
	}
	assert.Equal(t, []int{1, 2, 2, 3, 4, 4}, lines)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "LeftCurlyBrace", LeftCurlyBrace.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
