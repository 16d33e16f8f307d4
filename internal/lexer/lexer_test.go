package lexer

import (
	"testing"

	"github.com/falcon-lang/falcon/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var five := 5;
const ten = 10.5
add := function(x, y) { return x + y; }
result := five::add(ten)
if result >= 15 && result != 0 {
	show("ok")
} else {
	show('no')
}
#{1, 2} [3] {k: 4} _
`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
	}{
		{token.VAR, "var"},
		{token.IDENT, "five"},
		{token.DECLARE, ":="},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.CONST, "const"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.NUMBER, "10.5"},
		{token.IDENT, "add"},
		{token.DECLARE, ":="},
		{token.FUNCTION, "function"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.IDENT, "result"},
		{token.DECLARE, ":="},
		{token.IDENT, "five"},
		{token.COLONCOL, "::"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "ten"},
		{token.RPAREN, ")"},
		{token.IF, "if"},
		{token.IDENT, "result"},
		{token.GTE, ">="},
		{token.NUMBER, "15"},
		{token.AND, "&&"},
		{token.IDENT, "result"},
		{token.NOT_EQ, "!="},
		{token.NUMBER, "0"},
		{token.LBRACE, "{"},
		{token.IDENT, "show"},
		{token.LPAREN, "("},
		{token.STRING, "ok"},
		{token.RPAREN, ")"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.IDENT, "show"},
		{token.LPAREN, "("},
		{token.STRING, "no"},
		{token.RPAREN, ")"},
		{token.RBRACE, "}"},
		{token.HASHBRACE, "#{"},
		{token.NUMBER, "1"},
		{token.COMMA, ","},
		{token.NUMBER, "2"},
		{token.RBRACE, "}"},
		{token.LBRACKET, "["},
		{token.NUMBER, "3"},
		{token.RBRACKET, "]"},
		{token.LBRACE, "{"},
		{token.IDENT, "k"},
		{token.COLON, ":"},
		{token.NUMBER, "4"},
		{token.RBRACE, "}"},
		{token.UNDERSCORE, "_"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (lexeme %q)",
				i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q",
				i, tt.expectedLexeme, tok.Lexeme)
		}
	}
	if err := l.Err(); err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
}

func TestNumberLiterals(t *testing.T) {
	l := New("42 3.14")

	tok := l.NextToken()
	if got, ok := tok.Literal.(int64); !ok || got != 42 {
		t.Errorf("int literal = %v (%T), want int64 42", tok.Literal, tok.Literal)
	}

	tok = l.NextToken()
	if got, ok := tok.Literal.(float64); !ok || got != 3.14 {
		t.Errorf("float literal = %v (%T), want float64 3.14", tok.Literal, tok.Literal)
	}
}

func TestStringEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote \" inside"`, `quote " inside`},
		{`'single \' inside'`, "single ' inside"},
		{`"back\\slash"`, `back\slash`},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != token.STRING {
			t.Errorf("input %q: type = %q, want STRING", tt.input, tok.Type)
			continue
		}
		if tok.Lexeme != tt.want {
			t.Errorf("input %q: value = %q, want %q", tt.input, tok.Lexeme, tt.want)
		}
	}
}

func TestCommentsSkipped(t *testing.T) {
	input := `// line comment
1 /* block
spanning lines */ 2`

	l := New(input)
	first := l.NextToken()
	second := l.NextToken()
	third := l.NextToken()

	if first.Type != token.NUMBER || first.Lexeme != "1" {
		t.Errorf("first token = %v %q, want NUMBER 1", first.Type, first.Lexeme)
	}
	if second.Type != token.NUMBER || second.Lexeme != "2" {
		t.Errorf("second token = %v %q, want NUMBER 2", second.Type, second.Lexeme)
	}
	if third.Type != token.EOF {
		t.Errorf("third token = %v, want EOF", third.Type)
	}
}

func TestPositions(t *testing.T) {
	input := "a\n  bb\n"
	l := New(input)

	a := l.NextToken()
	if a.Line != 1 || a.Column != 1 {
		t.Errorf("a at %d:%d, want 1:1", a.Line, a.Column)
	}
	bb := l.NextToken()
	if bb.Line != 2 || bb.Column != 3 {
		t.Errorf("bb at %d:%d, want 2:3", bb.Line, bb.Column)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"never closed`},
		{"unterminated block comment", "/* no end"},
		{"stray character", "a @ b"},
		{"lone ampersand", "a & b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.input)
			_, err := l.Lex()
			if err == nil {
				t.Fatalf("expected lex error for %q", tt.input)
			}
			if err.Line == 0 {
				t.Errorf("error has no position: %v", err)
			}
		})
	}
}
