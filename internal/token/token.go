// Package token defines the lexical tokens of the Falcon language.
package token

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT  TokenType = "IDENT"
	NUMBER TokenType = "NUMBER"
	STRING TokenType = "STRING"

	// Operators
	ASSIGN   TokenType = "="
	DECLARE  TokenType = ":="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	STAR     TokenType = "*"
	SLASH    TokenType = "/"
	PERCENT  TokenType = "%"
	BANG     TokenType = "!"
	EQ       TokenType = "=="
	NOT_EQ   TokenType = "!="
	LT       TokenType = "<"
	LTE      TokenType = "<="
	GT       TokenType = ">"
	GTE      TokenType = ">="
	AND      TokenType = "&&"
	OR       TokenType = "||"
	COLONCOL TokenType = "::"

	// Punctuation
	COMMA      TokenType = ","
	SEMICOLON  TokenType = ";"
	COLON      TokenType = ":"
	DOT        TokenType = "."
	LPAREN     TokenType = "("
	RPAREN     TokenType = ")"
	LBRACE     TokenType = "{"
	RBRACE     TokenType = "}"
	LBRACKET   TokenType = "["
	RBRACKET   TokenType = "]"
	HASHBRACE  TokenType = "#{"
	UNDERSCORE TokenType = "_"

	// Keywords
	VAR      TokenType = "VAR"
	LET      TokenType = "LET"
	CONST    TokenType = "CONST"
	FUNCTION TokenType = "FUNCTION"
	RETURN   TokenType = "RETURN"
	IF       TokenType = "IF"
	ELSE     TokenType = "ELSE"
	WHILE    TokenType = "WHILE"
	FOR      TokenType = "FOR"
	LOOP     TokenType = "LOOP"
	TO       TokenType = "TO"
	STEP     TokenType = "STEP"
	BREAK    TokenType = "BREAK"
	MATCH    TokenType = "MATCH"
	CASE     TokenType = "CASE"
	TRY      TokenType = "TRY"
	CATCH    TokenType = "CATCH"
	THROW    TokenType = "THROW"
	TRUE     TokenType = "TRUE"
	FALSE    TokenType = "FALSE"
	NULL     TokenType = "NULL"
)

// Token is a single lexical unit. Literal holds the decoded value for
// NUMBER and STRING tokens (int64, float64 or string); for everything else
// it mirrors the lexeme.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

var keywords = map[string]TokenType{
	"var":      VAR,
	"let":      LET,
	"const":    CONST,
	"function": FUNCTION,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"while":    WHILE,
	"for":      FOR,
	"loop":     LOOP,
	"to":       TO,
	"step":     STEP,
	"break":    BREAK,
	"match":    MATCH,
	"case":     CASE,
	"try":      TRY,
	"catch":    CATCH,
	"throw":    THROW,
	"true":     TRUE,
	"false":    FALSE,
	"null":     NULL,
}

// LookupIdent returns the keyword type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	if ident == "_" {
		return UNDERSCORE
	}
	return IDENT
}
