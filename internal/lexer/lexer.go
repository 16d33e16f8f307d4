// Package lexer turns Falcon source text into a token stream.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int
	column       int

	err *diagnostics.DiagnosticError
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

// Err returns the first lexing error, if any. The whole compile stops at the
// first error; there is no recovery.
func (l *Lexer) Err() *diagnostics.DiagnosticError {
	return l.err
}

// Lex consumes the whole input and returns the terminated token stream.
func (l *Lexer) Lex() ([]token.Token, *diagnostics.DiagnosticError) {
	var toks []token.Token
	for {
		tok := l.NextToken()
		if l.err != nil {
			return nil, l.err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()
	if l.err != nil {
		return token.Token{Type: token.ILLEGAL, Line: l.line, Column: l.column}
	}

	var tok token.Token

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.twoCharToken(token.EQ, "==")
		} else {
			tok = l.newToken(token.ASSIGN)
		}
	case ':':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.twoCharToken(token.DECLARE, ":=")
		} else if l.peekChar() == ':' {
			l.readChar()
			tok = l.twoCharToken(token.COLONCOL, "::")
		} else {
			tok = l.newToken(token.COLON)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.twoCharToken(token.NOT_EQ, "!=")
		} else {
			tok = l.newToken(token.BANG)
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.twoCharToken(token.LTE, "<=")
		} else {
			tok = l.newToken(token.LT)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = l.twoCharToken(token.GTE, ">=")
		} else {
			tok = l.newToken(token.GT)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = l.twoCharToken(token.AND, "&&")
		} else {
			l.fail(diagnostics.ErrL001, "unexpected character '&' (did you mean '&&'?)")
			return token.Token{Type: token.ILLEGAL, Line: l.line, Column: l.column}
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = l.twoCharToken(token.OR, "||")
		} else {
			l.fail(diagnostics.ErrL001, "unexpected character '|' (did you mean '||'?)")
			return token.Token{Type: token.ILLEGAL, Line: l.line, Column: l.column}
		}
	case '#':
		if l.peekChar() == '{' {
			l.readChar()
			tok = l.twoCharToken(token.HASHBRACE, "#{")
		} else {
			l.fail(diagnostics.ErrL001, "unexpected character '#'")
			return token.Token{Type: token.ILLEGAL, Line: l.line, Column: l.column}
		}
	case '+':
		tok = l.newToken(token.PLUS)
	case '-':
		tok = l.newToken(token.MINUS)
	case '*':
		tok = l.newToken(token.STAR)
	case '/':
		tok = l.newToken(token.SLASH)
	case '%':
		tok = l.newToken(token.PERCENT)
	case ',':
		tok = l.newToken(token.COMMA)
	case ';':
		tok = l.newToken(token.SEMICOLON)
	case '.':
		tok = l.newToken(token.DOT)
	case '(':
		tok = l.newToken(token.LPAREN)
	case ')':
		tok = l.newToken(token.RPAREN)
	case '{':
		tok = l.newToken(token.LBRACE)
	case '}':
		tok = l.newToken(token.RBRACE)
	case '[':
		tok = l.newToken(token.LBRACKET)
	case ']':
		tok = l.newToken(token.RBRACKET)
	case '"', '\'':
		return l.readString(l.ch)
	case 0:
		tok = token.Token{Type: token.EOF, Lexeme: "", Line: l.line, Column: l.column}
	default:
		if isLetter(l.ch) {
			return l.readIdentifier()
		}
		if isDigit(l.ch) {
			return l.readNumber()
		}
		l.fail(diagnostics.ErrL001, "unexpected character %q", string(l.ch))
		return token.Token{Type: token.ILLEGAL, Line: l.line, Column: l.column}
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType token.TokenType) token.Token {
	lexeme := string(l.ch)
	return token.Token{Type: tokenType, Lexeme: lexeme, Literal: lexeme, Line: l.line, Column: l.column}
}

func (l *Lexer) twoCharToken(tokenType token.TokenType, lexeme string) token.Token {
	return token.Token{Type: tokenType, Lexeme: lexeme, Literal: lexeme, Line: l.line, Column: l.column - 1}
}

func (l *Lexer) readIdentifier() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	lexeme := l.input[position:l.position]
	return token.Token{
		Type:    token.LookupIdent(lexeme),
		Lexeme:  lexeme,
		Literal: lexeme,
		Line:    startLine,
		Column:  startCol,
	}
}

func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[position:l.position]
	if isFloat {
		val, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			l.fail(diagnostics.ErrL001, "invalid number literal %q", lexeme)
			return token.Token{Type: token.ILLEGAL, Line: startLine, Column: startCol}
		}
		return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
	}
	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		l.fail(diagnostics.ErrL001, "invalid number literal %q", lexeme)
		return token.Token{Type: token.ILLEGAL, Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.NUMBER, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
}

func (l *Lexer) readString(quote rune) token.Token {
	startLine, startCol := l.line, l.column
	var sb strings.Builder

	for {
		l.readChar()
		if l.ch == 0 {
			l.err = diagnostics.NewErrorAt(diagnostics.ErrL002, diagnostics.KindLex,
				startLine, startCol, "unterminated string")
			return token.Token{Type: token.ILLEGAL, Line: startLine, Column: startCol}
		}
		if l.ch == quote {
			break
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case 0:
				l.err = diagnostics.NewErrorAt(diagnostics.ErrL002, diagnostics.KindLex,
					startLine, startCol, "unterminated string")
				return token.Token{Type: token.ILLEGAL, Line: startLine, Column: startCol}
			default:
				// Unknown escapes keep the escaped char, including quotes.
				sb.WriteRune(l.ch)
			}
			continue
		}
		sb.WriteRune(l.ch)
	}

	l.readChar() // consume closing quote
	content := sb.String()
	return token.Token{Type: token.STRING, Lexeme: content, Literal: content, Line: startLine, Column: startCol}
}

func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '/' {
			if l.peekChar() == '/' {
				for l.ch != '\n' && l.ch != 0 {
					l.readChar()
				}
				continue
			}
			if l.peekChar() == '*' {
				startLine, startCol := l.line, l.column
				l.readChar() // consume /
				l.readChar() // consume *
				for {
					if l.ch == 0 {
						l.err = diagnostics.NewErrorAt(diagnostics.ErrL003, diagnostics.KindLex,
							startLine, startCol, "unterminated block comment")
						return
					}
					if l.ch == '*' && l.peekChar() == '/' {
						l.readChar() // consume *
						l.readChar() // consume /
						break
					}
					l.readChar()
				}
				continue
			}
		}
		break
	}
}

func (l *Lexer) fail(code diagnostics.ErrorCode, format string, args ...interface{}) {
	if l.err == nil {
		l.err = diagnostics.NewErrorAt(code, diagnostics.KindLex, l.line, l.column, format, args...)
	}
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
