package ast

import (
	"github.com/falcon-lang/falcon/internal/token"
)

// Pattern is the left side of a match arm. Matching binds names visible in
// that arm's guard and result only.
type Pattern interface {
	Node
	patternNode()
}

// LiteralPattern matches when the subject equals the literal value.
type LiteralPattern struct {
	Token token.Token
	Value Expression // IntegerLiteral, FloatLiteral, StringLiteral, BooleanLiteral, NullLiteral
}

func (lp *LiteralPattern) patternNode()          {}
func (lp *LiteralPattern) TokenLiteral() string  { return lp.Token.Lexeme }
func (lp *LiteralPattern) GetToken() token.Token { return lp.Token }

// IdentifierPattern always matches and binds the subject to Name.
type IdentifierPattern struct {
	Token token.Token
	Name  string
}

func (ip *IdentifierPattern) patternNode()          {}
func (ip *IdentifierPattern) TokenLiteral() string  { return ip.Token.Lexeme }
func (ip *IdentifierPattern) GetToken() token.Token { return ip.Token }

// WildcardPattern (_) always matches and binds nothing.
type WildcardPattern struct {
	Token token.Token
}

func (wp *WildcardPattern) patternNode()          {}
func (wp *WildcardPattern) TokenLiteral() string  { return wp.Token.Lexeme }
func (wp *WildcardPattern) GetToken() token.Token { return wp.Token }

// DictFieldPattern is one field of a dict pattern: the key must be present
// and its value must match the sub-pattern.
type DictFieldPattern struct {
	Token   token.Token
	Key     string
	Pattern Pattern
}

// DictPattern matches dict subjects containing every listed field.
// Extra fields in the subject are ignored.
type DictPattern struct {
	Token  token.Token // the '{' token
	Fields []*DictFieldPattern
}

func (dp *DictPattern) patternNode()          {}
func (dp *DictPattern) TokenLiteral() string  { return dp.Token.Lexeme }
func (dp *DictPattern) GetToken() token.Token { return dp.Token }

// ListPattern matches list subjects of exactly the same length, element by
// element.
type ListPattern struct {
	Token    token.Token // the '[' token
	Elements []Pattern
}

func (lp *ListPattern) patternNode()          {}
func (lp *ListPattern) TokenLiteral() string  { return lp.Token.Lexeme }
func (lp *ListPattern) GetToken() token.Token { return lp.Token }
