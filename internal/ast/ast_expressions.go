package ast

import (
	"github.com/falcon-lang/falcon/internal/token"
)

// Identifier is a variable reference.
type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()       {}
func (i *Identifier) TokenLiteral() string  { return i.Token.Lexeme }
func (i *Identifier) GetToken() token.Token { return i.Token }

// IntegerLiteral is a whole-number literal.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()       {}
func (il *IntegerLiteral) TokenLiteral() string  { return il.Token.Lexeme }
func (il *IntegerLiteral) GetToken() token.Token { return il.Token }

// FloatLiteral is a fractional-number literal.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()       {}
func (fl *FloatLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FloatLiteral) GetToken() token.Token { return fl.Token }

// StringLiteral holds the decoded (unescaped) string value.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }

// BooleanLiteral is true or false.
type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()       {}
func (bl *BooleanLiteral) TokenLiteral() string  { return bl.Token.Lexeme }
func (bl *BooleanLiteral) GetToken() token.Token { return bl.Token }

// NullLiteral is the null value.
type NullLiteral struct {
	Token token.Token
}

func (nl *NullLiteral) expressionNode()       {}
func (nl *NullLiteral) TokenLiteral() string  { return nl.Token.Lexeme }
func (nl *NullLiteral) GetToken() token.Token { return nl.Token }

// PrefixExpression is a unary operator application: -x or !x.
type PrefixExpression struct {
	Token    token.Token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }

// InfixExpression is a binary operator application.
type InfixExpression struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }

// AssignExpression writes to an existing binding or container element.
// Target is an *Identifier, *IndexExpression or *MemberExpression.
type AssignExpression struct {
	Token  token.Token // the '=' token
	Target Expression
	Value  Expression
}

func (ae *AssignExpression) expressionNode()       {}
func (ae *AssignExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AssignExpression) GetToken() token.Token { return ae.Token }

// CallExpression applies Function to Arguments.
type CallExpression struct {
	Token     token.Token // the '(' token
	Function  Expression
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }

// MemberExpression is dot access: obj.prop.
type MemberExpression struct {
	Token  token.Token // the '.' token
	Left   Expression
	Member *Identifier
}

func (me *MemberExpression) expressionNode()       {}
func (me *MemberExpression) TokenLiteral() string  { return me.Token.Lexeme }
func (me *MemberExpression) GetToken() token.Token { return me.Token }

// IndexExpression is subscript access: obj[expr].
type IndexExpression struct {
	Token token.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()       {}
func (ie *IndexExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IndexExpression) GetToken() token.Token { return ie.Token }

// MethodCallExpression is the receiver-call sugar obj::m(args): m is looked
// up on obj and then in scope, and obj is passed as the first argument.
type MethodCallExpression struct {
	Token     token.Token // the '::' token
	Receiver  Expression
	Method    *Identifier
	Arguments []Expression
}

func (mc *MethodCallExpression) expressionNode()       {}
func (mc *MethodCallExpression) TokenLiteral() string  { return mc.Token.Lexeme }
func (mc *MethodCallExpression) GetToken() token.Token { return mc.Token }

// FunctionLiteral is an anonymous function expression. Name is filled when
// the literal backs a function declaration, for diagnostics only.
type FunctionLiteral struct {
	Token      token.Token // the 'function' token
	Name       string
	Parameters []*Identifier
	Body       *BlockStatement
}

func (fl *FunctionLiteral) expressionNode()       {}
func (fl *FunctionLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FunctionLiteral) GetToken() token.Token { return fl.Token }

// ListLiteral is [a, b, c].
type ListLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()       {}
func (ll *ListLiteral) TokenLiteral() string  { return ll.Token.Lexeme }
func (ll *ListLiteral) GetToken() token.Token { return ll.Token }

// TupleLiteral is (a, b). A parenthesized single expression is not a tuple.
type TupleLiteral struct {
	Token    token.Token // the '(' token
	Elements []Expression
}

func (tl *TupleLiteral) expressionNode()       {}
func (tl *TupleLiteral) TokenLiteral() string  { return tl.Token.Lexeme }
func (tl *TupleLiteral) GetToken() token.Token { return tl.Token }

// DictPair is one key-value entry of a dict literal. Keys written as bare
// identifiers are stored as their name string.
type DictPair struct {
	Key   Expression
	Value Expression
}

// DictLiteral is {k: v, ...}. Pairs keep source order.
type DictLiteral struct {
	Token token.Token // the '{' token
	Pairs []DictPair
}

func (dl *DictLiteral) expressionNode()       {}
func (dl *DictLiteral) TokenLiteral() string  { return dl.Token.Lexeme }
func (dl *DictLiteral) GetToken() token.Token { return dl.Token }

// SetLiteral is #{a, b, c}.
type SetLiteral struct {
	Token    token.Token // the '#{' token
	Elements []Expression
}

func (sl *SetLiteral) expressionNode()       {}
func (sl *SetLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *SetLiteral) GetToken() token.Token { return sl.Token }

// MatchExpression evaluates Subject and selects the first arm whose pattern
// matches and whose guard (when present) is truthy.
type MatchExpression struct {
	Token   token.Token // the 'match' token
	Subject Expression
	Arms    []*MatchArm
}

func (me *MatchExpression) expressionNode()       {}
func (me *MatchExpression) TokenLiteral() string  { return me.Token.Lexeme }
func (me *MatchExpression) GetToken() token.Token { return me.Token }

// MatchArm is one case of a match. Guard may be nil.
type MatchArm struct {
	Token   token.Token // the 'case' token
	Pattern Pattern
	Guard   Expression
	Result  Expression
}

func (ma *MatchArm) GetToken() token.Token { return ma.Token }
