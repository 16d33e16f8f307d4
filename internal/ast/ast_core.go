// Package ast defines the syntax tree produced by the parser. Interpreted
// function bodies keep their tree form at runtime, so nodes also travel
// inside serialized bytecode constants.
package ast

import (
	"github.com/falcon-lang/falcon/internal/token"
)

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	GetToken() token.Token
}

// Statement is a Node that represents a statement.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that represents an expression.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node of every AST the parser produces.
type Program struct {
	File       string
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) GetToken() token.Token {
	if len(p.Statements) > 0 {
		return p.Statements[0].GetToken()
	}
	return token.Token{}
}

// VarStatement represents a binding declaration.
// var x := 1, let y = 2, const z := 3, or the bare form x := 1.
type VarStatement struct {
	Token   token.Token // the keyword token, or the identifier for bare :=
	Name    *Identifier
	Value   Expression
	Mutable bool
}

func (vs *VarStatement) statementNode()        {}
func (vs *VarStatement) TokenLiteral() string  { return vs.Token.Lexeme }
func (vs *VarStatement) GetToken() token.Token { return vs.Token }

// FunctionStatement represents a named function declaration.
// function name(params) { body }
type FunctionStatement struct {
	Token      token.Token // the 'function' token
	Name       *Identifier
	Parameters []*Identifier
	Body       *BlockStatement
}

func (fs *FunctionStatement) statementNode()        {}
func (fs *FunctionStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *FunctionStatement) GetToken() token.Token { return fs.Token }

// ReturnStatement returns Value from the enclosing function. Value may be
// nil for a bare return.
type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (rs *ReturnStatement) statementNode()        {}
func (rs *ReturnStatement) TokenLiteral() string  { return rs.Token.Lexeme }
func (rs *ReturnStatement) GetToken() token.Token { return rs.Token }

// BreakStatement exits the nearest enclosing loop.
type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()        {}
func (bs *BreakStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BreakStatement) GetToken() token.Token { return bs.Token }

// ExpressionStatement is a statement consisting of a single expression.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()        {}
func (es *ExpressionStatement) TokenLiteral() string  { return es.Token.Lexeme }
func (es *ExpressionStatement) GetToken() token.Token { return es.Token }

// BlockStatement represents a brace-delimited list of statements.
type BlockStatement struct {
	Token      token.Token // {
	Statements []Statement
}

func (bs *BlockStatement) statementNode()        {}
func (bs *BlockStatement) TokenLiteral() string  { return bs.Token.Lexeme }
func (bs *BlockStatement) GetToken() token.Token { return bs.Token }

// IfStatement with optional else branch. Alternative is either a
// *BlockStatement or a chained *IfStatement (else if).
type IfStatement struct {
	Token       token.Token
	Condition   Expression
	Consequence *BlockStatement
	Alternative Statement
}

func (is *IfStatement) statementNode()        {}
func (is *IfStatement) TokenLiteral() string  { return is.Token.Lexeme }
func (is *IfStatement) GetToken() token.Token { return is.Token }

// WhileStatement loops while Condition is truthy.
type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      *BlockStatement
}

func (ws *WhileStatement) statementNode()        {}
func (ws *WhileStatement) TokenLiteral() string  { return ws.Token.Lexeme }
func (ws *WhileStatement) GetToken() token.Token { return ws.Token }

// ForStatement is the counted loop: for i := START to END [step STEP] { }.
// END is inclusive. Step is nil when omitted and defaults to 1.
type ForStatement struct {
	Token token.Token
	Name  *Identifier
	Start Expression
	End   Expression
	Step  Expression
	Body  *BlockStatement
}

func (fs *ForStatement) statementNode()        {}
func (fs *ForStatement) TokenLiteral() string  { return fs.Token.Lexeme }
func (fs *ForStatement) GetToken() token.Token { return fs.Token }

// LoopStatement is the infinite loop, exited via break, return or an error.
type LoopStatement struct {
	Token token.Token
	Body  *BlockStatement
}

func (ls *LoopStatement) statementNode()        {}
func (ls *LoopStatement) TokenLiteral() string  { return ls.Token.Lexeme }
func (ls *LoopStatement) GetToken() token.Token { return ls.Token }

// TryStatement runs Body and, on a runtime error, binds the error value to
// CatchVar and runs CatchBody.
type TryStatement struct {
	Token     token.Token
	Body      *BlockStatement
	CatchVar  *Identifier
	CatchBody *BlockStatement
}

func (ts *TryStatement) statementNode()        {}
func (ts *TryStatement) TokenLiteral() string  { return ts.Token.Lexeme }
func (ts *TryStatement) GetToken() token.Token { return ts.Token }

// ThrowStatement raises a user value as an error.
type ThrowStatement struct {
	Token token.Token
	Value Expression
}

func (ts *ThrowStatement) statementNode()        {}
func (ts *ThrowStatement) TokenLiteral() string  { return ts.Token.Lexeme }
func (ts *ThrowStatement) GetToken() token.Token { return ts.Token }
