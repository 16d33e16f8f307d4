// Package diagnostics provides structured errors for every pipeline stage.
// Each error carries a stable code, an error kind visible to user programs,
// and a source position when one is known.
package diagnostics

import (
	"fmt"

	"github.com/falcon-lang/falcon/internal/token"
)

type ErrorCode string

const (
	// Lexer
	ErrL001 ErrorCode = "L001" // unexpected character
	ErrL002 ErrorCode = "L002" // unterminated string
	ErrL003 ErrorCode = "L003" // unterminated block comment

	// Parser
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // expected token
	ErrP003 ErrorCode = "P003" // invalid assignment target
	ErrP004 ErrorCode = "P004" // break outside loop
	ErrP005 ErrorCode = "P005" // malformed pattern

	// Runtime
	ErrR001 ErrorCode = "R001" // undefined variable
	ErrR002 ErrorCode = "R002" // const reassignment
	ErrR003 ErrorCode = "R003" // type mismatch
	ErrR004 ErrorCode = "R004" // division by zero
	ErrR005 ErrorCode = "R005" // no match arm matched
	ErrR006 ErrorCode = "R006" // thrown user value
	ErrR007 ErrorCode = "R007" // generic runtime failure

	// Compiler / cache
	ErrC001 ErrorCode = "C001" // compile failure
	ErrC002 ErrorCode = "C002" // bytecode deserialization failure
)

// Kind is the error category that user programs can observe (typeOf on a
// caught error, messages, tests). Lex and parse kinds are never catchable.
type Kind string

const (
	KindLex             Kind = "LexError"
	KindParse           Kind = "ParseError"
	KindUndefinedVar    Kind = "UndefinedVariableError"
	KindConstReassign   Kind = "ConstReassignmentError"
	KindTypeMismatch    Kind = "TypeMismatchError"
	KindDivisionByZero  Kind = "DivisionByZeroError"
	KindMatch           Kind = "MatchError"
	KindThrown          Kind = "ThrownError"
	KindRuntime         Kind = "RuntimeError"
)

// DiagnosticError is the single error type flowing through the pipeline.
type DiagnosticError struct {
	Code    ErrorCode
	Kind    Kind
	Message string
	File    string
	Line    int
	Column  int
}

func (e *DiagnosticError) Error() string {
	pos := ""
	if e.Line > 0 {
		if e.File != "" {
			pos = fmt.Sprintf("%s:%d:%d: ", e.File, e.Line, e.Column)
		} else {
			pos = fmt.Sprintf("%d:%d: ", e.Line, e.Column)
		}
	} else if e.File != "" {
		pos = e.File + ": "
	}
	return fmt.Sprintf("%s[%s] %s: %s", pos, e.Code, e.Kind, e.Message)
}

// NewError builds a diagnostic anchored at tok's position.
func NewError(code ErrorCode, kind Kind, tok token.Token, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

// NewErrorAt builds a diagnostic with an explicit position.
func NewErrorAt(code ErrorCode, kind Kind, line, col int, format string, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	}
}
