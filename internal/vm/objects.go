package vm

import (
	"fmt"

	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/evaluator"
)

const (
	COMPILED_FUNCTION_OBJ evaluator.ObjectType = "COMPILED_FUNCTION"
	FUNCTION_TEMPLATE_OBJ evaluator.ObjectType = "FUNCTION_TEMPLATE"
	AST_STATEMENT_OBJ     evaluator.ObjectType = "AST_STATEMENT"
)

// CompiledFunction is a bytecode-eligible function value.
type CompiledFunction struct {
	Name       string
	Arity      int
	LocalCount int // locals including parameters
	Chunk      *Chunk
}

func (f *CompiledFunction) Type() evaluator.ObjectType { return COMPILED_FUNCTION_OBJ }
func (f *CompiledFunction) ParamCount() int            { return f.Arity }
func (f *CompiledFunction) Inspect() string {
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return fmt.Sprintf("function %s(compiled)", name)
}

// FunctionTemplate is the constant-pool form of a function the compiler
// deferred to the interpreter. OP_MAKE_FUNCTION instantiates it with the
// global environment as its captured scope.
type FunctionTemplate struct {
	Name       string
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
}

func (t *FunctionTemplate) Type() evaluator.ObjectType { return FUNCTION_TEMPLATE_OBJ }
func (t *FunctionTemplate) Inspect() string {
	return fmt.Sprintf("function template %s", t.Name)
}

// AstStatement wraps a statement the compiler emits as an OP_EVAL_STMT
// island.
type AstStatement struct {
	Stmt ast.Statement
}

func (s *AstStatement) Type() evaluator.ObjectType { return AST_STATEMENT_OBJ }
func (s *AstStatement) Inspect() string            { return "ast statement" }
