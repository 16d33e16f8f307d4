package backend

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/evaluator"
)

// TreeWalk runs programs directly on the evaluator.
type TreeWalk struct {
	eval    *evaluator.Evaluator
	globals *evaluator.Environment
}

func NewTreeWalk(builtins *evaluator.Builtins) *TreeWalk {
	globals := evaluator.NewEnvironment()
	builtins.Install(globals)
	return &TreeWalk{
		eval:    evaluator.New(builtins),
		globals: globals,
	}
}

func (b *TreeWalk) Name() string { return "interp" }

func (b *TreeWalk) Globals() *evaluator.Environment { return b.globals }

func (b *TreeWalk) Run(program *ast.Program, source string) evaluator.Object {
	return b.eval.Eval(program, b.globals)
}
