// Package pipeline wires the compilation stages together. Each stage is a
// Processor that reads and extends a shared PipelineContext.
package pipeline

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/token"
)

// PipelineContext carries the state of one source unit through the stages.
type PipelineContext struct {
	SourceCode  string
	FilePath    string
	TokenStream []token.Token
	AstRoot     *ast.Program
	Errors      []*diagnostics.DiagnosticError

	// Result is the value produced by the execution stage, if any.
	Result interface{}
}

func NewPipelineContext(source string) *PipelineContext {
	return &PipelineContext{SourceCode: source}
}

// HasErrors reports whether any stage recorded a diagnostic.
func (ctx *PipelineContext) HasErrors() bool {
	return len(ctx.Errors) > 0
}

// Processor is a single pipeline stage.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline. Later stages skip themselves when an earlier
// stage has already failed, so callers always see the first error batch.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		if ctx.HasErrors() {
			break
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}
