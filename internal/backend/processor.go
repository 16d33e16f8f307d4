package backend

import (
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/pipeline"
)

// ExecutionProcessor is the pipeline stage that runs the parsed program.
type ExecutionProcessor struct {
	Backend Backend
}

func NewExecutionProcessor(b Backend) *ExecutionProcessor {
	return &ExecutionProcessor{Backend: b}
}

func (p *ExecutionProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.HasErrors() || ctx.AstRoot == nil {
		return ctx
	}
	result := p.Backend.Run(ctx.AstRoot, ctx.SourceCode)
	if err, ok := result.(*evaluator.Error); ok {
		if err.Diag.File == "" {
			err.Diag.File = ctx.FilePath
		}
		ctx.Errors = append(ctx.Errors, err.Diag)
		return ctx
	}
	ctx.Result = result
	return ctx
}
