package parser

import (
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/pipeline"
	"github.com/falcon-lang/falcon/internal/token"
)

// ParserProcessor implements pipeline.Processor and fills ctx.AstRoot.
type ParserProcessor struct{}

func NewParserProcessor() *ParserProcessor {
	return &ParserProcessor{}
}

func (pp *ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.TokenStream == nil {
		ctx.Errors = append(ctx.Errors, diagnostics.NewError(
			diagnostics.ErrP001,
			diagnostics.KindParse,
			token.Token{},
			"parser: token stream is nil",
		))
		return ctx
	}

	parser := New(ctx.TokenStream, ctx)
	ctx.AstRoot = parser.ParseProgram()
	ctx.AstRoot.File = ctx.FilePath

	for _, err := range ctx.Errors {
		if err.File == "" {
			err.File = ctx.FilePath
		}
	}

	return ctx
}
