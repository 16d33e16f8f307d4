package lexer

import (
	"github.com/falcon-lang/falcon/internal/pipeline"
)

// LexerProcessor implements pipeline.Processor and fills ctx.TokenStream.
type LexerProcessor struct{}

func NewLexerProcessor() *LexerProcessor {
	return &LexerProcessor{}
}

func (p *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	l := New(ctx.SourceCode)
	toks, err := l.Lex()
	if err != nil {
		err.File = ctx.FilePath
		ctx.Errors = append(ctx.Errors, err)
		return ctx
	}
	ctx.TokenStream = toks
	return ctx
}
