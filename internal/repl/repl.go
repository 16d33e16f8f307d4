// Package repl provides the interactive session. Lines share one global
// environment, so definitions accumulate across inputs.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/falcon-lang/falcon/internal/backend"
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/lexer"
	"github.com/falcon-lang/falcon/internal/parser"
	"github.com/falcon-lang/falcon/internal/pipeline"
)

const prompt = "falcon> "

// Session is one interactive run, identified for log and history
// purposes.
type Session struct {
	ID          string
	HistoryFile string

	backend backend.Backend
	out     io.Writer
}

func New(b backend.Backend, out io.Writer, historyFile string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		HistoryFile: historyFile,
		backend:     b,
		out:         out,
	}
}

// Run drives the line editor until exit, quit or EOF.
func (s *Session) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     s.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init line editor: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(s.out, "falcon repl, session %s\n", shortID(s.ID))
	fmt.Fprintln(s.out, `type "exit" to leave, ".load <file>" to run a script`)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if s.HandleLine(line) {
			return nil
		}
	}
}

// HandleLine processes one input line and reports whether the session
// should end.
func (s *Session) HandleLine(line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case line == "exit" || line == "quit":
		return true
	case strings.HasPrefix(line, ".load "):
		s.loadFile(strings.TrimSpace(strings.TrimPrefix(line, ".load ")))
		return false
	default:
		s.evalSource(line, "repl")
		return false
	}
}

func (s *Session) loadFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(s.out, "cannot load %s: %v\n", path, err)
		return
	}
	s.evalSource(string(data), path)
}

// evalSource runs one input through the pipeline against the shared
// backend. Errors print and the session continues; a non-null expression
// result echoes.
func (s *Session) evalSource(source, file string) {
	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = file
	p := pipeline.New(
		lexer.NewLexerProcessor(),
		parser.NewParserProcessor(),
		backend.NewExecutionProcessor(s.backend),
	)
	ctx = p.Run(ctx)

	if ctx.HasErrors() {
		for _, err := range ctx.Errors {
			fmt.Fprintln(s.out, err.Error())
		}
		return
	}
	if result, ok := ctx.Result.(evaluator.Object); ok && result != nil && result != evaluator.NULL {
		fmt.Fprintln(s.out, result.Inspect())
	}
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
