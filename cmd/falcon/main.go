// Command falcon runs Falcon scripts, compiles them to chunk files and
// hosts the interactive session.
//
// Usage:
//
//	falcon [run] script.fn     execute a script
//	falcon -c script.fn        compile to script.fnc
//	falcon -r script.fnc       execute a compiled chunk
//	falcon repl                interactive session
//	falcon                     repl on a terminal, stdin script otherwise
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/falcon-lang/falcon/internal/backend"
	"github.com/falcon-lang/falcon/internal/cache"
	"github.com/falcon-lang/falcon/internal/config"
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/lexer"
	"github.com/falcon-lang/falcon/internal/parser"
	"github.com/falcon-lang/falcon/internal/pipeline"
	"github.com/falcon-lang/falcon/internal/repl"
	"github.com/falcon-lang/falcon/internal/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return runREPL()
		}
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			return 1
		}
		return runSource(string(source), "<stdin>", ".")
	}

	switch args[0] {
	case "repl":
		return runREPL()
	case "run":
		if len(args) < 2 {
			return usage()
		}
		return runFile(args[1])
	case "-c", "compile":
		if len(args) < 2 {
			return usage()
		}
		return compileFile(args[1])
	case "-r":
		if len(args) < 2 {
			return usage()
		}
		return runCompiled(args[1])
	case "-h", "--help", "help":
		usage()
		return 0
	default:
		return runFile(args[0])
	}
}

func usage() int {
	fmt.Fprintln(os.Stderr, "usage: falcon [run] <script.fn> | -c <script.fn> | -r <script.fnc> | repl")
	return 2
}

func runFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return runSource(string(source), path, filepath.Dir(path))
}

func runSource(source, path, dir string) int {
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	store := openCache(cfg)
	if store != nil {
		defer store.Close()
	}

	builtins := evaluator.NewBuiltins(os.Stdout, dir)
	builtins.Err = os.Stderr

	// a fingerprint hit serves the stored chunk without lexing or parsing
	if cfg.Backend == config.BackendVM && store != nil {
		if fn, ok := loadCached(store, source); ok {
			b := backend.NewBytecode(builtins, store)
			result := b.RunCompiled(fn)
			if errObj, ok := result.(*evaluator.Error); ok {
				if errObj.Diag.File == "" {
					errObj.Diag.File = path
				}
				fmt.Fprintln(os.Stderr, errObj.Diag.Error())
				return 1
			}
			return 0
		}
	}

	b := backend.Select(cfg, builtins, store)

	ctx := pipeline.NewPipelineContext(source)
	ctx.FilePath = path
	ctx = pipeline.New(
		lexer.NewLexerProcessor(),
		parser.NewParserProcessor(),
		backend.NewExecutionProcessor(b),
	).Run(ctx)

	if ctx.HasErrors() {
		for _, diag := range ctx.Errors {
			fmt.Fprintln(os.Stderr, diag.Error())
		}
		return 1
	}
	return 0
}

func compileFile(path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx := pipeline.NewPipelineContext(string(source))
	ctx.FilePath = path
	ctx = pipeline.New(
		lexer.NewLexerProcessor(),
		parser.NewParserProcessor(),
	).Run(ctx)
	if ctx.HasErrors() {
		for _, diag := range ctx.Errors {
			fmt.Fprintln(os.Stderr, diag.Error())
		}
		return 1
	}

	builtins := evaluator.NewBuiltins(os.Stdout, filepath.Dir(path))
	fn, cerr := vm.Compile(ctx.AstRoot, builtins)
	if cerr != nil {
		fmt.Fprintln(os.Stderr, cerr.Error())
		return 1
	}
	vm.Optimize(fn)

	data, err := vm.Serialize(fn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	outPath := strings.TrimSuffix(path, config.SourceExt) + config.CompiledExt
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func runCompiled(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	fn, err := vm.Deserialize(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}

	builtins := evaluator.NewBuiltins(os.Stdout, filepath.Dir(path))
	builtins.Err = os.Stderr
	b := backend.NewBytecode(builtins, nil)
	result := b.RunCompiled(fn)
	if errObj, ok := result.(*evaluator.Error); ok {
		if errObj.Diag.File == "" {
			errObj.Diag.File = path
		}
		fmt.Fprintln(os.Stderr, errObj.Diag.Error())
		return 1
	}
	return 0
}

func runREPL() int {
	cfg, err := config.LoadOrDefault(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	builtins := evaluator.NewBuiltins(os.Stdout, dir)
	builtins.Err = os.Stderr
	// interactive lines always tree-walk; compiled mains discard
	// expression values, so the vm backend cannot echo results
	b := backend.NewTreeWalk(builtins)

	session := repl.New(b, os.Stdout, cfg.REPL.HistoryFile)
	if err := session.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

// loadCached fetches and decodes the chunk stored for source, if any.
// Undecodable entries read as misses; the normal compile path refreshes
// them.
func loadCached(store *cache.Store, source string) (*vm.CompiledFunction, bool) {
	data, found, err := store.Get(cache.Fingerprint([]byte(source)))
	if err != nil || !found {
		return nil, false
	}
	fn, err := vm.Deserialize(data)
	if err != nil {
		return nil, false
	}
	return fn, true
}

func openCache(cfg *config.Config) *cache.Store {
	if cfg.Cache.Disabled || cfg.Cache.Path == "" || cfg.Backend != config.BackendVM {
		return nil
	}
	store, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: chunk cache unavailable: %v\n", err)
		return nil
	}
	return store
}
