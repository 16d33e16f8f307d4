// Package backend runs parsed programs on one of the two engines: the
// tree-walking evaluator or the bytecode VM with its persistent chunk
// cache.
package backend

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/cache"
	"github.com/falcon-lang/falcon/internal/config"
	"github.com/falcon-lang/falcon/internal/evaluator"
)

// Backend executes a parsed program against a persistent global
// environment; the result is the program value or an error object.
type Backend interface {
	Name() string
	Run(program *ast.Program, source string) evaluator.Object
	Globals() *evaluator.Environment
}

// Select builds the backend the config asks for. store may be nil to run
// without a cache.
func Select(cfg *config.Config, builtins *evaluator.Builtins, store *cache.Store) Backend {
	if cfg.Backend == config.BackendTreeWalk {
		return NewTreeWalk(builtins)
	}
	return NewBytecode(builtins, store)
}
