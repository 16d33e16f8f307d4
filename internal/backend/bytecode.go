package backend

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/cache"
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/vm"
)

// Bytecode compiles programs to chunks and runs them on the VM. With a
// store attached, compiled chunks persist keyed by a source fingerprint,
// so an unchanged script skips compilation on the next run.
type Bytecode struct {
	builtins *evaluator.Builtins
	eval     *evaluator.Evaluator
	machine  *vm.VM
	store    *cache.Store
}

func NewBytecode(builtins *evaluator.Builtins, store *cache.Store) *Bytecode {
	eval := evaluator.New(builtins)
	globals := evaluator.NewEnvironment()
	builtins.Install(globals)
	return &Bytecode{
		builtins: builtins,
		eval:     eval,
		machine:  vm.NewVM(eval, globals),
		store:    store,
	}
}

func (b *Bytecode) Name() string { return "vm" }

func (b *Bytecode) Globals() *evaluator.Environment { return b.machine.Globals() }

func (b *Bytecode) Run(program *ast.Program, source string) evaluator.Object {
	fn, cerr := b.loadOrCompile(program, source)
	if cerr != nil {
		return &evaluator.Error{Diag: cerr}
	}
	return b.machine.Run(fn)
}

// RunCompiled executes an already deserialized chunk.
func (b *Bytecode) RunCompiled(fn *vm.CompiledFunction) evaluator.Object {
	return b.machine.Run(fn)
}

// Compile lowers and optimizes a program without executing it.
func (b *Bytecode) Compile(program *ast.Program) (*vm.CompiledFunction, *diagnostics.DiagnosticError) {
	fn, cerr := vm.Compile(program, b.builtins)
	if cerr != nil {
		return nil, cerr
	}
	vm.Optimize(fn)
	return fn, nil
}

// loadOrCompile serves a cached chunk when the fingerprint hits; a miss
// or an undecodable entry falls back to compiling, then refreshes the
// cache best-effort.
func (b *Bytecode) loadOrCompile(program *ast.Program, source string) (*vm.CompiledFunction, *diagnostics.DiagnosticError) {
	var key string
	if b.store != nil {
		key = cache.Fingerprint([]byte(source))
		if data, found, err := b.store.Get(key); err == nil && found {
			if fn, derr := vm.Deserialize(data); derr == nil {
				return fn, nil
			}
		}
	}

	fn, cerr := b.Compile(program)
	if cerr != nil {
		return nil, cerr
	}

	if b.store != nil {
		if data, err := vm.Serialize(fn); err == nil {
			_ = b.store.Put(key, data)
		}
	}
	return fn, nil
}
