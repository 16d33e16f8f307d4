package vm

import (
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/token"
)

const (
	// StackSize bounds the value stack across all frames.
	StackSize = 8192
	// MaxFrames bounds compiled call depth.
	MaxFrames = 1024
)

// frame is one compiled call in flight. base indexes the first parameter
// slot; the function value itself sits at base-1.
type frame struct {
	fn   *CompiledFunction
	ip   int
	base int
}

// VM executes compiled chunks. Globals live in an evaluator environment
// so const enforcement, interpreter islands and functions instantiated
// from templates all share one store. Calls into interpreted functions
// route through the evaluator, which calls back in for compiled callees.
type VM struct {
	stack      []evaluator.Object
	sp         int
	frames     []frame
	frameCount int
	globals    *evaluator.Environment
	eval       *evaluator.Evaluator
}

func NewVM(eval *evaluator.Evaluator, globals *evaluator.Environment) *VM {
	vm := &VM{
		stack:   make([]evaluator.Object, StackSize),
		frames:  make([]frame, MaxFrames),
		globals: globals,
		eval:    eval,
	}
	eval.CompiledCallHandler = vm.callCompiled
	return vm
}

// Globals exposes the shared global environment.
func (vm *VM) Globals() *evaluator.Environment {
	return vm.globals
}

// Run executes a main function to completion and returns its result, or
// an error object.
func (vm *VM) Run(fn *CompiledFunction) evaluator.Object {
	vm.stack[vm.sp] = fn
	vm.sp++
	vm.frames[vm.frameCount] = frame{fn: fn, base: vm.sp}
	vm.frameCount++
	return vm.run(vm.frameCount - 1)
}

// CallFunction invokes a compiled function reentrantly; interpreted code
// calling a compiled value lands here via the evaluator hook.
func (vm *VM) CallFunction(fn *CompiledFunction, args []evaluator.Object) evaluator.Object {
	if len(args) != fn.Arity {
		return vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime, token.Token{},
			"%s expects %d argument(s), got %d", fn.Inspect(), fn.Arity, len(args))
	}
	if err := vm.checkCapacity(fn, len(args), token.Token{}); err != nil {
		return err
	}
	vm.stack[vm.sp] = fn
	vm.sp++
	base := vm.sp
	for _, arg := range args {
		vm.stack[vm.sp] = arg
		vm.sp++
	}
	vm.frames[vm.frameCount] = frame{fn: fn, base: base}
	vm.frameCount++
	return vm.run(vm.frameCount - 1)
}

func (vm *VM) callCompiled(fn evaluator.Object, args []evaluator.Object) evaluator.Object {
	cf, ok := fn.(*CompiledFunction)
	if !ok {
		return vm.newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch, token.Token{},
			"%s is not callable", evaluator.TypeName(fn))
	}
	return vm.CallFunction(cf, args)
}

var infixSymbols = map[Opcode]string{
	OP_ADD: "+", OP_SUB: "-", OP_MUL: "*", OP_DIV: "/", OP_MOD: "%",
	OP_EQ: "==", OP_NE: "!=", OP_LT: "<", OP_LE: "<=", OP_GT: ">", OP_GE: ">=",
}

// run drains frames above minDepth. An error unwinds every frame this
// invocation owns, so reentrant calls leave the outer frames intact.
func (vm *VM) run(minDepth int) evaluator.Object {
	abort := func(err evaluator.Object) evaluator.Object {
		vm.sp = vm.frames[minDepth].base - 1
		vm.frameCount = minDepth
		return err
	}

	for {
		f := &vm.frames[vm.frameCount-1]
		chunk := f.fn.Chunk
		at := f.ip
		op := Opcode(chunk.Code[at])
		f.ip++

		switch op {
		case OP_NOP:

		case OP_CONST:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			vm.stack[vm.sp] = chunk.Constants[idx]
			vm.sp++

		case OP_POP:
			vm.sp--

		case OP_NULL:
			vm.stack[vm.sp] = evaluator.NULL
			vm.sp++
		case OP_TRUE:
			vm.stack[vm.sp] = evaluator.TRUE
			vm.sp++
		case OP_FALSE:
			vm.stack[vm.sp] = evaluator.FALSE
			vm.sp++

		case OP_ADD, OP_SUB, OP_MUL, OP_DIV, OP_MOD,
			OP_EQ, OP_NE, OP_LT, OP_LE, OP_GT, OP_GE:
			right := vm.stack[vm.sp-1]
			left := vm.stack[vm.sp-2]
			vm.sp -= 2
			result := evaluator.EvalInfix(infixSymbols[op], left, right, vm.tokAt(chunk, at))
			if isErrorObject(result) {
				return abort(result)
			}
			vm.stack[vm.sp] = result
			vm.sp++

		case OP_NEG:
			operand := vm.stack[vm.sp-1]
			vm.sp--
			switch v := operand.(type) {
			case *evaluator.Integer:
				vm.stack[vm.sp] = &evaluator.Integer{Value: -v.Value}
			case *evaluator.Float:
				vm.stack[vm.sp] = &evaluator.Float{Value: -v.Value}
			default:
				return abort(vm.newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
					vm.tokAt(chunk, at), "cannot negate %s", evaluator.TypeName(operand)))
			}
			vm.sp++

		case OP_NOT:
			operand := vm.stack[vm.sp-1]
			vm.stack[vm.sp-1] = evaluator.NativeBoolToBooleanObject(!evaluator.IsTruthy(operand))

		case OP_GET_LOCAL:
			slot := chunk.ReadOperand16(f.ip)
			f.ip += 2
			vm.stack[vm.sp] = vm.stack[f.base+slot]
			vm.sp++

		case OP_SET_LOCAL:
			slot := chunk.ReadOperand16(f.ip)
			f.ip += 2
			vm.stack[f.base+slot] = vm.stack[vm.sp-1]

		case OP_DEF_GLOBAL:
			idx := chunk.ReadOperand16(f.ip)
			mutable := chunk.Code[f.ip+2] == 1
			f.ip += 3
			name := chunk.Constants[idx].(*evaluator.String).Value
			value := vm.stack[vm.sp-1]
			vm.sp--
			if fn, ok := value.(*evaluator.Function); ok && fn.Name == "" {
				fn.Name = name
			}
			vm.globals.Define(name, value, mutable)

		case OP_GET_GLOBAL:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			name := chunk.Constants[idx].(*evaluator.String).Value
			value, ok := vm.globals.Get(name)
			if !ok {
				if builtin, found := vm.eval.Builtins.Lookup(name); found {
					value = builtin
				} else if name == "console" {
					value = vm.eval.Builtins.Console
				} else {
					return abort(vm.newError(diagnostics.ErrR001, diagnostics.KindUndefinedVar,
						vm.tokAt(chunk, at), "undefined variable %q", name))
				}
			}
			vm.stack[vm.sp] = value
			vm.sp++

		case OP_SET_GLOBAL:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			name := chunk.Constants[idx].(*evaluator.String).Value
			switch vm.globals.Assign(name, vm.stack[vm.sp-1]) {
			case evaluator.AssignOK:
			case evaluator.AssignImmutable:
				return abort(vm.newError(diagnostics.ErrR002, diagnostics.KindConstReassign,
					vm.tokAt(chunk, at), "cannot reassign constant %q", name))
			default:
				return abort(vm.newError(diagnostics.ErrR001, diagnostics.KindUndefinedVar,
					vm.tokAt(chunk, at), "undefined variable %q", name))
			}

		case OP_CONST_VIOLATION:
			idx := chunk.ReadOperand16(f.ip)
			name := chunk.Constants[idx].(*evaluator.String).Value
			return abort(vm.newError(diagnostics.ErrR002, diagnostics.KindConstReassign,
				vm.tokAt(chunk, at), "cannot reassign constant %q", name))

		case OP_JUMP:
			offset := chunk.ReadOperand16(f.ip)
			f.ip += 2 + offset

		case OP_JUMP_IF_FALSE:
			offset := chunk.ReadOperand16(f.ip)
			f.ip += 2
			condition := vm.stack[vm.sp-1]
			vm.sp--
			if !evaluator.IsTruthy(condition) {
				f.ip += offset
			}

		case OP_JUMP_IF_FALSE_PEEK:
			offset := chunk.ReadOperand16(f.ip)
			f.ip += 2
			if !evaluator.IsTruthy(vm.stack[vm.sp-1]) {
				f.ip += offset
			}

		case OP_JUMP_IF_TRUE_PEEK:
			offset := chunk.ReadOperand16(f.ip)
			f.ip += 2
			if evaluator.IsTruthy(vm.stack[vm.sp-1]) {
				f.ip += offset
			}

		case OP_LOOP:
			offset := chunk.ReadOperand16(f.ip)
			f.ip += 2 - offset

		case OP_FOR_TEST:
			slot := chunk.ReadOperand16(f.ip)
			f.ip += 2
			result, err := forTest(
				vm.stack[f.base+slot],
				vm.stack[f.base+slot+1],
				vm.stack[f.base+slot+2],
				vm.tokAt(chunk, at))
			if err != nil {
				return abort(err)
			}
			vm.stack[vm.sp] = result
			vm.sp++

		case OP_CALL:
			argc := int(chunk.Code[f.ip])
			f.ip++
			if err := vm.dispatchCall(argc, vm.tokAt(chunk, at)); err != nil {
				return abort(err)
			}

		case OP_RETURN:
			result := vm.stack[vm.sp-1]
			vm.sp = f.base - 1
			vm.frameCount--
			if vm.frameCount == minDepth {
				return result
			}
			vm.stack[vm.sp] = result
			vm.sp++

		case OP_MAKE_FUNCTION:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			tmpl := chunk.Constants[idx].(*FunctionTemplate)
			vm.stack[vm.sp] = &evaluator.Function{
				Name:       tmpl.Name,
				Parameters: tmpl.Parameters,
				Body:       tmpl.Body,
				Env:        vm.globals,
			}
			vm.sp++

		case OP_METHOD_CALL:
			idx := chunk.ReadOperand16(f.ip)
			argc := int(chunk.Code[f.ip+2])
			f.ip += 3
			name := chunk.Constants[idx].(*evaluator.String).Value
			if err := vm.dispatchMethodCall(name, argc, vm.tokAt(chunk, at)); err != nil {
				return abort(err)
			}

		case OP_MAKE_LIST:
			n := chunk.ReadOperand16(f.ip)
			f.ip += 2
			vm.stack[vm.sp-n] = &evaluator.List{Elements: vm.takeElements(n)}
			vm.sp++

		case OP_MAKE_TUPLE:
			n := chunk.ReadOperand16(f.ip)
			f.ip += 2
			vm.stack[vm.sp-n] = &evaluator.Tuple{Elements: vm.takeElements(n)}
			vm.sp++

		case OP_MAKE_SET:
			n := chunk.ReadOperand16(f.ip)
			f.ip += 2
			set := evaluator.NewSet()
			for _, el := range vm.stack[vm.sp-n : vm.sp] {
				if !set.Add(el) {
					return abort(vm.newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
						vm.tokAt(chunk, at), "unhashable set member of type %s", evaluator.TypeName(el)))
				}
			}
			vm.sp -= n
			vm.stack[vm.sp] = set
			vm.sp++

		case OP_MAKE_DICT:
			n := chunk.ReadOperand16(f.ip)
			f.ip += 2
			dict := evaluator.NewDict()
			pairs := vm.stack[vm.sp-2*n : vm.sp]
			for i := 0; i < len(pairs); i += 2 {
				if !dict.Set(pairs[i], pairs[i+1]) {
					return abort(vm.newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
						vm.tokAt(chunk, at), "unhashable dict key of type %s", evaluator.TypeName(pairs[i])))
				}
			}
			vm.sp -= 2 * n
			vm.stack[vm.sp] = dict
			vm.sp++

		case OP_INDEX:
			index := vm.stack[vm.sp-1]
			left := vm.stack[vm.sp-2]
			vm.sp -= 2
			result := evaluator.IndexValue(left, index, vm.tokAt(chunk, at))
			if isErrorObject(result) {
				return abort(result)
			}
			vm.stack[vm.sp] = result
			vm.sp++

		case OP_SET_INDEX:
			value := vm.stack[vm.sp-1]
			index := vm.stack[vm.sp-2]
			container := vm.stack[vm.sp-3]
			vm.sp -= 3
			result := evaluator.SetIndexValue(container, index, value, vm.tokAt(chunk, at))
			if isErrorObject(result) {
				return abort(result)
			}
			vm.stack[vm.sp] = result
			vm.sp++

		case OP_GET_MEMBER:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			name := chunk.Constants[idx].(*evaluator.String).Value
			obj := vm.stack[vm.sp-1]
			vm.sp--
			result := vm.eval.Member(obj, name, vm.tokAt(chunk, at))
			if isErrorObject(result) {
				return abort(result)
			}
			vm.stack[vm.sp] = result
			vm.sp++

		case OP_SET_MEMBER:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			name := chunk.Constants[idx].(*evaluator.String).Value
			value := vm.stack[vm.sp-1]
			container := vm.stack[vm.sp-2]
			vm.sp -= 2
			dict, ok := container.(*evaluator.Dict)
			if !ok {
				return abort(vm.newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
					vm.tokAt(chunk, at), "cannot set member on %s", evaluator.TypeName(container)))
			}
			dict.Set(&evaluator.String{Value: name}, value)
			vm.stack[vm.sp] = value
			vm.sp++

		case OP_THROW:
			value := vm.stack[vm.sp-1]
			vm.sp--
			err := vm.newError(diagnostics.ErrR006, diagnostics.KindThrown,
				vm.tokAt(chunk, at), "%s", evaluator.ToString(value))
			err.Payload = value
			return abort(err)

		case OP_EVAL_STMT:
			idx := chunk.ReadOperand16(f.ip)
			f.ip += 2
			island := chunk.Constants[idx].(*AstStatement)
			result := vm.eval.Eval(island.Stmt, vm.globals)
			switch r := result.(type) {
			case *evaluator.Error:
				return abort(r)
			case *evaluator.ReturnValue:
				value := r.Value
				vm.sp = f.base - 1
				vm.frameCount--
				if vm.frameCount == minDepth {
					return value
				}
				vm.stack[vm.sp] = value
				vm.sp++
			case *evaluator.BreakSignal:
				return abort(vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime,
					vm.tokAt(chunk, at), "break outside loop"))
			}

		default:
			return abort(vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime,
				vm.tokAt(chunk, at), "unknown opcode %d", op))
		}
	}
}

// dispatchCall handles OP_CALL. Compiled callees get a frame; everything
// else routes through the evaluator.
func (vm *VM) dispatchCall(argc int, tok token.Token) evaluator.Object {
	callee := vm.stack[vm.sp-1-argc]
	if cf, ok := callee.(*CompiledFunction); ok {
		if argc != cf.Arity {
			return vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime, tok,
				"%s expects %d argument(s), got %d", cf.Inspect(), cf.Arity, argc)
		}
		if err := vm.checkCapacity(cf, argc, tok); err != nil {
			return err
		}
		vm.frames[vm.frameCount] = frame{fn: cf, base: vm.sp - argc}
		vm.frameCount++
		return nil
	}

	args := make([]evaluator.Object, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])
	vm.sp -= argc + 1
	result := vm.applyInterp(callee, args, tok)
	if isErrorObject(result) {
		return result
	}
	vm.stack[vm.sp] = result
	vm.sp++
	return nil
}

// dispatchMethodCall handles obj::m(args): m resolves on the receiver
// first, then among globals and builtins, with the receiver passed as the
// first argument.
func (vm *VM) dispatchMethodCall(name string, argc int, tok token.Token) evaluator.Object {
	receiver := vm.stack[vm.sp-1-argc]

	var fn evaluator.Object
	if dict, ok := receiver.(*evaluator.Dict); ok {
		if member, found := dict.Get(&evaluator.String{Value: name}); found {
			fn = member
		}
	}
	if fn == nil {
		if value, ok := vm.globals.Get(name); ok {
			fn = value
		} else if builtin, ok := vm.eval.Builtins.Lookup(name); ok {
			fn = builtin
		}
	}
	if fn == nil {
		return vm.newError(diagnostics.ErrR001, diagnostics.KindUndefinedVar, tok,
			"undefined method %q", name)
	}

	if cf, ok := fn.(*CompiledFunction); ok {
		if argc+1 != cf.Arity {
			return vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime, tok,
				"%s expects %d argument(s), got %d", cf.Inspect(), cf.Arity, argc+1)
		}
		if err := vm.checkCapacity(cf, argc+1, tok); err != nil {
			return err
		}
		// reshape [recv, args...] into [fn, recv, args...]
		base := vm.sp - 1 - argc
		copy(vm.stack[base+1:vm.sp+1], vm.stack[base:vm.sp])
		vm.stack[base] = cf
		vm.sp++
		vm.frames[vm.frameCount] = frame{fn: cf, base: base + 1}
		vm.frameCount++
		return nil
	}

	args := make([]evaluator.Object, 0, argc+1)
	args = append(args, receiver)
	args = append(args, vm.stack[vm.sp-argc:vm.sp]...)
	vm.sp -= argc + 1
	result := vm.applyInterp(fn, args, tok)
	if isErrorObject(result) {
		return result
	}
	vm.stack[vm.sp] = result
	vm.sp++
	return nil
}

// applyInterp delegates a call to the evaluator and backfills source
// positions on errors raised without one.
func (vm *VM) applyInterp(fn evaluator.Object, args []evaluator.Object, tok token.Token) evaluator.Object {
	result := vm.eval.ApplyFunction(fn, args)
	if err, ok := result.(*evaluator.Error); ok && err.Diag.Line == 0 {
		err.Diag.Line = tok.Line
		err.Diag.Column = tok.Column
	}
	return result
}

func (vm *VM) takeElements(n int) []evaluator.Object {
	elements := make([]evaluator.Object, n)
	copy(elements, vm.stack[vm.sp-n:vm.sp])
	vm.sp -= n
	return elements
}

func (vm *VM) checkCapacity(fn *CompiledFunction, argc int, tok token.Token) evaluator.Object {
	if vm.frameCount >= MaxFrames {
		return vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime, tok, "call stack overflow")
	}
	if vm.sp+fn.LocalCount-argc+16 >= StackSize {
		return vm.newError(diagnostics.ErrR007, diagnostics.KindRuntime, tok, "value stack overflow")
	}
	return nil
}

// forTest evaluates the counted-loop condition over the hidden counter,
// end and step slots. The end bound is inclusive.
func forTest(counter, end, step evaluator.Object, tok token.Token) (evaluator.Object, evaluator.Object) {
	if !isNumericObject(counter) || !isNumericObject(end) || !isNumericObject(step) {
		return nil, &evaluator.Error{Diag: diagnostics.NewErrorAt(
			diagnostics.ErrR003, diagnostics.KindTypeMismatch, tok.Line, tok.Column,
			"for loop bounds must be numeric")}
	}
	by := numAsFloat(step)
	if by == 0 {
		return nil, &evaluator.Error{Diag: diagnostics.NewErrorAt(
			diagnostics.ErrR007, diagnostics.KindRuntime, tok.Line, tok.Column,
			"for loop step must not be zero")}
	}
	i := numAsFloat(counter)
	stop := numAsFloat(end)
	if by > 0 {
		return evaluator.NativeBoolToBooleanObject(i <= stop), nil
	}
	return evaluator.NativeBoolToBooleanObject(i >= stop), nil
}

func isNumericObject(obj evaluator.Object) bool {
	switch obj.(type) {
	case *evaluator.Integer, *evaluator.Float:
		return true
	}
	return false
}

func numAsFloat(obj evaluator.Object) float64 {
	switch v := obj.(type) {
	case *evaluator.Integer:
		return float64(v.Value)
	case *evaluator.Float:
		return v.Value
	}
	return 0
}

func isErrorObject(obj evaluator.Object) bool {
	_, ok := obj.(*evaluator.Error)
	return ok
}

func (vm *VM) tokAt(chunk *Chunk, offset int) token.Token {
	return token.Token{Line: chunk.Lines[offset], Column: chunk.Columns[offset]}
}

func (vm *VM) newError(code diagnostics.ErrorCode, kind diagnostics.Kind, tok token.Token, format string, args ...interface{}) *evaluator.Error {
	return &evaluator.Error{Diag: diagnostics.NewErrorAt(code, kind, tok.Line, tok.Column, format, args...)}
}
