package evaluator

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/falcon-lang/falcon/internal/diagnostics"
)

// Builtins is the capability table both engines dispatch into by name.
// Apply is the function-application hook; the owning Evaluator installs it
// so builtins can invoke user callbacks (Promise executors, then-handlers).
type Builtins struct {
	Out   io.Writer
	Err   io.Writer // console.error target; defaults to Out
	Dir   string    // sandbox root for file builtins
	Apply func(fn Object, args []Object) Object
	Exit  func(code int)

	// Console is the console namespace dict; log aliases show and
	// error writes an ERROR-prefixed line to Err.
	Console *Dict

	table map[string]*Builtin
}

func NewBuiltins(out io.Writer, dir string) *Builtins {
	b := &Builtins{
		Out:  out,
		Err:  out,
		Dir:  dir,
		Exit: os.Exit,
	}
	b.table = map[string]*Builtin{
		"show":      {Name: "show", Fn: b.builtinShow},
		"print":     {Name: "print", Fn: b.builtinShow},
		"len":       {Name: "len", Fn: builtinLen},
		"range":     {Name: "range", Fn: builtinRange},
		"typeOf":    {Name: "typeOf", Fn: builtinTypeOf},
		"assert":    {Name: "assert", Fn: builtinAssert},
		"exit":      {Name: "exit", Fn: b.builtinExit},
		"toString":  {Name: "toString", Fn: builtinToString},
		"readFile":  {Name: "readFile", Fn: b.builtinReadFile},
		"writeFile": {Name: "writeFile", Fn: b.builtinWriteFile},
		"array":     {Name: "array", Fn: builtinArray},
		"Promise":   {Name: "Promise", Fn: b.builtinPromise},
	}
	b.Console = NewDict()
	b.Console.Set(&String{Value: "log"}, b.table["show"])
	b.Console.Set(&String{Value: "error"}, &Builtin{Name: "console.error", Fn: b.builtinConsoleError})
	return b
}

// Lookup resolves a builtin by name.
func (b *Builtins) Lookup(name string) (*Builtin, bool) {
	fn, ok := b.table[name]
	return fn, ok
}

// Install binds every builtin into env as an immutable global.
func (b *Builtins) Install(env *Environment) {
	for name, fn := range b.table {
		env.Define(name, fn, false)
	}
	env.Define("console", b.Console, false)
}

func (b *Builtins) builtinShow(args ...Object) Object {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = FormatValue(a)
	}
	io.WriteString(b.Out, strings.Join(parts, " ")+"\n")
	return NULL
}

func (b *Builtins) builtinConsoleError(args ...Object) Object {
	parts := make([]string, len(args)+1)
	parts[0] = "ERROR:"
	for i, a := range args {
		parts[i+1] = FormatValue(a)
	}
	io.WriteString(b.Err, strings.Join(parts, " ")+"\n")
	return NULL
}

func builtinLen(args ...Object) Object {
	if len(args) != 1 {
		return argCountError("len", 1, len(args))
	}
	switch arg := args[0].(type) {
	case *String:
		return &Integer{Value: int64(utf8.RuneCountInString(arg.Value))}
	case *List:
		return &Integer{Value: int64(len(arg.Elements))}
	case *Tuple:
		return &Integer{Value: int64(len(arg.Elements))}
	case *Array:
		return &Integer{Value: int64(len(arg.Elements))}
	case *Dict:
		return &Integer{Value: int64(len(arg.Pairs))}
	case *Set:
		return &Integer{Value: int64(len(arg.Members))}
	default:
		return newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch, 0, 0,
			"len not supported on %s", TypeName(args[0]))
	}
}

// builtinRange returns a list of integers. range(end) counts from 0;
// range(start, end[, step]) like the usual half-open interval.
func builtinRange(args ...Object) Object {
	ints := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(*Integer)
		if !ok {
			return newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch, 0, 0,
				"range expects integer arguments, got %s", TypeName(a))
		}
		ints[i] = n.Value
	}

	var start, end, step int64
	switch len(args) {
	case 1:
		start, end, step = 0, ints[0], 1
	case 2:
		start, end, step = ints[0], ints[1], 1
	case 3:
		start, end, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
				"range step must not be zero")
		}
	default:
		return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"range expects 1 to 3 arguments, got %d", len(args))
	}

	list := &List{}
	if step > 0 {
		for i := start; i < end; i += step {
			list.Elements = append(list.Elements, &Integer{Value: i})
		}
	} else {
		for i := start; i > end; i += step {
			list.Elements = append(list.Elements, &Integer{Value: i})
		}
	}
	return list
}

func builtinTypeOf(args ...Object) Object {
	if len(args) != 1 {
		return argCountError("typeOf", 1, len(args))
	}
	return &String{Value: TypeName(args[0])}
}

func builtinAssert(args ...Object) Object {
	if len(args) < 1 || len(args) > 2 {
		return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"assert expects 1 or 2 arguments, got %d", len(args))
	}
	if IsTruthy(args[0]) {
		return NULL
	}
	msg := "assertion failed"
	if len(args) == 2 {
		msg = "assertion failed: " + ToString(args[1])
	}
	return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0, "%s", msg)
}

func (b *Builtins) builtinExit(args ...Object) Object {
	code := 0
	if len(args) > 0 {
		if n, ok := args[0].(*Integer); ok {
			code = int(n.Value)
		}
	}
	b.Exit(code)
	return NULL
}

func builtinToString(args ...Object) Object {
	if len(args) != 1 {
		return argCountError("toString", 1, len(args))
	}
	return &String{Value: ToString(args[0])}
}

// builtinArray builds a fixed-size array: array(n) of nulls, or
// array(n, fill).
func builtinArray(args ...Object) Object {
	if len(args) < 1 || len(args) > 2 {
		return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"array expects 1 or 2 arguments, got %d", len(args))
	}
	n, ok := args[0].(*Integer)
	if !ok || n.Value < 0 {
		return newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch, 0, 0,
			"array size must be a non-negative integer")
	}
	var fill Object = NULL
	if len(args) == 2 {
		fill = args[1]
	}
	arr := &Array{Elements: make([]Object, n.Value)}
	for i := range arr.Elements {
		arr.Elements[i] = fill
	}
	return arr
}

// resolveSandboxed maps a user path into the sandbox root and rejects any
// path that escapes it.
func (b *Builtins) resolveSandboxed(path string) (string, Object) {
	root, err := filepath.Abs(b.Dir)
	if err != nil {
		return "", newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"cannot resolve working directory: %v", err)
	}
	full := filepath.Join(root, path)
	if filepath.IsAbs(path) {
		full = filepath.Clean(path)
	}
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return "", newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"path %q is outside the working directory", path)
	}
	return full, nil
}

func (b *Builtins) builtinReadFile(args ...Object) Object {
	if len(args) != 1 {
		return argCountError("readFile", 1, len(args))
	}
	path, ok := args[0].(*String)
	if !ok {
		return newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch, 0, 0,
			"readFile expects a string path")
	}
	full, errObj := b.resolveSandboxed(path.Value)
	if errObj != nil {
		return errObj
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"readFile: %v", err)
	}
	return &String{Value: string(data)}
}

func (b *Builtins) builtinWriteFile(args ...Object) Object {
	if len(args) != 2 {
		return argCountError("writeFile", 2, len(args))
	}
	path, ok := args[0].(*String)
	if !ok {
		return newError(diagnostics.ErrR003, diagnostics.KindTypeMismatch, 0, 0,
			"writeFile expects a string path")
	}
	full, errObj := b.resolveSandboxed(path.Value)
	if errObj != nil {
		return errObj
	}
	if err := os.WriteFile(full, []byte(ToString(args[1])), 0o644); err != nil {
		return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
			"writeFile: %v", err)
	}
	return NULL
}

// builtinPromise constructs a promise. With a function argument it runs the
// executor immediately, passing resolve and reject callbacks; with any other
// argument the promise resolves to that value.
func (b *Builtins) builtinPromise(args ...Object) Object {
	if len(args) != 1 {
		return argCountError("Promise", 1, len(args))
	}

	p := &Promise{Value: NULL}
	switch arg := args[0].(type) {
	case Callable, *Builtin:
		resolve := &Builtin{Name: "resolve", Fn: func(rargs ...Object) Object {
			if len(rargs) > 0 && !p.Rejected {
				p.Value = rargs[0]
			}
			return NULL
		}}
		reject := &Builtin{Name: "reject", Fn: func(rargs ...Object) Object {
			p.Rejected = true
			p.Reason = NULL
			if len(rargs) > 0 {
				p.Reason = rargs[0]
			}
			return NULL
		}}
		if b.Apply == nil {
			return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
				"Promise executor cannot run outside an evaluator")
		}
		callbacks := []Object{resolve, reject}
		if fn, ok := arg.(Callable); ok && fn.ParamCount() < len(callbacks) {
			callbacks = callbacks[:fn.ParamCount()]
		}
		if result := b.Apply(arg, callbacks); result != nil && result.Type() == ERROR_OBJ {
			return result
		}
	default:
		p.Value = arg
	}
	return p
}

// PromiseResolve backs Promise.resolve.
func (b *Builtins) PromiseResolve() *Builtin {
	return &Builtin{Name: "Promise.resolve", Fn: func(args ...Object) Object {
		if len(args) != 1 {
			return argCountError("Promise.resolve", 1, len(args))
		}
		if p, ok := args[0].(*Promise); ok {
			return p
		}
		return &Promise{Value: args[0]}
	}}
}

// PromiseReject backs Promise.reject.
func (b *Builtins) PromiseReject() *Builtin {
	return &Builtin{Name: "Promise.reject", Fn: func(args ...Object) Object {
		if len(args) != 1 {
			return argCountError("Promise.reject", 1, len(args))
		}
		return &Promise{Value: NULL, Rejected: true, Reason: args[0]}
	}}
}

// PromiseThen returns the bound then-callback for p. The handler runs
// immediately; its result becomes the value of the returned promise, with
// nested promises flattened. A rejected promise skips the handler and
// carries its reason forward.
func (b *Builtins) PromiseThen(p *Promise) *Builtin {
	return &Builtin{Name: "then", Fn: func(args ...Object) Object {
		if len(args) != 1 {
			return argCountError("then", 1, len(args))
		}
		if p.Rejected {
			return p
		}
		if b.Apply == nil {
			return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
				"then handler cannot run outside an evaluator")
		}
		result := b.Apply(args[0], []Object{p.Value})
		if result != nil && result.Type() == ERROR_OBJ {
			return result
		}
		if inner, ok := result.(*Promise); ok {
			return inner
		}
		return &Promise{Value: result}
	}}
}

// PromiseCatch returns the bound catch-callback for p. On a rejected
// promise the handler receives the reason and its result resolves the
// returned promise; a resolved promise passes through untouched.
func (b *Builtins) PromiseCatch(p *Promise) *Builtin {
	return &Builtin{Name: "catch", Fn: func(args ...Object) Object {
		if len(args) != 1 {
			return argCountError("catch", 1, len(args))
		}
		if !p.Rejected {
			return p
		}
		if b.Apply == nil {
			return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
				"catch handler cannot run outside an evaluator")
		}
		result := b.Apply(args[0], []Object{p.Reason})
		if result != nil && result.Type() == ERROR_OBJ {
			return result
		}
		if inner, ok := result.(*Promise); ok {
			return inner
		}
		return &Promise{Value: result}
	}}
}

func argCountError(name string, want, got int) Object {
	return newError(diagnostics.ErrR007, diagnostics.KindRuntime, 0, 0,
		"%s expects %d argument(s), got %d", name, want, got)
}
