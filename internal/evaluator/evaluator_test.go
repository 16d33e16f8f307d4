package evaluator

import (
	"bytes"
	"strings"
	"testing"

	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/lexer"
	"github.com/falcon-lang/falcon/internal/parser"
	"github.com/falcon-lang/falcon/internal/pipeline"
)

type evalResult struct {
	value  Object
	output string
}

func runSource(t *testing.T, input string) evalResult {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	l := lexer.New(input)
	toks, lexErr := l.Lex()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	p := parser.New(toks, ctx)
	program := p.ParseProgram()
	if ctx.HasErrors() {
		t.Fatalf("parse error: %v", ctx.Errors[0])
	}

	var out bytes.Buffer
	builtins := NewBuiltins(&out, t.TempDir())
	e := New(builtins)
	env := NewEnvironment()
	value := e.Eval(program, env)
	return evalResult{value: value, output: out.String()}
}

func runExpectError(t *testing.T, input string, kind diagnostics.Kind) *Error {
	t.Helper()
	res := runSource(t, input)
	err, ok := res.value.(*Error)
	if !ok {
		t.Fatalf("expected %s, got %T (%v)", kind, res.value, res.value)
	}
	if err.Diag.Kind != kind {
		t.Fatalf("error kind = %s, want %s (message: %s)", err.Diag.Kind, kind, err.Diag.Message)
	}
	return err
}

func assertOutput(t *testing.T, input, want string) {
	t.Helper()
	res := runSource(t, input)
	if err, ok := res.value.(*Error); ok {
		t.Fatalf("unexpected error: %v", err.Diag)
	}
	if res.output != want {
		t.Errorf("output = %q, want %q", res.output, want)
	}
}

func TestCounterClosure(t *testing.T) {
	input := `
function makeCounter() {
	var count := 0
	return function() {
		count = count + 1
		return count
	}
}
counter := makeCounter()
show(counter())
show(counter())
show(counter())
`
	assertOutput(t, input, "1\n2\n3\n")
}

func TestSharedEnvironmentAliasing(t *testing.T) {
	input := `
function makePair() {
	var n := 0
	inc := function() { n = n + 1; return n }
	get := function() { return n }
	return [inc, get]
}
pair := makePair()
inc := pair[0]
get := pair[1]
inc()
inc()
show(get())
`
	assertOutput(t, input, "2\n")
}

func TestConstReassignment(t *testing.T) {
	runExpectError(t, "const x := 1; x = 2", diagnostics.KindConstReassign)
	assertOutput(t, "var x := 1; x = 2; show(x)", "2\n")
}

func TestUndefinedVariable(t *testing.T) {
	runExpectError(t, "show(missing)", diagnostics.KindUndefinedVar)
	runExpectError(t, "missing = 1", diagnostics.KindUndefinedVar)
}

func TestStringCoercion(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`show('a' + 1)`, "a1\n"},
		{`show(1 + 'a')`, "1a\n"},
		{`show("x" + 1.5)`, "x1.5\n"},
		{`show("yes" + true)`, "yestrue\n"},
	}
	for _, tt := range tests {
		assertOutput(t, tt.input, tt.want)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"show(2 + 3 * 4)", "14\n"},
		{"show(10 / 4)", "2\n"},
		{"show(10.0 / 4)", "2.5\n"},
		{"show(7 % 3)", "1\n"},
		{"show(-5 + 3)", "-2\n"},
		{"show(1 < 2)", "true\n"},
		{"show(2 <= 2)", "true\n"},
		{"show(1 == 1.0)", "true\n"},
		{"show('b' > 'a')", "true\n"},
	}
	for _, tt := range tests {
		assertOutput(t, tt.input, tt.want)
	}
}

func TestDivisionByZero(t *testing.T) {
	runExpectError(t, "show(1 / 0)", diagnostics.KindDivisionByZero)
	runExpectError(t, "show(1 % 0)", diagnostics.KindDivisionByZero)
}

func TestTypeMismatch(t *testing.T) {
	runExpectError(t, "show([1] - 1)", diagnostics.KindTypeMismatch)
	runExpectError(t, "show(-'a')", diagnostics.KindTypeMismatch)
}

func TestForLoopInclusive(t *testing.T) {
	assertOutput(t, "for var i := 0 to 5 { show(i) }", "0\n1\n2\n3\n4\n5\n")
	assertOutput(t, "for i := 5 to 1 step -2 { show(i) }", "5\n3\n1\n")
	assertOutput(t, "for i := 0 to 10 step 3 { show(i) }", "0\n3\n6\n9\n")
	// Start beyond end in step direction: zero iterations.
	assertOutput(t, "for i := 5 to 0 { show(i) }", "")
}

func TestLoopBreak(t *testing.T) {
	input := `
var n := 0
loop {
	n = n + 1
	if n == 4 { break }
}
show(n)
`
	assertOutput(t, input, "4\n")
}

func TestWhile(t *testing.T) {
	input := `
var i := 0
while i < 3 {
	show(i)
	i = i + 1
}
`
	assertOutput(t, input, "0\n1\n2\n")
}

func TestMatchFirstArmWins(t *testing.T) {
	input := `
function grade(result) {
	return match result {
		case {score: s} if s >= 90: "top"
		case {score: s} if s >= 50: "mid"
		case _: "low"
	}
}
show(grade({score: 95}))
show(grade({score: 60}))
show(grade({score: 10}))
show(grade("banana"))
`
	assertOutput(t, input, "top\nmid\nlow\nlow\n")
}

func TestMatchPatterns(t *testing.T) {
	input := `
function describe(v) {
	return match v {
		case 0: "zero"
		case [x, y]: "pair " + x + " " + y
		case {name: n, age: a}: n + " is " + a
		case null: "nothing"
		case other: "value " + other
	}
}
show(describe(0))
show(describe([1, 2]))
show(describe({name: "ada", age: 36}))
show(describe(null))
show(describe(7))
`
	assertOutput(t, input, "zero\npair 1 2\nada is 36\nnothing\nvalue 7\n")
}

func TestMatchError(t *testing.T) {
	runExpectError(t, `match 3 { case 1: "one" }`, diagnostics.KindMatch)
}

func TestTryCatchThrow(t *testing.T) {
	input := `
try {
	throw {code: 42}
} catch (e) {
	show(e.code)
}
`
	assertOutput(t, input, "42\n")

	input = `
try {
	show(1 / 0)
} catch (e) {
	show("caught: " + e)
}
show("after")
`
	assertOutput(t, input, "caught: division by zero\nafter\n")
}

func TestUncaughtThrowPropagates(t *testing.T) {
	err := runExpectError(t, `function f() { throw "boom" } f()`, diagnostics.KindThrown)
	if payload, ok := err.Payload.(*String); !ok || payload.Value != "boom" {
		t.Errorf("payload = %#v, want \"boom\"", err.Payload)
	}
}

func TestMethodCallSugar(t *testing.T) {
	input := `
function greet(who, msg) {
	return msg + ", " + who.name
}
person := {name: "ada"}
show(person::greet("hello"))
`
	assertOutput(t, input, "hello, ada\n")

	// Method found on the receiver itself.
	input = `
obj := {double: function(self) { return self.n * 2 }, n: 21}
show(obj::double())
`
	assertOutput(t, input, "42\n")
}

func TestCollections(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"l := [1, 2, 3]; show(l[1])", "2\n"},
		{"l := [1, 2, 3]; show(l[-1])", "3\n"},
		{"l := [1, 2]; l[0] = 9; show(l[0])", "9\n"},
		{"t := (1, 2); show(t[0])", "1\n"},
		{"d := {a: 1}; show(d.a)", "1\n"},
		{"d := {a: 1}; d.b = 2; show(d['b'])", "2\n"},
		{"d := {a: 1}; show(d.missing)", "null\n"},
		{"s := #{1, 2, 2}; show(len(s))", "2\n"},
		{"a := array(3, 0); a[2] = 7; show(a[2])", "7\n"},
		{"show(len('héllo'))", "5\n"},
		{"show([1] + [2, 3])", "[1, 2, 3]\n"},
		{"show('abc'[1])", "b\n"},
	}
	for _, tt := range tests {
		assertOutput(t, tt.input, tt.want)
	}
}

func TestTupleImmutable(t *testing.T) {
	runExpectError(t, "t := (1, 2); t[0] = 9", diagnostics.KindTypeMismatch)
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"show(len([1, 2, 3]))", "3\n"},
		{"show(range(3))", "[0, 1, 2]\n"},
		{"show(range(1, 4))", "[1, 2, 3]\n"},
		{"show(range(5, 0, -2))", "[5, 3, 1]\n"},
		{"show(typeOf(1), typeOf(1.5), typeOf('s'), typeOf(true), typeOf(null))", "integer float string boolean null\n"},
		{"show(typeOf([1]), typeOf((1, 2)), typeOf({a: 1}), typeOf(#{1}))", "list tuple dict set\n"},
		{"show(toString(12) + toString(true))", "12true\n"},
		{"assert(1 < 2); show('ok')", "ok\n"},
		{"console.log('hi')", "hi\n"},
	}
	for _, tt := range tests {
		assertOutput(t, tt.input, tt.want)
	}

	err := runExpectError(t, "assert(false, 'nope')", diagnostics.KindRuntime)
	if !strings.Contains(err.Diag.Message, "nope") {
		t.Errorf("assert message = %q", err.Diag.Message)
	}
}

func TestFileSandbox(t *testing.T) {
	input := `
writeFile("note.txt", "hello")
show(readFile("note.txt"))
`
	assertOutput(t, input, "hello\n")

	runExpectError(t, `readFile("../outside.txt")`, diagnostics.KindRuntime)
	runExpectError(t, `writeFile("../../etc/escape", "x")`, diagnostics.KindRuntime)
}

func TestPromiseSynchronousDrain(t *testing.T) {
	input := `
p := Promise.resolve(1)
p.then(function(v) {
	show("first " + v)
	return v + 1
}).then(function(v) {
	show("second " + v)
	return v
})
show("end")
`
	assertOutput(t, input, "first 1\nsecond 2\nend\n")

	input = `
p := Promise(function(resolve) { resolve(10) })
p.then(function(v) { show(v) })
`
	assertOutput(t, input, "10\n")
}

func TestPromiseRejectAndCatch(t *testing.T) {
	input := `
Promise.reject("boom").then(function(v) {
	show("skipped " + v)
	return v
}).catch(function(reason) {
	show("caught " + reason)
	return "recovered"
}).then(function(v) {
	show("after " + v)
	return v
})
show("end")
`
	assertOutput(t, input, "caught boom\nafter recovered\nend\n")

	// an executor can reject through its second callback
	input = `
p := Promise(function(resolve, reject) { reject(42) })
p.catch(function(reason) { show(reason) })
`
	assertOutput(t, input, "42\n")

	// catch on a resolved promise passes the value through
	input = `
Promise.resolve(7).catch(function(reason) {
	show("not called")
	return reason
}).then(function(v) { show(v) })
`
	assertOutput(t, input, "7\n")
}

func TestConsoleError(t *testing.T) {
	assertOutput(t, `console.error("bad thing", 7)`, "ERROR: bad thing 7\n")

	var out, errOut bytes.Buffer
	builtins := NewBuiltins(&out, t.TempDir())
	builtins.Err = &errOut
	member, found := builtins.Console.Get(&String{Value: "error"})
	if !found {
		t.Fatal("console has no error member")
	}
	member.(*Builtin).Fn(&String{Value: "boom"})
	if errOut.String() != "ERROR: boom\n" {
		t.Errorf("error output = %q, want %q", errOut.String(), "ERROR: boom\n")
	}
	if out.Len() != 0 {
		t.Errorf("error line leaked to standard output: %q", out.String())
	}
}

func TestLogicalOperators(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"show(true && false)", "false\n"},
		{"show(1 && 2)", "2\n"},
		{"show(0 || 3)", "3\n"},
		{"show(null || 'fallback')", "fallback\n"},
		{"show(!0)", "true\n"},
		// Right side must not evaluate when short-circuited.
		{"false && show('no'); show('done')", "done\n"},
		{"true || show('no'); show('done')", "done\n"},
	}
	for _, tt := range tests {
		assertOutput(t, tt.input, tt.want)
	}
}

func TestShadowing(t *testing.T) {
	input := `
var x := 1
function f() {
	var x := 2
	show(x)
}
f()
show(x)
`
	assertOutput(t, input, "2\n1\n")
}

func TestRecursion(t *testing.T) {
	input := `
function fib(n) {
	if n < 2 { return n }
	return fib(n - 1) + fib(n - 2)
}
show(fib(10))
`
	assertOutput(t, input, "55\n")
}
