package vm

import (
	"io"
	"strings"
	"testing"

	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/lexer"
	"github.com/falcon-lang/falcon/internal/parser"
	"github.com/falcon-lang/falcon/internal/pipeline"
)

func compileSource(t *testing.T, input string) *CompiledFunction {
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
	builtins := evaluator.NewBuiltins(io.Discard, t.TempDir())
	fn, cerr := Compile(program, builtins)
	if cerr != nil {
		t.Fatalf("compile error: %v", cerr)
	}
	return fn
}

func hasOpcode(c *Chunk, want Opcode) bool {
	offset := 0
	for offset < c.Len() {
		op := Opcode(c.Code[offset])
		if op == want {
			return true
		}
		offset += 1 + operandWidth(op)
	}
	return false
}

func countOpcode(c *Chunk, want Opcode) int {
	n := 0
	offset := 0
	for offset < c.Len() {
		op := Opcode(c.Code[offset])
		if op == want {
			n++
		}
		offset += 1 + operandWidth(op)
	}
	return n
}

func findCompiledFunction(c *Chunk, name string) *CompiledFunction {
	for _, constant := range c.Constants {
		if fn, ok := constant.(*CompiledFunction); ok && fn.Name == name {
			return fn
		}
	}
	return nil
}

func findTemplate(c *Chunk, name string) *FunctionTemplate {
	for _, constant := range c.Constants {
		if tmpl, ok := constant.(*FunctionTemplate); ok && tmpl.Name == name {
			return tmpl
		}
	}
	return nil
}

// Plain functions lower to bytecode; functions with match, try or real
// closures stay as templates for the interpreter.
func TestFunctionLowering(t *testing.T) {
	src := `
function add(a, b) { return a + b }
function pick(v) {
	return match v {
		case 1: "one"
		case _: "other"
	}
}
function makeCounter() {
	var count := 0
	return function() {
		count = count + 1
		return count
	}
}
show(add(1, 2))
`
	fn := compileSource(t, src)

	add := findCompiledFunction(fn.Chunk, "add")
	if add == nil {
		t.Fatal("add did not lower to bytecode")
	}
	if add.Arity != 2 {
		t.Errorf("add arity = %d, want 2", add.Arity)
	}
	if findTemplate(fn.Chunk, "add") != nil {
		t.Error("add also present as a template")
	}

	if findTemplate(fn.Chunk, "pick") == nil {
		t.Error("pick (contains match) should stay a template")
	}
	if findTemplate(fn.Chunk, "makeCounter") == nil {
		t.Error("makeCounter (returns closure) should stay a template")
	}
}

func TestTopLevelIslands(t *testing.T) {
	src := `
try {
	show(1)
} catch (e) {
	show(e)
}
`
	fn := compileSource(t, src)
	if !hasOpcode(fn.Chunk, OP_EVAL_STMT) {
		t.Fatal("try statement should compile to an interpreter island")
	}
	found := false
	for _, constant := range fn.Chunk.Constants {
		if _, ok := constant.(*AstStatement); ok {
			found = true
		}
	}
	if !found {
		t.Error("no AST statement constant in pool")
	}
}

// A statement whose function literal captures a block local cannot run on
// the VM; the whole statement defers to the interpreter.
func TestClosureOverBlockLocalIslands(t *testing.T) {
	src := `
if true {
	var secret := 7
	getter := function() { return secret }
	show(getter())
}
`
	fn := compileSource(t, src)
	if !hasOpcode(fn.Chunk, OP_EVAL_STMT) {
		t.Fatal("statement with a capturing closure should become an island")
	}
}

func TestGlobalOnlyFunctionsLower(t *testing.T) {
	src := `
var base := 10
function addBase(n) { return n + base }
show(addBase(5))
`
	fn := compileSource(t, src)
	if findCompiledFunction(fn.Chunk, "addBase") == nil {
		t.Fatal("function reading only globals should lower to bytecode")
	}
}

func TestForLoopBytecode(t *testing.T) {
	fn := compileSource(t, `for var i := 0 to 5 { show(i) }`)
	if !hasOpcode(fn.Chunk, OP_FOR_TEST) {
		t.Error("no OP_FOR_TEST emitted")
	}
	if !hasOpcode(fn.Chunk, OP_LOOP) {
		t.Error("no OP_LOOP emitted")
	}
	if hasOpcode(fn.Chunk, OP_EVAL_STMT) {
		t.Error("counted loop should not defer to the interpreter")
	}
}

func TestPeepholeStripsDeadPushes(t *testing.T) {
	src := `
1
true
null
show(2)
`
	fn := compileSource(t, src)
	before := countOpcode(fn.Chunk, OP_POP)
	if before < 3 {
		t.Fatalf("expected at least 3 pops before optimization, got %d", before)
	}

	Optimize(fn)
	if countOpcode(fn.Chunk, OP_NOP) == 0 {
		t.Error("optimizer rewrote nothing")
	}
	if countOpcode(fn.Chunk, OP_POP) >= before {
		t.Error("dead push/pop pairs survived")
	}
}

func TestPeepholePreservesBehavior(t *testing.T) {
	src := `
var total := 0
for i := 1 to 10 {
	if i % 2 == 0 {
		total = total + i
	}
}
1
show(total)
`
	_, plain := runVMOpt(t, src, false)
	_, optimized := runVMOpt(t, src, true)
	if plain != optimized {
		t.Errorf("optimized output %q differs from plain %q", optimized, plain)
	}
	if optimized != "30\n" {
		t.Errorf("output = %q, want %q", optimized, "30\n")
	}
}

func TestPeepholeRecursesIntoFunctions(t *testing.T) {
	src := `
function noisy() {
	1
	return 2
}
show(noisy())
`
	fn := compileSource(t, src)
	Optimize(fn)
	noisy := findCompiledFunction(fn.Chunk, "noisy")
	if noisy == nil {
		t.Fatal("noisy did not lower")
	}
	if countOpcode(noisy.Chunk, OP_NOP) == 0 {
		t.Error("nested function was not optimized")
	}
}

func TestDisassemble(t *testing.T) {
	fn := compileSource(t, `show(1 + 2)`)
	text := Disassemble(fn.Chunk, "main")
	for _, want := range []string{"== main ==", "OP_CONST", "OP_ADD", "OP_CALL", "OP_RETURN"} {
		if !strings.Contains(text, want) {
			t.Errorf("disassembly missing %q:\n%s", want, text)
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	src := `function pick(v) {
	return match v {
		case 1: "one"
		case _: "other"
	}
}
show(pick(1))
try { throw "x" } catch (e) { show("caught") }`

	fn := compileSource(t, src)
	Optimize(fn)

	data, err := Serialize(fn)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if string(data[:4]) != "FNBC" {
		t.Fatalf("magic = %q, want FNBC", data[:4])
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	var out strings.Builder
	builtins := evaluator.NewBuiltins(&out, t.TempDir())
	e := evaluator.New(builtins)
	globals := evaluator.NewEnvironment()
	builtins.Install(globals)
	machine := NewVM(e, globals)
	result := machine.Run(restored)
	if errObj, ok := result.(*evaluator.Error); ok {
		t.Fatalf("run error: %v", errObj.Diag)
	}
	want := "one\ncaught\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	if _, err := Deserialize([]byte("JUNKJUNKJUNK")); err == nil {
		t.Error("bad magic accepted")
	}
	if _, err := Deserialize([]byte{'F', 'N', 'B', 'C', 99}); err == nil {
		t.Error("future version accepted")
	}
	if _, err := Deserialize(nil); err == nil {
		t.Error("empty input accepted")
	}
}
