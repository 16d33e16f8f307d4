package parser

import (
	"testing"

	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/lexer"
	"github.com/falcon-lang/falcon/internal/pipeline"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	l := lexer.New(input)
	toks, lexErr := l.Lex()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	ctx.TokenStream = toks
	p := New(toks, ctx)
	program := p.ParseProgram()
	if ctx.HasErrors() {
		t.Fatalf("parse errors: %v", ctx.Errors[0])
	}
	return program
}

func parseWithError(t *testing.T, input string) *pipeline.PipelineContext {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	l := lexer.New(input)
	toks, lexErr := l.Lex()
	if lexErr != nil {
		t.Fatalf("lex error: %v", lexErr)
	}
	p := New(toks, ctx)
	p.ParseProgram()
	return ctx
}

func TestVarStatements(t *testing.T) {
	tests := []struct {
		input       string
		wantName    string
		wantMutable bool
	}{
		{"var x := 5;", "x", true},
		{"let y = 10", "y", true},
		{"const z := 1", "z", false},
		{"w := 42", "w", true},
	}

	for _, tt := range tests {
		program := parseProgram(t, tt.input)
		if len(program.Statements) != 1 {
			t.Fatalf("%q: got %d statements, want 1", tt.input, len(program.Statements))
		}
		stmt, ok := program.Statements[0].(*ast.VarStatement)
		if !ok {
			t.Fatalf("%q: statement is %T, want *ast.VarStatement", tt.input, program.Statements[0])
		}
		if stmt.Name.Value != tt.wantName {
			t.Errorf("%q: name = %q, want %q", tt.input, stmt.Name.Value, tt.wantName)
		}
		if stmt.Mutable != tt.wantMutable {
			t.Errorf("%q: mutable = %v, want %v", tt.input, stmt.Mutable, tt.wantMutable)
		}
	}
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		check func(t *testing.T, e ast.Expression)
	}{
		{
			"1 + 2 * 3",
			func(t *testing.T, e ast.Expression) {
				add := e.(*ast.InfixExpression)
				if add.Operator != "+" {
					t.Fatalf("top operator = %q, want +", add.Operator)
				}
				mul, ok := add.Right.(*ast.InfixExpression)
				if !ok || mul.Operator != "*" {
					t.Fatalf("right side is not a * expression: %#v", add.Right)
				}
			},
		},
		{
			"a == b && c != d || e < f",
			func(t *testing.T, e ast.Expression) {
				or := e.(*ast.InfixExpression)
				if or.Operator != "||" {
					t.Fatalf("top operator = %q, want ||", or.Operator)
				}
				and, ok := or.Left.(*ast.InfixExpression)
				if !ok || and.Operator != "&&" {
					t.Fatalf("left of || is not &&: %#v", or.Left)
				}
			},
		},
		{
			"(1 + 2) * 3",
			func(t *testing.T, e ast.Expression) {
				mul := e.(*ast.InfixExpression)
				if mul.Operator != "*" {
					t.Fatalf("top operator = %q, want *", mul.Operator)
				}
				if _, ok := mul.Left.(*ast.InfixExpression); !ok {
					t.Fatalf("grouping lost: left is %T", mul.Left)
				}
			},
		},
		{
			"-a * b",
			func(t *testing.T, e ast.Expression) {
				mul := e.(*ast.InfixExpression)
				if _, ok := mul.Left.(*ast.PrefixExpression); !ok {
					t.Fatalf("prefix does not bind tighter than *: %#v", mul.Left)
				}
			},
		},
	}

	for _, tt := range tests {
		program := parseProgram(t, tt.input)
		stmt := program.Statements[0].(*ast.ExpressionStatement)
		tt.check(t, stmt.Expression)
	}
}

func TestForStatement(t *testing.T) {
	program := parseProgram(t, "for var i := 0 to 10 step 2 { show(i) }")
	stmt, ok := program.Statements[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.ForStatement", program.Statements[0])
	}
	if stmt.Name.Value != "i" {
		t.Errorf("loop var = %q, want i", stmt.Name.Value)
	}
	if stmt.Step == nil {
		t.Error("step missing")
	}
	if len(stmt.Body.Statements) != 1 {
		t.Errorf("body has %d statements, want 1", len(stmt.Body.Statements))
	}

	program = parseProgram(t, "for i := 10 to 0 step -1 { }")
	stmt = program.Statements[0].(*ast.ForStatement)
	if _, ok := stmt.Step.(*ast.PrefixExpression); !ok {
		t.Errorf("negative step parsed as %T", stmt.Step)
	}
}

func TestMatchExpression(t *testing.T) {
	input := `match result {
		case {score: s} if s >= 90: "top";
		case {score: s} if s >= 50: "mid"
		case [1, x]: x
		case "exact": 1
		case _: "none"
	}`

	program := parseProgram(t, input)
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	m, ok := stmt.Expression.(*ast.MatchExpression)
	if !ok {
		t.Fatalf("expression is %T, want *ast.MatchExpression", stmt.Expression)
	}
	if len(m.Arms) != 5 {
		t.Fatalf("got %d arms, want 5", len(m.Arms))
	}

	first := m.Arms[0]
	dp, ok := first.Pattern.(*ast.DictPattern)
	if !ok {
		t.Fatalf("first pattern is %T, want *ast.DictPattern", first.Pattern)
	}
	if len(dp.Fields) != 1 || dp.Fields[0].Key != "score" {
		t.Errorf("dict pattern fields = %#v", dp.Fields)
	}
	if first.Guard == nil {
		t.Error("first arm guard missing")
	}

	if _, ok := m.Arms[2].Pattern.(*ast.ListPattern); !ok {
		t.Errorf("third pattern is %T, want *ast.ListPattern", m.Arms[2].Pattern)
	}
	if _, ok := m.Arms[4].Pattern.(*ast.WildcardPattern); !ok {
		t.Errorf("last pattern is %T, want *ast.WildcardPattern", m.Arms[4].Pattern)
	}
}

func TestMethodCallSugar(t *testing.T) {
	program := parseProgram(t, "obj::greet(1, 2)")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	mc, ok := stmt.Expression.(*ast.MethodCallExpression)
	if !ok {
		t.Fatalf("expression is %T, want *ast.MethodCallExpression", stmt.Expression)
	}
	if mc.Method.Value != "greet" {
		t.Errorf("method = %q, want greet", mc.Method.Value)
	}
	if len(mc.Arguments) != 2 {
		t.Errorf("got %d args, want 2", len(mc.Arguments))
	}
	if _, ok := mc.Receiver.(*ast.Identifier); !ok {
		t.Errorf("receiver is %T, want *ast.Identifier", mc.Receiver)
	}
}

func TestCollectionLiterals(t *testing.T) {
	program := parseProgram(t, `[1, 2] (1, 2) {a: 1, "b": 2} #{1, 2}`)
	if len(program.Statements) != 4 {
		t.Fatalf("got %d statements, want 4", len(program.Statements))
	}

	list := program.Statements[0].(*ast.ExpressionStatement).Expression
	if l, ok := list.(*ast.ListLiteral); !ok || len(l.Elements) != 2 {
		t.Errorf("list literal: %#v", list)
	}
	tup := program.Statements[1].(*ast.ExpressionStatement).Expression
	if tl, ok := tup.(*ast.TupleLiteral); !ok || len(tl.Elements) != 2 {
		t.Errorf("tuple literal: %#v", tup)
	}
	dict := program.Statements[2].(*ast.ExpressionStatement).Expression
	dl, ok := dict.(*ast.DictLiteral)
	if !ok || len(dl.Pairs) != 2 {
		t.Fatalf("dict literal: %#v", dict)
	}
	if key, ok := dl.Pairs[0].Key.(*ast.StringLiteral); !ok || key.Value != "a" {
		t.Errorf("bare dict key not parsed as string: %#v", dl.Pairs[0].Key)
	}
	set := program.Statements[3].(*ast.ExpressionStatement).Expression
	if sl, ok := set.(*ast.SetLiteral); !ok || len(sl.Elements) != 2 {
		t.Errorf("set literal: %#v", set)
	}
}

func TestFunctionForms(t *testing.T) {
	program := parseProgram(t, `function add(x, y) { return x + y }
f := function(a) { return a }`)

	fn, ok := program.Statements[0].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.FunctionStatement", program.Statements[0])
	}
	if fn.Name.Value != "add" || len(fn.Parameters) != 2 {
		t.Errorf("function header: %s/%d params", fn.Name.Value, len(fn.Parameters))
	}

	decl := program.Statements[1].(*ast.VarStatement)
	if _, ok := decl.Value.(*ast.FunctionLiteral); !ok {
		t.Errorf("value is %T, want *ast.FunctionLiteral", decl.Value)
	}
}

func TestTryCatchThrow(t *testing.T) {
	program := parseProgram(t, `try { throw "boom" } catch (e) { show(e) }`)
	stmt, ok := program.Statements[0].(*ast.TryStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.TryStatement", program.Statements[0])
	}
	if stmt.CatchVar.Value != "e" {
		t.Errorf("catch var = %q, want e", stmt.CatchVar.Value)
	}
	if _, ok := stmt.Body.Statements[0].(*ast.ThrowStatement); !ok {
		t.Errorf("try body[0] is %T, want *ast.ThrowStatement", stmt.Body.Statements[0])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing value", "var x :="},
		{"missing brace", "if x { show(x)"},
		{"bad assignment target", "1 + 2 = 3"},
		{"match without arms", "match x { }"},
		{"bad pattern", "match x { case +: 1 }"},
		{"for without to", "for i := 0 { }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := parseWithError(t, tt.input)
			if !ctx.HasErrors() {
				t.Fatalf("expected parse error for %q", tt.input)
			}
		})
	}
}

func TestElseIfChain(t *testing.T) {
	program := parseProgram(t, `if a { } else if b { } else { }`)
	stmt := program.Statements[0].(*ast.IfStatement)
	chained, ok := stmt.Alternative.(*ast.IfStatement)
	if !ok {
		t.Fatalf("alternative is %T, want *ast.IfStatement", stmt.Alternative)
	}
	if _, ok := chained.Alternative.(*ast.BlockStatement); !ok {
		t.Errorf("final else is %T, want *ast.BlockStatement", chained.Alternative)
	}
}
