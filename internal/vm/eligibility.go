package vm

import (
	"github.com/falcon-lang/falcon/internal/ast"
)

// walk visits node and its children in source order. visit returning false
// prunes the subtree.
func walk(node ast.Node, visit func(ast.Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	switch n := node.(type) {
	case *ast.Program:
		for _, s := range n.Statements {
			walk(s, visit)
		}
	case *ast.VarStatement:
		walk(n.Value, visit)
	case *ast.FunctionStatement:
		walk(n.Body, visit)
	case *ast.ReturnStatement:
		walk(n.Value, visit)
	case *ast.ExpressionStatement:
		walk(n.Expression, visit)
	case *ast.BlockStatement:
		for _, s := range n.Statements {
			walk(s, visit)
		}
	case *ast.IfStatement:
		walk(n.Condition, visit)
		walk(n.Consequence, visit)
		walk(n.Alternative, visit)
	case *ast.WhileStatement:
		walk(n.Condition, visit)
		walk(n.Body, visit)
	case *ast.ForStatement:
		walk(n.Start, visit)
		walk(n.End, visit)
		walk(n.Step, visit)
		walk(n.Body, visit)
	case *ast.LoopStatement:
		walk(n.Body, visit)
	case *ast.TryStatement:
		walk(n.Body, visit)
		walk(n.CatchBody, visit)
	case *ast.ThrowStatement:
		walk(n.Value, visit)
	case *ast.PrefixExpression:
		walk(n.Right, visit)
	case *ast.InfixExpression:
		walk(n.Left, visit)
		walk(n.Right, visit)
	case *ast.AssignExpression:
		walk(n.Target, visit)
		walk(n.Value, visit)
	case *ast.CallExpression:
		walk(n.Function, visit)
		for _, a := range n.Arguments {
			walk(a, visit)
		}
	case *ast.MethodCallExpression:
		walk(n.Receiver, visit)
		for _, a := range n.Arguments {
			walk(a, visit)
		}
	case *ast.MemberExpression:
		walk(n.Left, visit)
	case *ast.IndexExpression:
		walk(n.Left, visit)
		walk(n.Index, visit)
	case *ast.FunctionLiteral:
		walk(n.Body, visit)
	case *ast.ListLiteral:
		for _, el := range n.Elements {
			walk(el, visit)
		}
	case *ast.TupleLiteral:
		for _, el := range n.Elements {
			walk(el, visit)
		}
	case *ast.SetLiteral:
		for _, el := range n.Elements {
			walk(el, visit)
		}
	case *ast.DictLiteral:
		for _, pair := range n.Pairs {
			walk(pair.Key, visit)
			walk(pair.Value, visit)
		}
	case *ast.MatchExpression:
		walk(n.Subject, visit)
		for _, arm := range n.Arms {
			walk(arm.Guard, visit)
			walk(arm.Result, visit)
		}
	}
}

// statementNeedsInterp reports whether a top-level statement must run as
// an interpreter island. That is the case when it holds a match or
// try/catch at statement level, or a function whose free variables reach
// beyond the globals; such a function needs a real captured environment,
// which bytecode locals cannot provide.
func statementNeedsInterp(stmt ast.Statement, isGlobal func(string) bool) bool {
	found := false
	walk(stmt, func(node ast.Node) bool {
		if found {
			return false
		}
		switch n := node.(type) {
		case *ast.MatchExpression, *ast.TryStatement:
			found = true
			return false
		case *ast.FunctionLiteral:
			if functionCapturesLocals(n.Parameters, n.Body, isGlobal) {
				found = true
			}
			return false
		case *ast.FunctionStatement:
			if node != ast.Node(stmt) {
				if functionCapturesLocals(n.Parameters, n.Body, isGlobal) {
					found = true
				}
				return false
			}
		}
		return true
	})
	return found
}

// functionCapturesLocals reports whether a function has free variables
// that are neither globals nor builtins. Nested function bodies count;
// their free names are over-approximated against the combined declared
// set of all enclosing levels.
func functionCapturesLocals(params []*ast.Identifier, body *ast.BlockStatement, isGlobal func(string) bool) bool {
	declared := map[string]bool{}
	for _, p := range params {
		declared[p.Value] = true
	}
	walk(body, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.VarStatement:
			declared[n.Name.Value] = true
		case *ast.FunctionStatement:
			declared[n.Name.Value] = true
			for _, p := range n.Parameters {
				declared[p.Value] = true
			}
		case *ast.FunctionLiteral:
			for _, p := range n.Parameters {
				declared[p.Value] = true
			}
		case *ast.ForStatement:
			declared[n.Name.Value] = true
		case *ast.MatchExpression:
			for _, arm := range n.Arms {
				collectPatternNames(arm.Pattern, declared)
			}
		case *ast.TryStatement:
			if n.CatchVar != nil {
				declared[n.CatchVar.Value] = true
			}
		}
		return true
	})

	captures := false
	walk(body, func(node ast.Node) bool {
		if captures {
			return false
		}
		if ident, isIdent := node.(*ast.Identifier); isIdent {
			if !declared[ident.Value] && !isGlobal(ident.Value) {
				captures = true
				return false
			}
		}
		return true
	})
	return captures
}

func collectPatternNames(pattern ast.Pattern, names map[string]bool) {
	switch p := pattern.(type) {
	case *ast.IdentifierPattern:
		names[p.Name] = true
	case *ast.DictPattern:
		for _, f := range p.Fields {
			collectPatternNames(f.Pattern, names)
		}
	case *ast.ListPattern:
		for _, el := range p.Elements {
			collectPatternNames(el, names)
		}
	}
}

// functionEligible decides whether a function lowers to bytecode. A
// function qualifies only when it has no free variables beyond the known
// globals and builtins, contains no match or try/catch, and declares no
// nested function. Everything else runs on the interpreter with its
// captured environment.
func functionEligible(params []*ast.Identifier, body *ast.BlockStatement, isGlobal func(string) bool) bool {
	declared := map[string]bool{}
	for _, p := range params {
		declared[p.Value] = true
	}

	// First pass: reject deferred constructs and collect every name the
	// body declares at any block depth. Declarations are scoped more
	// tightly than this flat set, so the check over-approximates bound
	// names; a use-before-declare still fails at run time, identically in
	// both engines.
	ok := true
	walk(body, func(node ast.Node) bool {
		if !ok {
			return false
		}
		switch n := node.(type) {
		case *ast.MatchExpression, *ast.TryStatement, *ast.FunctionLiteral, *ast.FunctionStatement:
			ok = false
			return false
		case *ast.VarStatement:
			declared[n.Name.Value] = true
		case *ast.ForStatement:
			declared[n.Name.Value] = true
		}
		return true
	})
	if !ok {
		return false
	}

	// Second pass: every identifier use must resolve to a parameter, a
	// body-declared name, a global or a builtin.
	walk(body, func(node ast.Node) bool {
		if !ok {
			return false
		}
		if ident, isIdent := node.(*ast.Identifier); isIdent {
			if !declared[ident.Value] && !isGlobal(ident.Value) {
				ok = false
				return false
			}
		}
		return true
	})
	return ok
}
