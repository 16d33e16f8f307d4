package evaluator

import (
	"github.com/falcon-lang/falcon/internal/ast"
)

// LiteralObject converts a literal pattern node into its runtime value.
func LiteralObject(expr ast.Expression) Object {
	switch lit := expr.(type) {
	case *ast.IntegerLiteral:
		return &Integer{Value: lit.Value}
	case *ast.FloatLiteral:
		return &Float{Value: lit.Value}
	case *ast.StringLiteral:
		return &String{Value: lit.Value}
	case *ast.BooleanLiteral:
		return NativeBoolToBooleanObject(lit.Value)
	case *ast.NullLiteral:
		return NULL
	default:
		return nil
	}
}

// MatchPattern reports whether pattern matches subject, installing arm
// bindings into env as it goes. Bindings from a failed partial match may
// remain in env; callers use a throwaway scope per arm.
func MatchPattern(pattern ast.Pattern, subject Object, env *Environment) bool {
	switch pat := pattern.(type) {
	case *ast.WildcardPattern:
		return true

	case *ast.IdentifierPattern:
		env.Define(pat.Name, subject, true)
		return true

	case *ast.LiteralPattern:
		want := LiteralObject(pat.Value)
		if want == nil {
			return false
		}
		return Equals(subject, want)

	case *ast.DictPattern:
		dict, ok := subject.(*Dict)
		if !ok {
			return false
		}
		for _, field := range pat.Fields {
			value, found := dict.Get(&String{Value: field.Key})
			if !found {
				return false
			}
			if !MatchPattern(field.Pattern, value, env) {
				return false
			}
		}
		return true

	case *ast.ListPattern:
		var elements []Object
		switch subj := subject.(type) {
		case *List:
			elements = subj.Elements
		case *Tuple:
			elements = subj.Elements
		case *Array:
			elements = subj.Elements
		default:
			return false
		}
		if len(elements) != len(pat.Elements) {
			return false
		}
		for i, sub := range pat.Elements {
			if !MatchPattern(sub, elements[i], env) {
				return false
			}
		}
		return true

	default:
		return false
	}
}
