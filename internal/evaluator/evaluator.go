package evaluator

import (
	"math"

	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/token"
)

// Evaluator walks the syntax tree directly. The VM routes calls to
// AST-backed functions through here; CompiledCallHandler is the reverse
// hook, installed by the VM backend so interpreted code can call function
// values that exist only as bytecode.
type Evaluator struct {
	Builtins *Builtins

	CompiledCallHandler func(fn Object, args []Object) Object
}

func New(builtins *Builtins) *Evaluator {
	e := &Evaluator{Builtins: builtins}
	builtins.Apply = e.ApplyFunction
	return e
}

func (e *Evaluator) Eval(node ast.Node, env *Environment) Object {
	switch node := node.(type) {
	case *ast.Program:
		return e.evalProgram(node, env)

	case *ast.ExpressionStatement:
		return e.Eval(node.Expression, env)

	case *ast.VarStatement:
		value := e.Eval(node.Value, env)
		if isError(value) {
			return value
		}
		if fn, ok := value.(*Function); ok && fn.Name == "" {
			fn.Name = node.Name.Value
		}
		env.Define(node.Name.Value, value, node.Mutable)
		return NULL

	case *ast.FunctionStatement:
		fn := &Function{
			Name:       node.Name.Value,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        env,
		}
		env.Define(node.Name.Value, fn, true)
		return NULL

	case *ast.BlockStatement:
		return e.evalBlock(node, env)

	case *ast.ReturnStatement:
		if node.Value == nil {
			return &ReturnValue{Value: NULL}
		}
		value := e.Eval(node.Value, env)
		if isError(value) {
			return value
		}
		return &ReturnValue{Value: value}

	case *ast.BreakStatement:
		return &BreakSignal{}

	case *ast.IfStatement:
		return e.evalIfStatement(node, env)

	case *ast.WhileStatement:
		return e.evalWhileStatement(node, env)

	case *ast.ForStatement:
		return e.evalForStatement(node, env)

	case *ast.LoopStatement:
		return e.evalLoopStatement(node, env)

	case *ast.TryStatement:
		return e.evalTryStatement(node, env)

	case *ast.ThrowStatement:
		value := e.Eval(node.Value, env)
		if isError(value) {
			return value
		}
		err := newError(diagnostics.ErrR006, diagnostics.KindThrown,
			node.Token.Line, node.Token.Column, "%s", ToString(value))
		err.Payload = value
		return err

	case *ast.IntegerLiteral:
		return &Integer{Value: node.Value}
	case *ast.FloatLiteral:
		return &Float{Value: node.Value}
	case *ast.StringLiteral:
		return &String{Value: node.Value}
	case *ast.BooleanLiteral:
		return NativeBoolToBooleanObject(node.Value)
	case *ast.NullLiteral:
		return NULL

	case *ast.Identifier:
		return e.evalIdentifier(node, env)

	case *ast.PrefixExpression:
		right := e.Eval(node.Right, env)
		if isError(right) {
			return right
		}
		return e.evalPrefix(node, right)

	case *ast.InfixExpression:
		return e.evalInfixNode(node, env)

	case *ast.AssignExpression:
		return e.evalAssign(node, env)

	case *ast.CallExpression:
		fn := e.Eval(node.Function, env)
		if isError(fn) {
			return fn
		}
		args, errObj := e.evalExpressions(node.Arguments, env)
		if errObj != nil {
			return errObj
		}
		return e.applyAt(fn, args, node.Token)

	case *ast.MethodCallExpression:
		return e.evalMethodCall(node, env)

	case *ast.MemberExpression:
		left := e.Eval(node.Left, env)
		if isError(left) {
			return left
		}
		return e.Member(left, node.Member.Value, node.Token)

	case *ast.IndexExpression:
		left := e.Eval(node.Left, env)
		if isError(left) {
			return left
		}
		index := e.Eval(node.Index, env)
		if isError(index) {
			return index
		}
		return IndexValue(left, index, node.Token)

	case *ast.FunctionLiteral:
		return &Function{
			Name:       node.Name,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        env,
		}

	case *ast.ListLiteral:
		elements, errObj := e.evalExpressions(node.Elements, env)
		if errObj != nil {
			return errObj
		}
		return &List{Elements: elements}

	case *ast.TupleLiteral:
		elements, errObj := e.evalExpressions(node.Elements, env)
		if errObj != nil {
			return errObj
		}
		return &Tuple{Elements: elements}

	case *ast.SetLiteral:
		elements, errObj := e.evalExpressions(node.Elements, env)
		if errObj != nil {
			return errObj
		}
		set := NewSet()
		for _, el := range elements {
			if !set.Add(el) {
				return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
					node.Token, "unhashable set member of type %s", TypeName(el))
			}
		}
		return set

	case *ast.DictLiteral:
		dict := NewDict()
		for _, pair := range node.Pairs {
			key := e.Eval(pair.Key, env)
			if isError(key) {
				return key
			}
			value := e.Eval(pair.Value, env)
			if isError(value) {
				return value
			}
			if !dict.Set(key, value) {
				return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
					node.Token, "unhashable dict key of type %s", TypeName(key))
			}
		}
		return dict

	case *ast.MatchExpression:
		return e.evalMatch(node, env)

	default:
		return newErrorAt(diagnostics.ErrR007, diagnostics.KindRuntime,
			node.GetToken(), "cannot evaluate node %T", node)
	}
}

func (e *Evaluator) evalProgram(program *ast.Program, env *Environment) Object {
	var result Object = NULL
	for _, stmt := range program.Statements {
		result = e.Eval(stmt, env)
		switch r := result.(type) {
		case *ReturnValue:
			return r.Value
		case *Error:
			return r
		case *BreakSignal:
			return newErrorAt(diagnostics.ErrR007, diagnostics.KindRuntime,
				stmt.GetToken(), "break outside loop")
		}
	}
	return result
}

// evalBlock runs statements in the given scope and stops on any signal.
func (e *Evaluator) evalBlock(block *ast.BlockStatement, env *Environment) Object {
	var result Object = NULL
	for _, stmt := range block.Statements {
		result = e.Eval(stmt, env)
		switch result.(type) {
		case *ReturnValue, *Error, *BreakSignal:
			return result
		}
	}
	return result
}

func (e *Evaluator) evalIdentifier(node *ast.Identifier, env *Environment) Object {
	if value, ok := env.Get(node.Value); ok {
		return value
	}
	if builtin, ok := e.Builtins.Lookup(node.Value); ok {
		return builtin
	}
	if node.Value == "console" {
		return e.Builtins.Console
	}
	return newErrorAt(diagnostics.ErrR001, diagnostics.KindUndefinedVar,
		node.Token, "undefined variable %q", node.Value)
}

func (e *Evaluator) evalPrefix(node *ast.PrefixExpression, right Object) Object {
	switch node.Operator {
	case "!":
		return NativeBoolToBooleanObject(!IsTruthy(right))
	case "-":
		switch value := right.(type) {
		case *Integer:
			return &Integer{Value: -value.Value}
		case *Float:
			return &Float{Value: -value.Value}
		default:
			return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
				node.Token, "cannot negate %s", TypeName(right))
		}
	default:
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			node.Token, "unknown prefix operator %q", node.Operator)
	}
}

func (e *Evaluator) evalInfixNode(node *ast.InfixExpression, env *Environment) Object {
	// && and || short-circuit and yield one of their operands.
	if node.Operator == "&&" || node.Operator == "||" {
		left := e.Eval(node.Left, env)
		if isError(left) {
			return left
		}
		if node.Operator == "&&" {
			if !IsTruthy(left) {
				return left
			}
		} else if IsTruthy(left) {
			return left
		}
		return e.Eval(node.Right, env)
	}

	left := e.Eval(node.Left, env)
	if isError(left) {
		return left
	}
	right := e.Eval(node.Right, env)
	if isError(right) {
		return right
	}
	return EvalInfix(node.Operator, left, right, node.Token)
}

// EvalInfix applies a binary operator. The VM shares this routine so both
// engines coerce identically.
func EvalInfix(operator string, left, right Object, tok token.Token) Object {
	switch operator {
	case "==":
		return NativeBoolToBooleanObject(Equals(left, right))
	case "!=":
		return NativeBoolToBooleanObject(!Equals(left, right))
	}

	// A string on either side of + coerces the other operand.
	if operator == "+" {
		if left.Type() == STRING_OBJ || right.Type() == STRING_OBJ {
			return &String{Value: ToString(left) + ToString(right)}
		}
		if l, ok := left.(*List); ok {
			if r, ok := right.(*List); ok {
				merged := make([]Object, 0, len(l.Elements)+len(r.Elements))
				merged = append(merged, l.Elements...)
				merged = append(merged, r.Elements...)
				return &List{Elements: merged}
			}
		}
	}

	if isNumeric(left) && isNumeric(right) {
		return evalNumericInfix(operator, left, right, tok)
	}

	if left.Type() == STRING_OBJ && right.Type() == STRING_OBJ {
		l := left.(*String).Value
		r := right.(*String).Value
		switch operator {
		case "<":
			return NativeBoolToBooleanObject(l < r)
		case "<=":
			return NativeBoolToBooleanObject(l <= r)
		case ">":
			return NativeBoolToBooleanObject(l > r)
		case ">=":
			return NativeBoolToBooleanObject(l >= r)
		}
	}

	return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch, tok,
		"operator %q not defined on %s and %s", operator, TypeName(left), TypeName(right))
}

func isNumeric(obj Object) bool {
	return obj.Type() == INTEGER_OBJ || obj.Type() == FLOAT_OBJ
}

func evalNumericInfix(operator string, left, right Object, tok token.Token) Object {
	li, lInt := left.(*Integer)
	ri, rInt := right.(*Integer)

	if lInt && rInt {
		switch operator {
		case "+":
			return &Integer{Value: li.Value + ri.Value}
		case "-":
			return &Integer{Value: li.Value - ri.Value}
		case "*":
			return &Integer{Value: li.Value * ri.Value}
		case "/":
			if ri.Value == 0 {
				return newErrorAt(diagnostics.ErrR004, diagnostics.KindDivisionByZero,
					tok, "division by zero")
			}
			return &Integer{Value: li.Value / ri.Value}
		case "%":
			if ri.Value == 0 {
				return newErrorAt(diagnostics.ErrR004, diagnostics.KindDivisionByZero,
					tok, "modulo by zero")
			}
			return &Integer{Value: li.Value % ri.Value}
		case "<":
			return NativeBoolToBooleanObject(li.Value < ri.Value)
		case "<=":
			return NativeBoolToBooleanObject(li.Value <= ri.Value)
		case ">":
			return NativeBoolToBooleanObject(li.Value > ri.Value)
		case ">=":
			return NativeBoolToBooleanObject(li.Value >= ri.Value)
		}
	}

	l := toFloat(left)
	r := toFloat(right)
	switch operator {
	case "+":
		return &Float{Value: l + r}
	case "-":
		return &Float{Value: l - r}
	case "*":
		return &Float{Value: l * r}
	case "/":
		if r == 0 {
			return newErrorAt(diagnostics.ErrR004, diagnostics.KindDivisionByZero,
				tok, "division by zero")
		}
		return &Float{Value: l / r}
	case "%":
		if r == 0 {
			return newErrorAt(diagnostics.ErrR004, diagnostics.KindDivisionByZero,
				tok, "modulo by zero")
		}
		return &Float{Value: math.Mod(l, r)}
	case "<":
		return NativeBoolToBooleanObject(l < r)
	case "<=":
		return NativeBoolToBooleanObject(l <= r)
	case ">":
		return NativeBoolToBooleanObject(l > r)
	case ">=":
		return NativeBoolToBooleanObject(l >= r)
	}

	return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch, tok,
		"operator %q not defined on numbers", operator)
}

func toFloat(obj Object) float64 {
	switch o := obj.(type) {
	case *Integer:
		return float64(o.Value)
	case *Float:
		return o.Value
	}
	return 0
}

func (e *Evaluator) evalAssign(node *ast.AssignExpression, env *Environment) Object {
	value := e.Eval(node.Value, env)
	if isError(value) {
		return value
	}

	switch target := node.Target.(type) {
	case *ast.Identifier:
		switch env.Assign(target.Value, value) {
		case AssignOK:
			return value
		case AssignImmutable:
			return newErrorAt(diagnostics.ErrR002, diagnostics.KindConstReassign,
				target.Token, "cannot reassign constant %q", target.Value)
		default:
			return newErrorAt(diagnostics.ErrR001, diagnostics.KindUndefinedVar,
				target.Token, "undefined variable %q", target.Value)
		}

	case *ast.IndexExpression:
		container := e.Eval(target.Left, env)
		if isError(container) {
			return container
		}
		index := e.Eval(target.Index, env)
		if isError(index) {
			return index
		}
		return SetIndexValue(container, index, value, target.Token)

	case *ast.MemberExpression:
		container := e.Eval(target.Left, env)
		if isError(container) {
			return container
		}
		dict, ok := container.(*Dict)
		if !ok {
			return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
				target.Token, "cannot set member on %s", TypeName(container))
		}
		dict.Set(&String{Value: target.Member.Value}, value)
		return value

	default:
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			node.Token, "invalid assignment target")
	}
}

// SetIndexValue stores value at container[index]. Shared with the VM.
func SetIndexValue(container, index, value Object, tok token.Token) Object {
	switch c := container.(type) {
	case *List:
		i, errObj := normalizeIndex(index, len(c.Elements), tok)
		if errObj != nil {
			return errObj
		}
		c.Elements[i] = value
		return value
	case *Array:
		i, errObj := normalizeIndex(index, len(c.Elements), tok)
		if errObj != nil {
			return errObj
		}
		c.Elements[i] = value
		return value
	case *Dict:
		if !c.Set(index, value) {
			return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
				tok, "unhashable dict key of type %s", TypeName(index))
		}
		return value
	case *Tuple:
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			tok, "tuples are immutable")
	default:
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			tok, "cannot index-assign %s", TypeName(container))
	}
}

// normalizeIndex resolves negative indexes Python-style and bounds-checks.
func normalizeIndex(index Object, length int, tok token.Token) (int, Object) {
	n, ok := index.(*Integer)
	if !ok {
		return 0, newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			tok, "index must be an integer, got %s", TypeName(index))
	}
	i := int(n.Value)
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, newErrorAt(diagnostics.ErrR007, diagnostics.KindRuntime,
			tok, "index %d out of range (length %d)", n.Value, length)
	}
	return i, nil
}

// IndexValue reads container[index]. Shared with the VM.
func IndexValue(left, index Object, tok token.Token) Object {
	switch c := left.(type) {
	case *List:
		i, errObj := normalizeIndex(index, len(c.Elements), tok)
		if errObj != nil {
			return errObj
		}
		return c.Elements[i]
	case *Tuple:
		i, errObj := normalizeIndex(index, len(c.Elements), tok)
		if errObj != nil {
			return errObj
		}
		return c.Elements[i]
	case *Array:
		i, errObj := normalizeIndex(index, len(c.Elements), tok)
		if errObj != nil {
			return errObj
		}
		return c.Elements[i]
	case *String:
		runes := []rune(c.Value)
		i, errObj := normalizeIndex(index, len(runes), tok)
		if errObj != nil {
			return errObj
		}
		return &String{Value: string(runes[i])}
	case *Dict:
		value, found := c.Get(index)
		if !found {
			return NULL
		}
		return value
	default:
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			tok, "cannot index %s", TypeName(left))
	}
}

// Member resolves obj.name for both engines. Unknown dict keys yield null;
// unknown members on other types are a type error.
func (e *Evaluator) Member(obj Object, name string, tok token.Token) Object {
	switch o := obj.(type) {
	case *Dict:
		value, found := o.Get(&String{Value: name})
		if !found {
			return NULL
		}
		return value
	case *Promise:
		switch name {
		case "then":
			return e.Builtins.PromiseThen(o)
		case "catch":
			return e.Builtins.PromiseCatch(o)
		case "value":
			return o.Value
		}
	case *Builtin:
		if o.Name == "Promise" {
			switch name {
			case "resolve":
				return e.Builtins.PromiseResolve()
			case "reject":
				return e.Builtins.PromiseReject()
			}
		}
	}
	return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
		tok, "%s has no member %q", TypeName(obj), name)
}

// evalMethodCall implements obj::m(args): m is looked up on obj first, then
// in scope, and obj is passed as the first argument.
func (e *Evaluator) evalMethodCall(node *ast.MethodCallExpression, env *Environment) Object {
	receiver := e.Eval(node.Receiver, env)
	if isError(receiver) {
		return receiver
	}

	var fn Object
	if dict, ok := receiver.(*Dict); ok {
		if member, found := dict.Get(&String{Value: node.Method.Value}); found {
			fn = member
		}
	}
	if fn == nil {
		if value, ok := env.Get(node.Method.Value); ok {
			fn = value
		} else if builtin, ok := e.Builtins.Lookup(node.Method.Value); ok {
			fn = builtin
		}
	}
	if fn == nil {
		return newErrorAt(diagnostics.ErrR001, diagnostics.KindUndefinedVar,
			node.Method.Token, "undefined method %q", node.Method.Value)
	}

	args := make([]Object, 0, len(node.Arguments)+1)
	args = append(args, receiver)
	rest, errObj := e.evalExpressions(node.Arguments, env)
	if errObj != nil {
		return errObj
	}
	args = append(args, rest...)
	return e.applyAt(fn, args, node.Token)
}

func (e *Evaluator) evalExpressions(exprs []ast.Expression, env *Environment) ([]Object, Object) {
	result := make([]Object, 0, len(exprs))
	for _, expr := range exprs {
		value := e.Eval(expr, env)
		if isError(value) {
			return nil, value
		}
		result = append(result, value)
	}
	return result, nil
}

// ApplyFunction is the single call dispatch point shared with the builtin
// table. Unknown function kinds route through CompiledCallHandler.
func (e *Evaluator) ApplyFunction(fn Object, args []Object) Object {
	return e.applyAt(fn, args, token.Token{})
}

func (e *Evaluator) applyAt(fn Object, args []Object, tok token.Token) Object {
	switch fn := fn.(type) {
	case *Function:
		if len(args) != len(fn.Parameters) {
			return newErrorAt(diagnostics.ErrR007, diagnostics.KindRuntime, tok,
				"%s expects %d argument(s), got %d", fn.Inspect(), len(fn.Parameters), len(args))
		}
		callEnv := NewEnclosedEnvironment(fn.Env)
		for i, param := range fn.Parameters {
			callEnv.Define(param.Value, args[i], true)
		}
		result := e.evalBlock(fn.Body, callEnv)
		switch r := result.(type) {
		case *ReturnValue:
			return r.Value
		case *Error:
			return r
		case *BreakSignal:
			return newErrorAt(diagnostics.ErrR007, diagnostics.KindRuntime, tok,
				"break outside loop")
		}
		return NULL

	case *Builtin:
		result := fn.Fn(args...)
		if err, ok := result.(*Error); ok && err.Diag.Line == 0 {
			err.Diag.Line = tok.Line
			err.Diag.Column = tok.Column
		}
		return result

	default:
		if e.CompiledCallHandler != nil {
			return e.CompiledCallHandler(fn, args)
		}
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch, tok,
			"%s is not callable", TypeName(fn))
	}
}

func (e *Evaluator) evalIfStatement(node *ast.IfStatement, env *Environment) Object {
	condition := e.Eval(node.Condition, env)
	if isError(condition) {
		return condition
	}
	if IsTruthy(condition) {
		return e.evalBlock(node.Consequence, NewEnclosedEnvironment(env))
	}
	if node.Alternative != nil {
		if block, ok := node.Alternative.(*ast.BlockStatement); ok {
			return e.evalBlock(block, NewEnclosedEnvironment(env))
		}
		return e.Eval(node.Alternative, env)
	}
	return NULL
}

func (e *Evaluator) evalWhileStatement(node *ast.WhileStatement, env *Environment) Object {
	for {
		condition := e.Eval(node.Condition, env)
		if isError(condition) {
			return condition
		}
		if !IsTruthy(condition) {
			return NULL
		}
		result := e.evalBlock(node.Body, NewEnclosedEnvironment(env))
		switch result.(type) {
		case *BreakSignal:
			return NULL
		case *ReturnValue, *Error:
			return result
		}
	}
}

func (e *Evaluator) evalLoopStatement(node *ast.LoopStatement, env *Environment) Object {
	for {
		result := e.evalBlock(node.Body, NewEnclosedEnvironment(env))
		switch result.(type) {
		case *BreakSignal:
			return NULL
		case *ReturnValue, *Error:
			return result
		}
	}
}

// evalForStatement runs the counted loop. The end bound is inclusive and
// the loop variable is freshly bound each iteration.
func (e *Evaluator) evalForStatement(node *ast.ForStatement, env *Environment) Object {
	start := e.Eval(node.Start, env)
	if isError(start) {
		return start
	}
	end := e.Eval(node.End, env)
	if isError(end) {
		return end
	}
	var step Object = &Integer{Value: 1}
	if node.Step != nil {
		step = e.Eval(node.Step, env)
		if isError(step) {
			return step
		}
	}

	if !isNumeric(start) || !isNumeric(end) || !isNumeric(step) {
		return newErrorAt(diagnostics.ErrR003, diagnostics.KindTypeMismatch,
			node.Token, "for loop bounds must be numeric")
	}
	if toFloat(step) == 0 {
		return newErrorAt(diagnostics.ErrR007, diagnostics.KindRuntime,
			node.Token, "for loop step must not be zero")
	}

	useInt := start.Type() == INTEGER_OBJ && end.Type() == INTEGER_OBJ && step.Type() == INTEGER_OBJ
	if useInt {
		s := start.(*Integer).Value
		stop := end.(*Integer).Value
		by := step.(*Integer).Value
		for i := s; (by > 0 && i <= stop) || (by < 0 && i >= stop); i += by {
			iterEnv := NewEnclosedEnvironment(env)
			iterEnv.Define(node.Name.Value, &Integer{Value: i}, true)
			result := e.evalBlock(node.Body, iterEnv)
			switch result.(type) {
			case *BreakSignal:
				return NULL
			case *ReturnValue, *Error:
				return result
			}
		}
		return NULL
	}

	s := toFloat(start)
	stop := toFloat(end)
	by := toFloat(step)
	for i := s; (by > 0 && i <= stop) || (by < 0 && i >= stop); i += by {
		iterEnv := NewEnclosedEnvironment(env)
		iterEnv.Define(node.Name.Value, &Float{Value: i}, true)
		result := e.evalBlock(node.Body, iterEnv)
		switch result.(type) {
		case *BreakSignal:
			return NULL
		case *ReturnValue, *Error:
			return result
		}
	}
	return NULL
}

func (e *Evaluator) evalTryStatement(node *ast.TryStatement, env *Environment) Object {
	result := e.evalBlock(node.Body, NewEnclosedEnvironment(env))
	err, ok := result.(*Error)
	if !ok {
		return result
	}
	if err.Diag.Kind == diagnostics.KindLex || err.Diag.Kind == diagnostics.KindParse {
		return err
	}

	catchEnv := NewEnclosedEnvironment(env)
	catchEnv.Define(node.CatchVar.Value, err.CatchValue(), true)
	return e.evalBlock(node.CatchBody, catchEnv)
}

// evalMatch selects the first arm whose pattern matches and whose guard is
// truthy. Arm bindings live in a scope private to that arm.
func (e *Evaluator) evalMatch(node *ast.MatchExpression, env *Environment) Object {
	subject := e.Eval(node.Subject, env)
	if isError(subject) {
		return subject
	}

	for _, arm := range node.Arms {
		armEnv := NewEnclosedEnvironment(env)
		if !MatchPattern(arm.Pattern, subject, armEnv) {
			continue
		}
		if arm.Guard != nil {
			guard := e.Eval(arm.Guard, armEnv)
			if isError(guard) {
				return guard
			}
			if !IsTruthy(guard) {
				continue
			}
		}
		return e.Eval(arm.Result, armEnv)
	}

	return newErrorAt(diagnostics.ErrR005, diagnostics.KindMatch,
		node.Token, "no match arm matched %s", ToString(subject))
}

func isError(obj Object) bool {
	if obj == nil {
		return false
	}
	return obj.Type() == ERROR_OBJ
}

func newErrorAt(code diagnostics.ErrorCode, kind diagnostics.Kind, tok token.Token, format string, args ...interface{}) *Error {
	return newError(code, kind, tok.Line, tok.Column, format, args...)
}
