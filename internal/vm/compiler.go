package vm

import (
	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/diagnostics"
	"github.com/falcon-lang/falcon/internal/evaluator"
	"github.com/falcon-lang/falcon/internal/token"
)

const (
	maxConstants = 65535
	maxLocals    = 65535
	maxJump      = 65535
	maxCallArgs  = 255
)

// local is a stack slot inside the current function frame. Slot index
// equals position in the locals list.
type local struct {
	name    string
	depth   int
	mutable bool
}

// loopScope tracks one active loop so break statements can unwind block
// locals and jump past the loop end.
type loopScope struct {
	breakJumps []int
	depth      int
}

// Compiler lowers a program to a chunk for one function frame. The main
// script compiles into a zero-arity function named "main"; top-level
// declarations become named globals, block-scoped declarations become
// stack slots.
type Compiler struct {
	chunk      *Chunk
	file       string
	globals    map[string]bool
	builtins   *evaluator.Builtins
	locals     []local
	scopeDepth int
	localPeak  int
	loops      []*loopScope
	err        *diagnostics.DiagnosticError
}

// Compile lowers program to a main function. Statements the compiler
// cannot lower stay as AST constants behind OP_EVAL_STMT; functions it
// cannot lower stay as templates behind OP_MAKE_FUNCTION. The result is
// unoptimized; run Optimize on it before execution or caching.
func Compile(program *ast.Program, builtins *evaluator.Builtins) (*CompiledFunction, *diagnostics.DiagnosticError) {
	c := &Compiler{
		chunk:    NewChunk(program.File),
		file:     program.File,
		globals:  scanGlobals(program),
		builtins: builtins,
	}

	endTok := token.Token{}
	for _, stmt := range program.Statements {
		c.compileTopLevel(stmt)
		if c.err != nil {
			return nil, c.err
		}
		endTok = stmt.GetToken()
	}
	c.emit(OP_NULL, endTok)
	c.emit(OP_RETURN, endTok)

	return &CompiledFunction{
		Name:       "main",
		Arity:      0,
		LocalCount: c.localPeak,
		Chunk:      c.chunk,
	}, nil
}

// scanGlobals collects every name the top level declares, so functions
// defined before their dependencies still compile (mutual recursion).
func scanGlobals(program *ast.Program) map[string]bool {
	globals := map[string]bool{}
	for _, stmt := range program.Statements {
		switch s := stmt.(type) {
		case *ast.VarStatement:
			globals[s.Name.Value] = true
		case *ast.FunctionStatement:
			globals[s.Name.Value] = true
		}
	}
	return globals
}

func (c *Compiler) isGlobalName(name string) bool {
	if c.globals[name] || name == "console" {
		return true
	}
	_, ok := c.builtins.Lookup(name)
	return ok
}

func (c *Compiler) compileTopLevel(stmt ast.Statement) {
	if fn, ok := stmt.(*ast.FunctionStatement); ok {
		c.compileStatement(fn)
		return
	}
	if statementNeedsInterp(stmt, c.isGlobalName) {
		c.emitIsland(stmt)
		return
	}
	c.compileStatement(stmt)
}

// emitIsland stores stmt as an AST constant executed by the interpreter
// against the global environment.
func (c *Compiler) emitIsland(stmt ast.Statement) {
	idx := c.addConstant(&AstStatement{Stmt: stmt}, stmt.GetToken())
	c.emit(OP_EVAL_STMT, stmt.GetToken())
	c.emitOperand16(idx, stmt.GetToken())
}

func (c *Compiler) compileStatement(stmt ast.Statement) {
	if c.err != nil {
		return
	}
	switch s := stmt.(type) {
	case *ast.VarStatement:
		c.compileVarStatement(s)

	case *ast.FunctionStatement:
		c.compileFunctionValue(s.Name.Value, s.Parameters, s.Body, s.Token)
		c.defineVariable(s.Name.Value, true, s.Token)

	case *ast.ReturnStatement:
		if s.Value != nil {
			c.compileExpression(s.Value)
		} else {
			c.emit(OP_NULL, s.Token)
		}
		c.emit(OP_RETURN, s.Token)

	case *ast.BreakStatement:
		c.compileBreak(s)

	case *ast.ExpressionStatement:
		c.compileExpression(s.Expression)
		c.emit(OP_POP, s.Token)

	case *ast.BlockStatement:
		c.compileBlock(s)

	case *ast.IfStatement:
		c.compileIfStatement(s)

	case *ast.WhileStatement:
		c.compileWhileStatement(s)

	case *ast.LoopStatement:
		c.compileLoopStatement(s)

	case *ast.ForStatement:
		c.compileForStatement(s)

	case *ast.ThrowStatement:
		c.compileExpression(s.Value)
		c.emit(OP_THROW, s.Token)

	default:
		// match and try reach the compiler only through islands
		c.errorAt(stmt.GetToken(), "cannot compile statement %T", stmt)
	}
}

func (c *Compiler) compileVarStatement(s *ast.VarStatement) {
	if fl, ok := s.Value.(*ast.FunctionLiteral); ok && fl.Name == "" {
		c.compileFunctionValue(s.Name.Value, fl.Parameters, fl.Body, fl.Token)
	} else {
		c.compileExpression(s.Value)
	}
	c.defineVariable(s.Name.Value, s.Mutable, s.Token)
}

// defineVariable consumes the value on top of the stack. At depth zero it
// becomes a named global; inside a block it stays on the stack as a slot.
func (c *Compiler) defineVariable(name string, mutable bool, tok token.Token) {
	if c.scopeDepth == 0 {
		idx := c.addConstant(&evaluator.String{Value: name}, tok)
		c.emit(OP_DEF_GLOBAL, tok)
		c.emitOperand16(idx, tok)
		flag := byte(0)
		if mutable {
			flag = 1
		}
		c.chunk.Write(flag, tok.Line, tok.Column)
		return
	}
	c.addLocal(name, mutable, tok)
}

func (c *Compiler) addLocal(name string, mutable bool, tok token.Token) {
	if len(c.locals) >= maxLocals {
		c.errorAt(tok, "too many locals in one function")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth, mutable: mutable})
	if len(c.locals) > c.localPeak {
		c.localPeak = len(c.locals)
	}
}

// resolveLocal finds the innermost slot bound to name, or -1.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return i
		}
	}
	return -1
}

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

func (c *Compiler) endScope(tok token.Token) {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.emit(OP_POP, tok)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// discardLocals emits pops for slots above depth without forgetting them;
// break uses it before jumping out of nested blocks.
func (c *Compiler) discardLocals(depth int, tok token.Token) {
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth > depth; i-- {
		c.emit(OP_POP, tok)
	}
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) {
	c.beginScope()
	for _, stmt := range block.Statements {
		c.compileStatement(stmt)
	}
	c.endScope(block.Token)
}

func (c *Compiler) compileIfStatement(s *ast.IfStatement) {
	c.compileExpression(s.Condition)
	elseJump := c.emitJump(OP_JUMP_IF_FALSE, s.Token)
	c.compileBlock(s.Consequence)

	if s.Alternative == nil {
		c.patchJump(elseJump, s.Token)
		return
	}
	endJump := c.emitJump(OP_JUMP, s.Token)
	c.patchJump(elseJump, s.Token)
	c.compileStatement(s.Alternative)
	c.patchJump(endJump, s.Token)
}

func (c *Compiler) compileWhileStatement(s *ast.WhileStatement) {
	loopStart := c.chunk.Len()
	c.compileExpression(s.Condition)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, s.Token)

	c.pushLoop()
	c.compileBlock(s.Body)
	c.emitLoop(loopStart, s.Token)
	c.patchJump(exitJump, s.Token)
	c.popLoop(s.Token)
}

func (c *Compiler) compileLoopStatement(s *ast.LoopStatement) {
	loopStart := c.chunk.Len()
	c.pushLoop()
	c.compileBlock(s.Body)
	c.emitLoop(loopStart, s.Token)
	c.popLoop(s.Token)
}

// compileForStatement keeps the counter, end and step in hidden slots.
// The visible loop variable is a per-iteration copy, so assigning it in
// the body does not steer the loop.
func (c *Compiler) compileForStatement(s *ast.ForStatement) {
	c.beginScope()

	c.compileExpression(s.Start)
	c.addLocal("(for)", false, s.Token)
	counterSlot := len(c.locals) - 1

	c.compileExpression(s.End)
	c.addLocal("(end)", false, s.Token)

	if s.Step != nil {
		c.compileExpression(s.Step)
	} else {
		idx := c.addConstant(&evaluator.Integer{Value: 1}, s.Token)
		c.emit(OP_CONST, s.Token)
		c.emitOperand16(idx, s.Token)
	}
	c.addLocal("(step)", false, s.Token)

	loopStart := c.chunk.Len()
	c.emit(OP_FOR_TEST, s.Token)
	c.emitOperand16(counterSlot, s.Token)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE, s.Token)

	c.pushLoop()

	c.beginScope()
	c.emit(OP_GET_LOCAL, s.Token)
	c.emitOperand16(counterSlot, s.Token)
	c.addLocal(s.Name.Value, true, s.Token)
	c.compileBlock(s.Body)
	c.endScope(s.Token)

	// counter += step
	c.emit(OP_GET_LOCAL, s.Token)
	c.emitOperand16(counterSlot, s.Token)
	c.emit(OP_GET_LOCAL, s.Token)
	c.emitOperand16(counterSlot+2, s.Token)
	c.emit(OP_ADD, s.Token)
	c.emit(OP_SET_LOCAL, s.Token)
	c.emitOperand16(counterSlot, s.Token)
	c.emit(OP_POP, s.Token)

	c.emitLoop(loopStart, s.Token)
	c.patchJump(exitJump, s.Token)
	c.popLoop(s.Token)

	c.endScope(s.Token)
}

func (c *Compiler) pushLoop() {
	c.loops = append(c.loops, &loopScope{depth: c.scopeDepth})
}

// popLoop lands every break jump on the current offset.
func (c *Compiler) popLoop(tok token.Token) {
	loop := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	for _, jump := range loop.breakJumps {
		c.patchJump(jump, tok)
	}
}

func (c *Compiler) compileBreak(s *ast.BreakStatement) {
	if len(c.loops) == 0 {
		// outside a loop this is a runtime error, same as the interpreter
		c.emitIsland(s)
		return
	}
	loop := c.loops[len(c.loops)-1]
	c.discardLocals(loop.depth, s.Token)
	loop.breakJumps = append(loop.breakJumps, c.emitJump(OP_JUMP, s.Token))
}

func (c *Compiler) compileExpression(expr ast.Expression) {
	if c.err != nil {
		return
	}
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		c.emitConstant(&evaluator.Integer{Value: e.Value}, e.Token)
	case *ast.FloatLiteral:
		c.emitConstant(&evaluator.Float{Value: e.Value}, e.Token)
	case *ast.StringLiteral:
		c.emitConstant(&evaluator.String{Value: e.Value}, e.Token)
	case *ast.BooleanLiteral:
		if e.Value {
			c.emit(OP_TRUE, e.Token)
		} else {
			c.emit(OP_FALSE, e.Token)
		}
	case *ast.NullLiteral:
		c.emit(OP_NULL, e.Token)

	case *ast.Identifier:
		if slot := c.resolveLocal(e.Value); slot >= 0 {
			c.emit(OP_GET_LOCAL, e.Token)
			c.emitOperand16(slot, e.Token)
			return
		}
		idx := c.addConstant(&evaluator.String{Value: e.Value}, e.Token)
		c.emit(OP_GET_GLOBAL, e.Token)
		c.emitOperand16(idx, e.Token)

	case *ast.PrefixExpression:
		c.compileExpression(e.Right)
		switch e.Operator {
		case "-":
			c.emit(OP_NEG, e.Token)
		case "!":
			c.emit(OP_NOT, e.Token)
		default:
			c.errorAt(e.Token, "unknown prefix operator %q", e.Operator)
		}

	case *ast.InfixExpression:
		c.compileInfix(e)

	case *ast.AssignExpression:
		c.compileAssign(e)

	case *ast.CallExpression:
		c.compileExpression(e.Function)
		if len(e.Arguments) > maxCallArgs {
			c.errorAt(e.Token, "too many call arguments")
			return
		}
		for _, arg := range e.Arguments {
			c.compileExpression(arg)
		}
		c.emit(OP_CALL, e.Token)
		c.chunk.Write(byte(len(e.Arguments)), e.Token.Line, e.Token.Column)

	case *ast.MethodCallExpression:
		c.compileExpression(e.Receiver)
		if len(e.Arguments) > maxCallArgs {
			c.errorAt(e.Token, "too many call arguments")
			return
		}
		for _, arg := range e.Arguments {
			c.compileExpression(arg)
		}
		idx := c.addConstant(&evaluator.String{Value: e.Method.Value}, e.Token)
		c.emit(OP_METHOD_CALL, e.Token)
		c.emitOperand16(idx, e.Token)
		c.chunk.Write(byte(len(e.Arguments)), e.Token.Line, e.Token.Column)

	case *ast.MemberExpression:
		c.compileExpression(e.Left)
		idx := c.addConstant(&evaluator.String{Value: e.Member.Value}, e.Token)
		c.emit(OP_GET_MEMBER, e.Token)
		c.emitOperand16(idx, e.Token)

	case *ast.IndexExpression:
		c.compileExpression(e.Left)
		c.compileExpression(e.Index)
		c.emit(OP_INDEX, e.Token)

	case *ast.FunctionLiteral:
		c.compileFunctionValue(e.Name, e.Parameters, e.Body, e.Token)

	case *ast.ListLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		c.emit(OP_MAKE_LIST, e.Token)
		c.emitOperand16(len(e.Elements), e.Token)

	case *ast.TupleLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		c.emit(OP_MAKE_TUPLE, e.Token)
		c.emitOperand16(len(e.Elements), e.Token)

	case *ast.SetLiteral:
		for _, el := range e.Elements {
			c.compileExpression(el)
		}
		c.emit(OP_MAKE_SET, e.Token)
		c.emitOperand16(len(e.Elements), e.Token)

	case *ast.DictLiteral:
		for _, pair := range e.Pairs {
			c.compileExpression(pair.Key)
			c.compileExpression(pair.Value)
		}
		c.emit(OP_MAKE_DICT, e.Token)
		c.emitOperand16(len(e.Pairs), e.Token)

	default:
		c.errorAt(expr.GetToken(), "cannot compile expression %T", expr)
	}
}

var infixOpcodes = map[string]Opcode{
	"+":  OP_ADD,
	"-":  OP_SUB,
	"*":  OP_MUL,
	"/":  OP_DIV,
	"%":  OP_MOD,
	"==": OP_EQ,
	"!=": OP_NE,
	"<":  OP_LT,
	"<=": OP_LE,
	">":  OP_GT,
	">=": OP_GE,
}

func (c *Compiler) compileInfix(e *ast.InfixExpression) {
	// && and || keep the deciding operand as the result value.
	switch e.Operator {
	case "&&":
		c.compileExpression(e.Left)
		endJump := c.emitJump(OP_JUMP_IF_FALSE_PEEK, e.Token)
		c.emit(OP_POP, e.Token)
		c.compileExpression(e.Right)
		c.patchJump(endJump, e.Token)
		return
	case "||":
		c.compileExpression(e.Left)
		endJump := c.emitJump(OP_JUMP_IF_TRUE_PEEK, e.Token)
		c.emit(OP_POP, e.Token)
		c.compileExpression(e.Right)
		c.patchJump(endJump, e.Token)
		return
	}

	op, ok := infixOpcodes[e.Operator]
	if !ok {
		c.errorAt(e.Token, "unknown operator %q", e.Operator)
		return
	}
	c.compileExpression(e.Left)
	c.compileExpression(e.Right)
	c.emit(op, e.Token)
}

func (c *Compiler) compileAssign(e *ast.AssignExpression) {
	switch target := e.Target.(type) {
	case *ast.Identifier:
		c.compileExpression(e.Value)
		if slot := c.resolveLocal(target.Value); slot >= 0 {
			if !c.locals[slot].mutable {
				idx := c.addConstant(&evaluator.String{Value: target.Value}, target.Token)
				c.emit(OP_CONST_VIOLATION, target.Token)
				c.emitOperand16(idx, target.Token)
				return
			}
			c.emit(OP_SET_LOCAL, target.Token)
			c.emitOperand16(slot, target.Token)
			return
		}
		idx := c.addConstant(&evaluator.String{Value: target.Value}, target.Token)
		c.emit(OP_SET_GLOBAL, target.Token)
		c.emitOperand16(idx, target.Token)

	case *ast.IndexExpression:
		c.compileExpression(target.Left)
		c.compileExpression(target.Index)
		c.compileExpression(e.Value)
		c.emit(OP_SET_INDEX, target.Token)

	case *ast.MemberExpression:
		c.compileExpression(target.Left)
		c.compileExpression(e.Value)
		idx := c.addConstant(&evaluator.String{Value: target.Member.Value}, target.Token)
		c.emit(OP_SET_MEMBER, target.Token)
		c.emitOperand16(idx, target.Token)

	default:
		c.errorAt(e.Token, "invalid assignment target")
	}
}

// compileFunctionValue pushes a function value: a compiled constant when
// the function lowers, a template instantiation otherwise.
func (c *Compiler) compileFunctionValue(name string, params []*ast.Identifier, body *ast.BlockStatement, tok token.Token) {
	if !functionEligible(params, body, c.isGlobalName) {
		idx := c.addConstant(&FunctionTemplate{Name: name, Parameters: params, Body: body}, tok)
		c.emit(OP_MAKE_FUNCTION, tok)
		c.emitOperand16(idx, tok)
		return
	}

	sub := &Compiler{
		chunk:      NewChunk(c.file),
		file:       c.file,
		globals:    c.globals,
		builtins:   c.builtins,
		scopeDepth: 1,
	}
	for _, param := range params {
		sub.addLocal(param.Value, true, param.Token)
	}
	for _, stmt := range body.Statements {
		sub.compileStatement(stmt)
	}
	sub.emit(OP_NULL, body.Token)
	sub.emit(OP_RETURN, body.Token)
	if sub.err != nil {
		c.err = sub.err
		return
	}

	fn := &CompiledFunction{
		Name:       name,
		Arity:      len(params),
		LocalCount: sub.localPeak,
		Chunk:      sub.chunk,
	}
	c.emitConstant(fn, tok)
}

func (c *Compiler) emit(op Opcode, tok token.Token) {
	c.chunk.WriteOp(op, tok.Line, tok.Column)
}

func (c *Compiler) emitOperand16(v int, tok token.Token) {
	c.chunk.WriteOperand16(v, tok.Line, tok.Column)
}

func (c *Compiler) addConstant(value evaluator.Object, tok token.Token) int {
	idx := c.chunk.AddConstant(value)
	if idx > maxConstants {
		c.errorAt(tok, "too many constants in one chunk")
		return 0
	}
	return idx
}

func (c *Compiler) emitConstant(value evaluator.Object, tok token.Token) {
	idx := c.addConstant(value, tok)
	c.emit(OP_CONST, tok)
	c.emitOperand16(idx, tok)
}

// emitJump writes a forward jump with a placeholder offset and returns
// the operand position for patchJump.
func (c *Compiler) emitJump(op Opcode, tok token.Token) int {
	c.emit(op, tok)
	operandAt := c.chunk.Len()
	c.emitOperand16(0xFFFF, tok)
	return operandAt
}

// patchJump points the jump at operandAt to the current offset. Offsets
// are relative to the instruction end.
func (c *Compiler) patchJump(operandAt int, tok token.Token) {
	offset := c.chunk.Len() - (operandAt + 2)
	if offset > maxJump {
		c.errorAt(tok, "jump distance too large")
		return
	}
	c.chunk.Code[operandAt] = byte(offset >> 8)
	c.chunk.Code[operandAt+1] = byte(offset)
}

// emitLoop writes a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int, tok token.Token) {
	c.emit(OP_LOOP, tok)
	offset := c.chunk.Len() + 2 - loopStart
	if offset > maxJump {
		c.errorAt(tok, "loop body too large")
		return
	}
	c.emitOperand16(offset, tok)
}

func (c *Compiler) errorAt(tok token.Token, format string, args ...interface{}) {
	if c.err != nil {
		return
	}
	err := diagnostics.NewError(diagnostics.ErrC001, diagnostics.KindRuntime, tok, format, args...)
	err.File = c.file
	c.err = err
}
