package vm

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/evaluator"
)

// Compiled chunks serialize as a 4-byte magic, a version byte and a gob
// stream. Templates and islands carry AST subtrees, so every node type
// that can appear behind an interface field registers with gob.

const (
	chunkMagic   = "FNBC"
	chunkVersion = byte(1)
)

func init() {
	gob.Register(&CompiledFunction{})
	gob.Register(&FunctionTemplate{})
	gob.Register(&AstStatement{})

	gob.Register(&evaluator.Integer{})
	gob.Register(&evaluator.Float{})
	gob.Register(&evaluator.String{})
	gob.Register(&evaluator.Boolean{})
	gob.Register(&evaluator.Null{})

	gob.Register(&ast.VarStatement{})
	gob.Register(&ast.FunctionStatement{})
	gob.Register(&ast.ReturnStatement{})
	gob.Register(&ast.BreakStatement{})
	gob.Register(&ast.ExpressionStatement{})
	gob.Register(&ast.BlockStatement{})
	gob.Register(&ast.IfStatement{})
	gob.Register(&ast.WhileStatement{})
	gob.Register(&ast.ForStatement{})
	gob.Register(&ast.LoopStatement{})
	gob.Register(&ast.TryStatement{})
	gob.Register(&ast.ThrowStatement{})

	gob.Register(&ast.Identifier{})
	gob.Register(&ast.IntegerLiteral{})
	gob.Register(&ast.FloatLiteral{})
	gob.Register(&ast.StringLiteral{})
	gob.Register(&ast.BooleanLiteral{})
	gob.Register(&ast.NullLiteral{})
	gob.Register(&ast.PrefixExpression{})
	gob.Register(&ast.InfixExpression{})
	gob.Register(&ast.AssignExpression{})
	gob.Register(&ast.CallExpression{})
	gob.Register(&ast.MemberExpression{})
	gob.Register(&ast.IndexExpression{})
	gob.Register(&ast.MethodCallExpression{})
	gob.Register(&ast.FunctionLiteral{})
	gob.Register(&ast.ListLiteral{})
	gob.Register(&ast.TupleLiteral{})
	gob.Register(&ast.DictLiteral{})
	gob.Register(&ast.SetLiteral{})
	gob.Register(&ast.MatchExpression{})

	gob.Register(&ast.LiteralPattern{})
	gob.Register(&ast.IdentifierPattern{})
	gob.Register(&ast.WildcardPattern{})
	gob.Register(&ast.DictPattern{})
	gob.Register(&ast.ListPattern{})
}

// Serialize encodes a compiled main function for caching or .fnc output.
func Serialize(fn *CompiledFunction) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(chunkMagic)
	buf.WriteByte(chunkVersion)
	if err := gob.NewEncoder(&buf).Encode(fn); err != nil {
		return nil, fmt.Errorf("encode chunk: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a serialized chunk, rejecting foreign or
// stale-format data.
func Deserialize(data []byte) (*CompiledFunction, error) {
	if len(data) < 5 || string(data[:4]) != chunkMagic {
		return nil, fmt.Errorf("not a compiled chunk")
	}
	if data[4] != chunkVersion {
		return nil, fmt.Errorf("unsupported chunk version %d", data[4])
	}
	var fn CompiledFunction
	if err := gob.NewDecoder(bytes.NewReader(data[5:])).Decode(&fn); err != nil {
		return nil, fmt.Errorf("decode chunk: %w", err)
	}
	return &fn, nil
}
