package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders a chunk as one instruction per line, for debugging
// and for golden tests over compiler output.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	offset := 0
	for offset < c.Len() {
		offset = disassembleInstruction(&b, c, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(b, "%4d ", c.Lines[offset])
	}

	op := Opcode(c.Code[offset])
	switch op {
	case OP_CONST, OP_MAKE_FUNCTION, OP_EVAL_STMT:
		idx := c.ReadOperand16(offset + 1)
		fmt.Fprintf(b, "%-22s %4d  %s\n", op, idx, constantText(c, idx))
	case OP_GET_GLOBAL, OP_SET_GLOBAL, OP_GET_MEMBER, OP_SET_MEMBER, OP_CONST_VIOLATION:
		idx := c.ReadOperand16(offset + 1)
		fmt.Fprintf(b, "%-22s %4d  %s\n", op, idx, constantText(c, idx))
	case OP_DEF_GLOBAL:
		idx := c.ReadOperand16(offset + 1)
		mutable := c.Code[offset+3] == 1
		fmt.Fprintf(b, "%-22s %4d  %s mutable=%t\n", op, idx, constantText(c, idx), mutable)
	case OP_GET_LOCAL, OP_SET_LOCAL, OP_FOR_TEST,
		OP_MAKE_LIST, OP_MAKE_TUPLE, OP_MAKE_DICT, OP_MAKE_SET:
		fmt.Fprintf(b, "%-22s %4d\n", op, c.ReadOperand16(offset+1))
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_FALSE_PEEK, OP_JUMP_IF_TRUE_PEEK:
		jump := c.ReadOperand16(offset + 1)
		fmt.Fprintf(b, "%-22s %4d -> %d\n", op, jump, offset+3+jump)
	case OP_LOOP:
		jump := c.ReadOperand16(offset + 1)
		fmt.Fprintf(b, "%-22s %4d -> %d\n", op, jump, offset+3-jump)
	case OP_CALL:
		fmt.Fprintf(b, "%-22s %4d\n", op, c.Code[offset+1])
	case OP_METHOD_CALL:
		idx := c.ReadOperand16(offset + 1)
		fmt.Fprintf(b, "%-22s %4d  %s argc=%d\n", op, idx, constantText(c, idx), c.Code[offset+3])
	default:
		fmt.Fprintf(b, "%s\n", op)
	}
	return offset + 1 + operandWidth(op)
}

func constantText(c *Chunk, idx int) string {
	if idx < 0 || idx >= len(c.Constants) {
		return "<bad constant>"
	}
	return c.Constants[idx].Inspect()
}
