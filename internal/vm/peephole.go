package vm

// Optimize runs the peephole pass over fn and every compiled function in
// its constant pool. Redundant instruction pairs become OP_NOP in place,
// so jump offsets and line tables stay valid.
func Optimize(fn *CompiledFunction) {
	optimizeChunk(fn.Chunk)
	for _, constant := range fn.Chunk.Constants {
		if nested, ok := constant.(*CompiledFunction); ok {
			Optimize(nested)
		}
	}
}

func optimizeChunk(c *Chunk) {
	targets := jumpTargets(c)

	offset := 0
	for offset < c.Len() {
		op := Opcode(c.Code[offset])
		width := 1 + operandWidth(op)
		next := offset + width

		switch op {
		case OP_CONST, OP_TRUE, OP_FALSE, OP_NULL:
			// push immediately discarded
			if next < c.Len() && Opcode(c.Code[next]) == OP_POP && !targets[next] {
				nopRange(c, offset, next+1)
				offset = next + 1
				continue
			}

		case OP_JUMP:
			// jump to the next instruction
			if c.ReadOperand16(offset+1) == 0 {
				nopRange(c, offset, next)
			}
		}

		offset = next
	}
}

// jumpTargets collects every offset some jump can land on. A pair whose
// second instruction is a landing site must survive; arrivals there skip
// the first half.
func jumpTargets(c *Chunk) map[int]bool {
	targets := map[int]bool{}
	offset := 0
	for offset < c.Len() {
		op := Opcode(c.Code[offset])
		next := offset + 1 + operandWidth(op)
		switch op {
		case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_FALSE_PEEK, OP_JUMP_IF_TRUE_PEEK:
			targets[next+c.ReadOperand16(offset+1)] = true
		case OP_LOOP:
			targets[next-c.ReadOperand16(offset+1)] = true
		}
		offset = next
	}
	return targets
}

func nopRange(c *Chunk, from, to int) {
	for i := from; i < to; i++ {
		c.Code[i] = byte(OP_NOP)
	}
}
