package vm

import "github.com/falcon-lang/falcon/internal/evaluator"

// Chunk is a compiled instruction sequence for one function body.
type Chunk struct {
	// Code is the bytecode.
	Code []byte

	// Constants holds literals, name strings, nested functions and AST
	// templates referenced by the code.
	Constants []evaluator.Object

	// Lines and Columns map each bytecode offset to its source position.
	Lines   []int
	Columns []int

	// File is the source file name.
	File string
}

func NewChunk(file string) *Chunk {
	return &Chunk{
		Code:    make([]byte, 0, 256),
		Lines:   make([]int, 0, 256),
		Columns: make([]int, 0, 256),
		File:    file,
	}
}

// Write appends one byte with its source position.
func (c *Chunk) Write(b byte, line, col int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	c.Columns = append(c.Columns, col)
}

func (c *Chunk) WriteOp(op Opcode, line, col int) {
	c.Write(byte(op), line, col)
}

// WriteOperand16 appends a 2-byte big-endian operand.
func (c *Chunk) WriteOperand16(v int, line, col int) {
	c.Write(byte(v>>8), line, col)
	c.Write(byte(v), line, col)
}

// AddConstant appends value to the pool and returns its index.
func (c *Chunk) AddConstant(value evaluator.Object) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// ReadOperand16 reads the 2-byte operand at offset.
func (c *Chunk) ReadOperand16(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

func (c *Chunk) Len() int {
	return len(c.Code)
}
