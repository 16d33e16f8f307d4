// Package vm implements the bytecode compiler and the stack virtual
// machine. Functions the compiler cannot lower keep their AST bodies and
// execute on the shared tree-walking evaluator.
package vm

// Opcode is a single VM instruction tag.
type Opcode byte

const (
	// Stack
	OP_CONST Opcode = iota // push constant (2-byte pool index)
	OP_POP                 // discard top of stack
	OP_NOP                 // no effect; produced by the peephole pass

	// Literals
	OP_NULL
	OP_TRUE
	OP_FALSE

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_NEG

	// Comparison
	OP_EQ
	OP_NE
	OP_LT
	OP_LE
	OP_GT
	OP_GE

	// Logic
	OP_NOT

	// Variables
	OP_GET_LOCAL  // 2-byte slot
	OP_SET_LOCAL  // 2-byte slot; value stays on stack
	OP_DEF_GLOBAL // 2-byte name index + 1-byte mutable flag; pops value
	OP_GET_GLOBAL // 2-byte name index
	OP_SET_GLOBAL // 2-byte name index; value stays on stack

	// Control flow
	OP_JUMP          // 2-byte forward offset
	OP_JUMP_IF_FALSE // 2-byte forward offset; pops condition
	OP_JUMP_IF_FALSE_PEEK
	OP_JUMP_IF_TRUE_PEEK
	OP_LOOP     // 2-byte backward offset
	OP_FOR_TEST // 2-byte base slot; reads i/end/step, pushes bool

	// Functions
	OP_CALL          // 1-byte arg count
	OP_RETURN        // pops result, tears down frame
	OP_MAKE_FUNCTION // 2-byte template index; instantiates an AST function
	OP_METHOD_CALL   // 2-byte name index + 1-byte arg count

	// Collections and access
	OP_MAKE_LIST  // 2-byte element count
	OP_MAKE_TUPLE // 2-byte element count
	OP_MAKE_DICT  // 2-byte pair count
	OP_MAKE_SET   // 2-byte element count
	OP_INDEX      // pops index, container
	OP_SET_INDEX  // pops value, index, container; pushes value
	OP_GET_MEMBER // 2-byte name index
	OP_SET_MEMBER // 2-byte name index; pops value, container; pushes value

	// Errors
	OP_THROW           // pops a value, raises it as a thrown error
	OP_CONST_VIOLATION // 2-byte name index; raises a const reassignment error

	// Interpreter escape hatch: run one AST statement against the global
	// environment.
	OP_EVAL_STMT // 2-byte constant index
)

var opcodeNames = map[Opcode]string{
	OP_CONST:              "OP_CONST",
	OP_POP:                "OP_POP",
	OP_NOP:                "OP_NOP",
	OP_NULL:               "OP_NULL",
	OP_TRUE:               "OP_TRUE",
	OP_FALSE:              "OP_FALSE",
	OP_ADD:                "OP_ADD",
	OP_SUB:                "OP_SUB",
	OP_MUL:                "OP_MUL",
	OP_DIV:                "OP_DIV",
	OP_MOD:                "OP_MOD",
	OP_NEG:                "OP_NEG",
	OP_EQ:                 "OP_EQ",
	OP_NE:                 "OP_NE",
	OP_LT:                 "OP_LT",
	OP_LE:                 "OP_LE",
	OP_GT:                 "OP_GT",
	OP_GE:                 "OP_GE",
	OP_NOT:                "OP_NOT",
	OP_GET_LOCAL:          "OP_GET_LOCAL",
	OP_SET_LOCAL:          "OP_SET_LOCAL",
	OP_DEF_GLOBAL:         "OP_DEF_GLOBAL",
	OP_GET_GLOBAL:         "OP_GET_GLOBAL",
	OP_SET_GLOBAL:         "OP_SET_GLOBAL",
	OP_JUMP:               "OP_JUMP",
	OP_JUMP_IF_FALSE:      "OP_JUMP_IF_FALSE",
	OP_JUMP_IF_FALSE_PEEK: "OP_JUMP_IF_FALSE_PEEK",
	OP_JUMP_IF_TRUE_PEEK:  "OP_JUMP_IF_TRUE_PEEK",
	OP_LOOP:               "OP_LOOP",
	OP_FOR_TEST:           "OP_FOR_TEST",
	OP_CALL:               "OP_CALL",
	OP_RETURN:             "OP_RETURN",
	OP_MAKE_FUNCTION:      "OP_MAKE_FUNCTION",
	OP_METHOD_CALL:        "OP_METHOD_CALL",
	OP_MAKE_LIST:          "OP_MAKE_LIST",
	OP_MAKE_TUPLE:         "OP_MAKE_TUPLE",
	OP_MAKE_DICT:          "OP_MAKE_DICT",
	OP_MAKE_SET:           "OP_MAKE_SET",
	OP_INDEX:              "OP_INDEX",
	OP_SET_INDEX:          "OP_SET_INDEX",
	OP_GET_MEMBER:         "OP_GET_MEMBER",
	OP_SET_MEMBER:         "OP_SET_MEMBER",
	OP_THROW:              "OP_THROW",
	OP_CONST_VIOLATION:    "OP_CONST_VIOLATION",
	OP_EVAL_STMT:          "OP_EVAL_STMT",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "OP_UNKNOWN"
}

// operandWidth reports how many operand bytes follow op. The peephole pass
// and disassembler need instruction boundaries.
func operandWidth(op Opcode) int {
	switch op {
	case OP_CONST, OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_FALSE_PEEK, OP_JUMP_IF_TRUE_PEEK,
		OP_LOOP, OP_FOR_TEST, OP_MAKE_FUNCTION,
		OP_MAKE_LIST, OP_MAKE_TUPLE, OP_MAKE_DICT, OP_MAKE_SET,
		OP_GET_MEMBER, OP_SET_MEMBER, OP_CONST_VIOLATION, OP_EVAL_STMT:
		return 2
	case OP_DEF_GLOBAL, OP_METHOD_CALL:
		return 3
	case OP_CALL:
		return 1
	default:
		return 0
	}
}
