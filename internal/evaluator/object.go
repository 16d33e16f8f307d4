// Package evaluator holds the runtime value model shared by both execution
// engines, the lexical Environment, the builtin table and the tree-walking
// interpreter used for functions the compiler defers.
package evaluator

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/falcon-lang/falcon/internal/ast"
	"github.com/falcon-lang/falcon/internal/diagnostics"
)

type ObjectType string

const (
	INTEGER_OBJ      ObjectType = "INTEGER"
	FLOAT_OBJ        ObjectType = "FLOAT"
	STRING_OBJ       ObjectType = "STRING"
	BOOLEAN_OBJ      ObjectType = "BOOLEAN"
	NULL_OBJ         ObjectType = "NULL"
	FUNCTION_OBJ     ObjectType = "FUNCTION"
	BUILTIN_OBJ      ObjectType = "BUILTIN"
	LIST_OBJ         ObjectType = "LIST"
	TUPLE_OBJ        ObjectType = "TUPLE"
	DICT_OBJ         ObjectType = "DICT"
	SET_OBJ          ObjectType = "SET"
	ARRAY_OBJ        ObjectType = "ARRAY"
	PROMISE_OBJ      ObjectType = "PROMISE"
	ERROR_OBJ        ObjectType = "ERROR"
	RETURN_VALUE_OBJ ObjectType = "RETURN_VALUE"
	BREAK_SIGNAL_OBJ ObjectType = "BREAK_SIGNAL"
)

// Object is the runtime value representation. Both the VM and the
// interpreter operate on Objects, so values cross the engine boundary
// without conversion.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// Hashable objects can be dict keys and set members.
type Hashable interface {
	HashKey() HashKey
}

type HashKey struct {
	Type  ObjectType
	Value uint64
}

func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }
func (i *Integer) HashKey() HashKey {
	return HashKey{Type: INTEGER_OBJ, Value: uint64(i.Value)}
}

type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return strconv.FormatFloat(f.Value, 'g', -1, 64) }
func (f *Float) HashKey() HashKey {
	// A float with an integral value hashes like the integer, so 1 and 1.0
	// address the same dict slot.
	if f.Value == float64(int64(f.Value)) {
		return HashKey{Type: INTEGER_OBJ, Value: uint64(int64(f.Value))}
	}
	return HashKey{Type: FLOAT_OBJ, Value: hashString(f.Inspect())}
}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return `"` + s.Value + `"` }
func (s *String) HashKey() HashKey {
	return HashKey{Type: STRING_OBJ, Value: hashString(s.Value)}
}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) HashKey() HashKey {
	if b.Value {
		return HashKey{Type: BOOLEAN_OBJ, Value: 1}
	}
	return HashKey{Type: BOOLEAN_OBJ, Value: 0}
}

type Null struct{}

func (n *Null) Type() ObjectType { return NULL_OBJ }
func (n *Null) Inspect() string  { return "null" }

// Shared singletons; comparisons may rely on pointer identity for these.
var (
	NULL  = &Null{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func NativeBoolToBooleanObject(v bool) *Boolean {
	if v {
		return TRUE
	}
	return FALSE
}

// Function is an AST-backed function value. Env is the environment captured
// at the definition site, shared by reference.
type Function struct {
	Name       string
	Parameters []*ast.Identifier
	Body       *ast.BlockStatement
	Env        *Environment
}

// Callable is any function-shaped object with a fixed parameter count.
// Compiled function values satisfy it too, so builtins taking callbacks
// can recognize them without knowing their concrete type.
type Callable interface {
	Object
	ParamCount() int
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) ParamCount() int  { return len(f.Parameters) }
func (f *Function) Inspect() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.Value
	}
	name := f.Name
	if name == "" {
		name = "<anonymous>"
	}
	return "function " + name + "(" + strings.Join(params, ", ") + ")"
}

// BuiltinFunction receives already-evaluated arguments and returns a value
// or an *Error.
type BuiltinFunction func(args ...Object) Object

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }

type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string  { return inspectElements("[", l.Elements, "]") }

// Tuple is immutable after construction.
type Tuple struct {
	Elements []Object
}

func (t *Tuple) Type() ObjectType { return TUPLE_OBJ }
func (t *Tuple) Inspect() string  { return inspectElements("(", t.Elements, ")") }

// Array is fixed size; element assignment is allowed, growth is not.
type Array struct {
	Elements []Object
}

func (a *Array) Type() ObjectType { return ARRAY_OBJ }
func (a *Array) Inspect() string  { return inspectElements("array[", a.Elements, "]") }

type DictPair struct {
	Key   Object
	Value Object
}

// Dict preserves insertion order for iteration and display.
type Dict struct {
	Pairs map[HashKey]DictPair
	Keys  []HashKey
}

func NewDict() *Dict {
	return &Dict{Pairs: make(map[HashKey]DictPair)}
}

func (d *Dict) Set(key, value Object) bool {
	hashable, ok := key.(Hashable)
	if !ok {
		return false
	}
	hk := hashable.HashKey()
	if _, exists := d.Pairs[hk]; !exists {
		d.Keys = append(d.Keys, hk)
	}
	d.Pairs[hk] = DictPair{Key: key, Value: value}
	return true
}

func (d *Dict) Get(key Object) (Object, bool) {
	hashable, ok := key.(Hashable)
	if !ok {
		return nil, false
	}
	pair, ok := d.Pairs[hashable.HashKey()]
	if !ok {
		return nil, false
	}
	return pair.Value, true
}

func (d *Dict) Type() ObjectType { return DICT_OBJ }
func (d *Dict) Inspect() string {
	parts := make([]string, 0, len(d.Keys))
	for _, hk := range d.Keys {
		pair := d.Pairs[hk]
		key := pair.Key.Inspect()
		if s, ok := pair.Key.(*String); ok {
			key = s.Value
		}
		parts = append(parts, key+": "+pair.Value.Inspect())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

type Set struct {
	Members map[HashKey]Object
}

func NewSet() *Set {
	return &Set{Members: make(map[HashKey]Object)}
}

func (s *Set) Add(member Object) bool {
	hashable, ok := member.(Hashable)
	if !ok {
		return false
	}
	s.Members[hashable.HashKey()] = member
	return true
}

func (s *Set) Contains(member Object) bool {
	hashable, ok := member.(Hashable)
	if !ok {
		return false
	}
	_, found := s.Members[hashable.HashKey()]
	return found
}

func (s *Set) Type() ObjectType { return SET_OBJ }
func (s *Set) Inspect() string {
	parts := make([]string, 0, len(s.Members))
	for _, m := range s.Members {
		parts = append(parts, m.Inspect())
	}
	sort.Strings(parts)
	return "#{" + strings.Join(parts, ", ") + "}"
}

// Promise is the synchronous stub: it resolves at construction and then
// callbacks run immediately, in registration order.
type Promise struct {
	Value    Object
	Rejected bool
	Reason   Object
}

func (p *Promise) Type() ObjectType { return PROMISE_OBJ }
func (p *Promise) Inspect() string {
	if p.Rejected {
		return "Promise(rejected: " + p.Reason.Inspect() + ")"
	}
	return "Promise(" + p.Value.Inspect() + ")"
}

// ReturnValue carries a return through nested statements.
type ReturnValue struct {
	Value Object
}

func (rv *ReturnValue) Type() ObjectType { return RETURN_VALUE_OBJ }
func (rv *ReturnValue) Inspect() string  { return rv.Value.Inspect() }

// BreakSignal unwinds to the nearest loop.
type BreakSignal struct{}

func (bs *BreakSignal) Type() ObjectType { return BREAK_SIGNAL_OBJ }
func (bs *BreakSignal) Inspect() string  { return "break" }

// Error is a runtime error in flight. Payload holds the thrown user value
// when Diag.Kind is ThrownError.
type Error struct {
	Diag    *diagnostics.DiagnosticError
	Payload Object
}

func (e *Error) Type() ObjectType { return ERROR_OBJ }
func (e *Error) Inspect() string  { return e.Diag.Error() }

// CatchValue is what a catch clause binds: the thrown payload for
// ThrownError, the message string otherwise.
func (e *Error) CatchValue() Object {
	if e.Payload != nil {
		return e.Payload
	}
	return &String{Value: e.Diag.Message}
}

func inspectElements(open string, elements []Object, close string) string {
	parts := make([]string, len(elements))
	for i, el := range elements {
		parts[i] = el.Inspect()
	}
	return open + strings.Join(parts, ", ") + close
}

// ToString is the canonical display conversion used by string coercion,
// show and toString. Unlike Inspect it renders strings without quotes.
func ToString(obj Object) string {
	switch o := obj.(type) {
	case *String:
		return o.Value
	default:
		return obj.Inspect()
	}
}

// TypeName reports the user-visible type name returned by typeOf.
func TypeName(obj Object) string {
	switch obj.Type() {
	case INTEGER_OBJ:
		return "integer"
	case FLOAT_OBJ:
		return "float"
	case STRING_OBJ:
		return "string"
	case BOOLEAN_OBJ:
		return "boolean"
	case NULL_OBJ:
		return "null"
	case FUNCTION_OBJ, BUILTIN_OBJ:
		return "function"
	case LIST_OBJ:
		return "list"
	case TUPLE_OBJ:
		return "tuple"
	case DICT_OBJ:
		return "dict"
	case SET_OBJ:
		return "set"
	case ARRAY_OBJ:
		return "array"
	case PROMISE_OBJ:
		return "promise"
	case ERROR_OBJ:
		return "error"
	default:
		return strings.ToLower(string(obj.Type()))
	}
}

// IsTruthy defines conditional semantics for both engines: false, null,
// zero and the empty string are falsy, everything else is truthy.
func IsTruthy(obj Object) bool {
	switch o := obj.(type) {
	case *Null:
		return false
	case *Boolean:
		return o.Value
	case *Integer:
		return o.Value != 0
	case *Float:
		return o.Value != 0
	case *String:
		return o.Value != ""
	default:
		return true
	}
}

// Equals is structural equality across both engines. Numeric values compare
// by value regardless of int/float representation.
func Equals(a, b Object) bool {
	switch av := a.(type) {
	case *Integer:
		switch bv := b.(type) {
		case *Integer:
			return av.Value == bv.Value
		case *Float:
			return float64(av.Value) == bv.Value
		}
		return false
	case *Float:
		switch bv := b.(type) {
		case *Integer:
			return av.Value == float64(bv.Value)
		case *Float:
			return av.Value == bv.Value
		}
		return false
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *Boolean:
		bv, ok := b.(*Boolean)
		return ok && av.Value == bv.Value
	case *Null:
		_, ok := b.(*Null)
		return ok
	case *List:
		bv, ok := b.(*List)
		return ok && elementsEqual(av.Elements, bv.Elements)
	case *Tuple:
		bv, ok := b.(*Tuple)
		return ok && elementsEqual(av.Elements, bv.Elements)
	case *Array:
		bv, ok := b.(*Array)
		return ok && elementsEqual(av.Elements, bv.Elements)
	case *Dict:
		bv, ok := b.(*Dict)
		if !ok || len(av.Pairs) != len(bv.Pairs) {
			return false
		}
		for hk, pair := range av.Pairs {
			other, found := bv.Pairs[hk]
			if !found || !Equals(pair.Value, other.Value) {
				return false
			}
		}
		return true
	case *Set:
		bv, ok := b.(*Set)
		if !ok || len(av.Members) != len(bv.Members) {
			return false
		}
		for hk := range av.Members {
			if _, found := bv.Members[hk]; !found {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func elementsEqual(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equals(a[i], b[i]) {
			return false
		}
	}
	return true
}

// FormatValue renders a value the way show prints it.
func FormatValue(obj Object) string {
	return ToString(obj)
}

func newError(code diagnostics.ErrorCode, kind diagnostics.Kind, line, col int, format string, args ...interface{}) *Error {
	return &Error{Diag: &diagnostics.DiagnosticError{
		Code:    code,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Column:  col,
	}}
}
