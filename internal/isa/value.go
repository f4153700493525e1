package isa

import "fmt"

// ValueKind tags every runtime value kind the VM stack and the
// constant-function evaluator manipulate.
//
// Generalized from yourfavoritedev-golang-interpreter/object/object.go's
// Object interface (Integer/Boolean/Null/...), widened from Monkey's
// handful of kinds to the full literal/aggregate set spec.md's
// instruction set materializes.
type ValueKind int

const (
	ValueUnit ValueKind = iota
	ValueBool
	ValueByte
	ValueChar
	ValueInteger
	ValueFloat
	ValueString
	ValueBytes
	ValueTuple
	ValueVec
	ValueObject
	ValueFunction
)

// Value is the tagged runtime representation the VM stack stores and
// instructions produce/consume. A single struct (rather than an
// interface, unlike object.Object) keeps stack slots copyable by value,
// matching the "contiguous sequence of runtime values" stack.rs model.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Byte   byte
	Char   rune
	Int    int64
	Float  float64
	Str    string
	Bytes  []byte
	Tuple  []Value
	Vec    []Value
	Fields map[string]Value
	FnHash uint64
}

func Unit() Value                  { return Value{Kind: ValueUnit} }
func Bool(b bool) Value            { return Value{Kind: ValueBool, Bool: b} }
func Integer(i int64) Value        { return Value{Kind: ValueInteger, Int: i} }
func Float(f float64) Value        { return Value{Kind: ValueFloat, Float: f} }
func String(s string) Value        { return Value{Kind: ValueString, Str: s} }

// Truthy reports whether v is considered true by JumpIf/JumpIfNot and
// short-circuit Binary lowering. Only Bool is truthy-typed; every other
// kind is a static rejection the lowering layer should have already
// prevented, but at runtime Unit is false and every other non-bool value
// (Integer 0 included) is true, for robustness rather than panicking the
// host process.
func (v Value) Truthy() bool {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueUnit:
		return false
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueUnit:
		return "()"
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueByte:
		return fmt.Sprintf("b'%d'", v.Byte)
	case ValueChar:
		return fmt.Sprintf("%q", v.Char)
	case ValueInteger:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Float)
	case ValueString:
		return fmt.Sprintf("%q", v.Str)
	case ValueBytes:
		return fmt.Sprintf("%v", v.Bytes)
	case ValueTuple:
		return fmt.Sprintf("%v", v.Tuple)
	case ValueVec:
		return fmt.Sprintf("%v", v.Vec)
	case ValueObject:
		return fmt.Sprintf("%v", v.Fields)
	case ValueFunction:
		return fmt.Sprintf("fn#%d", v.FnHash)
	default:
		return "<unknown>"
	}
}

// Equal implements the equality used by Eq/Neq and pattern literal
// matching (EqInteger, EqString, ...).
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case ValueUnit:
		return true
	case ValueBool:
		return a.Bool == b.Bool
	case ValueByte:
		return a.Byte == b.Byte
	case ValueChar:
		return a.Char == b.Char
	case ValueInteger:
		return a.Int == b.Int
	case ValueFloat:
		return a.Float == b.Float
	case ValueString:
		return a.Str == b.Str
	case ValueBytes:
		if len(a.Bytes) != len(b.Bytes) {
			return false
		}
		for i := range a.Bytes {
			if a.Bytes[i] != b.Bytes[i] {
				return false
			}
		}
		return true
	case ValueTuple, ValueVec:
		left, right := a.Tuple, b.Tuple
		if a.Kind == ValueVec {
			left, right = a.Vec, b.Vec
		}
		if len(left) != len(right) {
			return false
		}
		for i := range left {
			if !Equal(left[i], right[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ConstValue is the result of the constant-function evaluator (§4.6):
// a plain tree of runtime values that the "Constant item" lowering path
// re-emits as instructions without a Call appearing in the output.
type ConstValue = Value
