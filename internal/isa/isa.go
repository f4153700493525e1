// Package isa defines the tagged instruction set the lowering packages
// emit and the VM stack executes, along with the runtime value and
// constant-pool encodings those instructions reference.
//
// Generalized from yourfavoritedev-golang-interpreter/code/code.go's
// Opcode/Definition table: that package numbers a small stack-machine
// opcode set with OperandWidths driving its disassembler; here the
// operand shape is address-addressed rather than stack-implicit, so
// each Inst is a Go struct rather than a packed byte instruction, but
// the Opcode enum and String()-based disassembly idiom are kept.
package isa

import (
	"fmt"

	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/hir"
)

// Opcode tags every instruction kind the backend may emit.
type Opcode int

const (
	OpUnit Opcode = iota
	OpBool
	OpByte
	OpChar
	OpInteger
	OpFloat
	OpString
	OpByteString
	OpType
	OpLoadFn

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLte
	OpGte
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpAnd
	OpOr
	OpAs
	OpIs
	OpIsNot

	OpNot
	OpNeg

	OpAssign

	OpTuple1
	OpTuple2
	OpTuple3
	OpTuple4
	OpTuple
	OpVec
	OpObject
	OpStruct
	OpStructVariant
	OpEmptyStruct
	OpRange
	OpEnvironment
	OpClosure

	OpTupleIndexGet
	OpTupleIndexSet
	OpObjectIndexGet
	OpObjectIndexSet
	OpIndexGet
	OpIndexSet

	OpJump
	OpJumpIf
	OpJumpIfNot
	OpJumpIfBranch

	OpCall
	OpCallFn
	OpCallAssociated
	OpLoadInstanceFn

	OpIsUnit
	OpEqByte
	OpEqChar
	OpEqString
	OpEqBytes
	OpEqInteger
	OpEqBool
	OpMatchType
	OpMatchBuiltIn
	OpMatchVariant
	OpMatchSequence
	OpMatchObject

	OpAwait
	OpYield
	OpYieldUnit
	OpSelect
	OpTry

	OpDrop
	OpSwap
	OpReturn
	OpReturnUnit
	OpPanic

	OpFormat
	OpStringConcat

	OpIterNext
)

var opcodeNames = map[Opcode]string{
	OpUnit: "Unit", OpBool: "Bool", OpByte: "Byte", OpChar: "Char",
	OpInteger: "Integer", OpFloat: "Float", OpString: "String",
	OpByteString: "ByteString", OpType: "Type", OpLoadFn: "LoadFn",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpRem: "Rem",
	OpEq: "Eq", OpNeq: "Neq", OpLt: "Lt", OpGt: "Gt", OpLte: "Lte", OpGte: "Gte",
	OpBitAnd: "BitAnd", OpBitOr: "BitOr", OpBitXor: "BitXor",
	OpShl: "Shl", OpShr: "Shr", OpAnd: "And", OpOr: "Or",
	OpAs: "As", OpIs: "Is", OpIsNot: "IsNot",
	OpNot: "Not", OpNeg: "Neg",
	OpAssign: "Assign",
	OpTuple1: "Tuple1", OpTuple2: "Tuple2", OpTuple3: "Tuple3", OpTuple4: "Tuple4",
	OpTuple: "Tuple", OpVec: "Vec", OpObject: "Object", OpStruct: "Struct",
	OpStructVariant: "StructVariant", OpEmptyStruct: "EmptyStruct",
	OpRange: "Range", OpEnvironment: "Environment", OpClosure: "Closure",
	OpTupleIndexGet: "TupleIndexGet", OpTupleIndexSet: "TupleIndexSet",
	OpObjectIndexGet: "ObjectIndexGet", OpObjectIndexSet: "ObjectIndexSet",
	OpIndexGet: "IndexGet", OpIndexSet: "IndexSet",
	OpJump: "Jump", OpJumpIf: "JumpIf", OpJumpIfNot: "JumpIfNot",
	OpJumpIfBranch: "JumpIfBranch",
	OpCall: "Call", OpCallFn: "CallFn", OpCallAssociated: "CallAssociated",
	OpLoadInstanceFn: "LoadInstanceFn",
	OpIsUnit: "IsUnit", OpEqByte: "EqByte", OpEqChar: "EqChar",
	OpEqString: "EqString", OpEqBytes: "EqBytes", OpEqInteger: "EqInteger",
	OpEqBool: "EqBool", OpMatchType: "MatchType", OpMatchBuiltIn: "MatchBuiltIn",
	OpMatchVariant: "MatchVariant", OpMatchSequence: "MatchSequence",
	OpMatchObject: "MatchObject",
	OpAwait: "Await", OpYield: "Yield", OpYieldUnit: "YieldUnit", OpSelect: "Select",
	OpTry: "Try",
	OpDrop: "Drop", OpSwap: "Swap", OpReturn: "Return", OpReturnUnit: "ReturnUnit",
	OpPanic: "Panic",
	OpFormat: "Format", OpStringConcat: "StringConcat",
	OpIterNext: "IterNext",
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Opcode(%d)", int(op))
}

// Well-known protocol hashes CallAssociated may target when the
// lowering itself (rather than external metadata) knows which protocol
// method it needs, mirroring assemble.rs's Protocol::INTO_ITER/NEXT
// constants.
const (
	ProtocolIntoIter hir.Hash = 1
	ProtocolNext     hir.Hash = 2
)

// PanicReason tags why a Panic instruction fires.
type PanicReason int

const (
	PanicUnmatchedPattern PanicReason = iota
	PanicDivideByZero
	PanicOverflow
)

// InstTarget names the destination of an Assign instruction.
type InstTargetKind int

const (
	TargetAddress InstTargetKind = iota
	TargetField
	TargetTupleIndex
)

type InstTarget struct {
	Kind  InstTargetKind
	Addr  asm.Address
	Field hir.Slot
	Index int
}

// InstAssignOp enumerates the compound operator an Assign applies, or
// AssignSet for a plain store.
type InstAssignOp int

const (
	AssignSet InstAssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignRem
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignShl
	AssignShr
)

// Inst is a single tagged instruction. Only the fields relevant to Op
// are meaningful; this mirrors the teacher's single-Instructions-stream
// design but keeps operands as typed Go fields instead of packed bytes,
// since this backend addresses registers rather than an implicit stack.
type Inst struct {
	Op Opcode

	A, B, Out asm.Address
	N         int // count operand (tuple arity, branch count, etc.)

	Bool      bool
	Byte      byte
	Char      rune
	Int       int64
	Float     float64
	Slot      hir.Slot
	Hash      hir.Hash
	Label     *asm.Label
	Label2    *asm.Label
	Labels    []*asm.Label
	Target    InstTarget
	AssignOp  InstAssignOp
	Reason    PanicReason
	VariantOK bool
}

func (in Inst) String() string {
	return fmt.Sprintf("%-16s a=%d b=%d out=%d n=%d", in.Op, in.A, in.B, in.Out, in.N)
}
