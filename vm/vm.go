// VM executes an assembled instruction stream against a Stack. Full
// execution semantics are, per spec.md §1, an external collaborator
// ("the executor of emitted instructions beyond the stack contract in
// §4.4"); this VM is a reference executor sufficient to drive the
// testable end-to-end scenarios spec.md §8 describes (arithmetic,
// if/else, while-loop break/continue, constant folding) so
// cmd/runec's run/debug subcommands have something real to execute.
// Call/CallAssociated/protocol dispatch against an external module
// system are intentionally not implemented here; they return
// ErrUnsupported, matching the declared out-of-scope boundary.
//
// Adapted from yourfavoritedev-golang-interpreter/vm/vm.go's
// MaxFrames/frames/framesIndex bookkeeping and fetch-decode-execute
// loop shape, generalized from a fixed Opcode switch over
// code.Instructions to one over isa.Inst/isa.Opcode.
package vm

import (
	"fmt"

	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/isa"
)

const MaxFrames = 1024

// ErrUnsupported is returned for instructions this reference executor
// intentionally does not implement (call/protocol dispatch against an
// external module system).
var ErrUnsupported = fmt.Errorf("vm: unsupported instruction")

// VM executes one assembled function body's instructions against a
// Stack, matching addresses exactly as internal/asm allocated them.
type VM struct {
	stack *Stack
	unit  *isa.Unit

	frames      []*Frame
	framesIndex int
}

// New creates a VM ready to execute instructions, starting a main frame
// at base pointer 0. unit resolves the string/byte-string pool slots
// OpString/OpByteString reference; it may be nil, in which case those
// opcodes fall back to ErrUnsupported rather than fabricating a value.
func New(instructions []asm.Entry[isa.Inst], unit *isa.Unit) *VM {
	frames := make([]*Frame, MaxFrames)
	frames[0] = NewFrame(instructions, 0)
	return &VM{
		stack:       NewStack(),
		unit:        unit,
		frames:      frames,
		framesIndex: 1,
	}
}

// Stack exposes the underlying evaluation stack (e.g. for a debugger
// to render the current frame).
func (vm *VM) Stack() *Stack { return vm.stack }

func (vm *VM) currentFrame() *Frame { return vm.frames[vm.framesIndex-1] }

func (vm *VM) pushFrame(f *Frame) {
	vm.frames[vm.framesIndex] = f
	vm.framesIndex++
}

func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

// Run executes the fetch-decode-execute cycle over the current frame's
// instructions until it runs off the end or a Return leaves no frame,
// returning the first execution error. It returns no value; a caller
// reads the program's result from the Stack afterwards.
func (vm *VM) Run() error {
	for {
		done, err := vm.Step()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// IP returns the current frame's program counter, for a debugger to
// render against the instruction stream it was constructed from, or -1
// once the outermost frame has returned and no frame remains.
func (vm *VM) IP() int {
	if vm.framesIndex == 0 {
		return -1
	}
	return vm.currentFrame().IP
}

// Step executes exactly one instruction and reports whether execution
// is finished, either because the current frame ran off the end of its
// instruction stream or because a Return in the outermost frame left no
// frame to resume (popFrame has no caller to return into there, unlike
// every other frame). Grounded on Run's own loop condition/body, split
// into a single iteration so internal/tui can single-step the same
// executor Run drives to completion.
func (vm *VM) Step() (done bool, err error) {
	if vm.framesIndex == 0 {
		return true, nil
	}
	if vm.currentFrame().IP >= len(vm.currentFrame().Instructions)-1 {
		return true, nil
	}
	vm.currentFrame().IP++
	frame := vm.currentFrame()
	entry := frame.Instructions[frame.IP]
	if err := vm.exec(entry.Inst); err != nil {
		return false, err
	}
	if vm.framesIndex == 0 {
		return true, nil
	}
	return false, nil
}

func (vm *VM) exec(in isa.Inst) error {
	switch in.Op {
	case isa.OpUnit:
		return vm.stack.SetAt(Resolve(in.Out), isa.Unit())
	case isa.OpBool:
		return vm.stack.SetAt(Resolve(in.Out), isa.Bool(in.Bool))
	case isa.OpByte:
		return vm.stack.SetAt(Resolve(in.Out), isa.Value{Kind: isa.ValueByte, Byte: in.Byte})
	case isa.OpChar:
		return vm.stack.SetAt(Resolve(in.Out), isa.Value{Kind: isa.ValueChar, Char: in.Char})
	case isa.OpInteger:
		return vm.stack.SetAt(Resolve(in.Out), isa.Integer(in.Int))
	case isa.OpFloat:
		return vm.stack.SetAt(Resolve(in.Out), isa.Float(in.Float))
	case isa.OpString:
		if vm.unit == nil {
			return fmt.Errorf("%w: %s (no Unit string pool attached)", ErrUnsupported, in.Op)
		}
		return vm.stack.SetAt(Resolve(in.Out), isa.String(vm.unit.StaticString(in.Slot)))
	case isa.OpByteString:
		if vm.unit == nil {
			return fmt.Errorf("%w: %s (no Unit byte-string pool attached)", ErrUnsupported, in.Op)
		}
		return vm.stack.SetAt(Resolve(in.Out), isa.Value{Kind: isa.ValueBytes, Bytes: vm.unit.StaticBytes(in.Slot)})

	case isa.OpAdd, isa.OpSub, isa.OpMul, isa.OpDiv, isa.OpRem,
		isa.OpEq, isa.OpNeq, isa.OpLt, isa.OpGt, isa.OpLte, isa.OpGte,
		isa.OpBitAnd, isa.OpBitOr, isa.OpBitXor, isa.OpShl, isa.OpShr,
		isa.OpAnd, isa.OpOr:
		return vm.execBinary(in)

	case isa.OpNot, isa.OpNeg:
		return vm.execUnary(in)

	case isa.OpAssign:
		return vm.execAssign(in)

	case isa.OpDrop:
		return nil // values are reclaimed by scope popping; nothing to release at runtime.

	case isa.OpSwap:
		return vm.stack.Swap(Resolve(in.A), Resolve(in.B))

	case isa.OpJump:
		vm.currentFrame().IP = in.Label.Offset() - 1
		return nil
	case isa.OpJumpIf:
		v, err := vm.stack.At(Resolve(in.A))
		if err != nil {
			return err
		}
		if v.Truthy() {
			vm.currentFrame().IP = in.Label.Offset() - 1
		}
		return nil
	case isa.OpJumpIfNot:
		v, err := vm.stack.At(Resolve(in.A))
		if err != nil {
			return err
		}
		if !v.Truthy() {
			vm.currentFrame().IP = in.Label.Offset() - 1
		}
		return nil

	case isa.OpReturn, isa.OpReturnUnit:
		frame := vm.popFrame()
		err := vm.stack.PopStackTop(frame.BasePointer)
		return err

	case isa.OpPanic:
		return fmt.Errorf("vm: panic: %v", in.Reason)

	case isa.OpTuple1, isa.OpTuple2, isa.OpTuple3, isa.OpTuple4, isa.OpTuple:
		return vm.execTuple(in)
	case isa.OpVec:
		return vm.execVec(in)

	case isa.OpTupleIndexGet:
		v, err := vm.stack.At(Resolve(in.A))
		if err != nil {
			return err
		}
		if in.N < 0 || in.N >= len(v.Tuple) {
			return &StackError{Addr: in.N}
		}
		return vm.stack.SetAt(Resolve(in.Out), v.Tuple[in.N])

	case isa.OpIsUnit:
		v, err := vm.stack.At(Resolve(in.A))
		if err != nil {
			return err
		}
		return vm.stack.SetAt(Resolve(in.Out), isa.Bool(v.Kind == isa.ValueUnit))

	case isa.OpEqInteger:
		v, err := vm.stack.At(Resolve(in.A))
		if err != nil {
			return err
		}
		return vm.stack.SetAt(Resolve(in.Out), isa.Bool(v.Kind == isa.ValueInteger && v.Int == in.Int))
	case isa.OpEqBool:
		v, err := vm.stack.At(Resolve(in.A))
		if err != nil {
			return err
		}
		return vm.stack.SetAt(Resolve(in.Out), isa.Bool(v.Kind == isa.ValueBool && v.Bool == in.Bool))

	case isa.OpAwait, isa.OpYield, isa.OpYieldUnit, isa.OpSelect, isa.OpTry:
		// Each of these requires dispatching into a protocol (poll,
		// generator resume, Result/Option unwrap-or-return) against an
		// external module system, which this reference executor does
		// not implement; see the package doc comment.
		return fmt.Errorf("%w: %s", ErrUnsupported, in.Op)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, in.Op)
	}
}

func (vm *VM) execBinary(in isa.Inst) error {
	a, err := vm.stack.At(Resolve(in.A))
	if err != nil {
		return err
	}
	b, err := vm.stack.At(Resolve(in.B))
	if err != nil {
		return err
	}
	result, err := binaryOp(in.Op, a, b)
	if err != nil {
		return err
	}
	return vm.stack.SetAt(Resolve(in.Out), result)
}

func binaryOp(op isa.Opcode, a, b isa.Value) (isa.Value, error) {
	if a.Kind == isa.ValueInteger && b.Kind == isa.ValueInteger {
		switch op {
		case isa.OpAdd:
			return isa.Integer(a.Int + b.Int), nil
		case isa.OpSub:
			return isa.Integer(a.Int - b.Int), nil
		case isa.OpMul:
			return isa.Integer(a.Int * b.Int), nil
		case isa.OpDiv:
			if b.Int == 0 {
				return isa.Value{}, fmt.Errorf("vm: division by zero")
			}
			return isa.Integer(a.Int / b.Int), nil
		case isa.OpRem:
			if b.Int == 0 {
				return isa.Value{}, fmt.Errorf("vm: division by zero")
			}
			return isa.Integer(a.Int % b.Int), nil
		case isa.OpLt:
			return isa.Bool(a.Int < b.Int), nil
		case isa.OpGt:
			return isa.Bool(a.Int > b.Int), nil
		case isa.OpLte:
			return isa.Bool(a.Int <= b.Int), nil
		case isa.OpGte:
			return isa.Bool(a.Int >= b.Int), nil
		case isa.OpBitAnd:
			return isa.Integer(a.Int & b.Int), nil
		case isa.OpBitOr:
			return isa.Integer(a.Int | b.Int), nil
		case isa.OpBitXor:
			return isa.Integer(a.Int ^ b.Int), nil
		case isa.OpShl:
			return isa.Integer(a.Int << uint(b.Int)), nil
		case isa.OpShr:
			return isa.Integer(a.Int >> uint(b.Int)), nil
		}
	}
	switch op {
	case isa.OpEq:
		return isa.Bool(isa.Equal(a, b)), nil
	case isa.OpNeq:
		return isa.Bool(!isa.Equal(a, b)), nil
	case isa.OpAnd:
		return isa.Bool(a.Truthy() && b.Truthy()), nil
	case isa.OpOr:
		return isa.Bool(a.Truthy() || b.Truthy()), nil
	}
	return isa.Value{}, fmt.Errorf("vm: unsupported binary op %s on %v/%v", op, a.Kind, b.Kind)
}

func (vm *VM) execUnary(in isa.Inst) error {
	v, err := vm.stack.At(Resolve(in.A))
	if err != nil {
		return err
	}
	switch in.Op {
	case isa.OpNot:
		return vm.stack.SetAt(Resolve(in.Out), isa.Bool(!v.Truthy()))
	case isa.OpNeg:
		switch v.Kind {
		case isa.ValueInteger:
			return vm.stack.SetAt(Resolve(in.Out), isa.Integer(-v.Int))
		case isa.ValueFloat:
			return vm.stack.SetAt(Resolve(in.Out), isa.Float(-v.Float))
		}
	}
	return fmt.Errorf("vm: unsupported unary op %s on %v", in.Op, v.Kind)
}

func (vm *VM) execAssign(in isa.Inst) error {
	src, err := vm.stack.At(Resolve(in.A))
	if err != nil {
		return err
	}
	if in.Target.Kind != isa.TargetAddress {
		return fmt.Errorf("%w: assign target kind %v", ErrUnsupported, in.Target.Kind)
	}
	dest := in.Target.Addr
	if in.AssignOp == isa.AssignSet {
		return vm.stack.SetAt(Resolve(dest), src)
	}
	current, err := vm.stack.At(Resolve(dest))
	if err != nil {
		return err
	}
	op := assignOpToBinary(in.AssignOp)
	result, err := binaryOp(op, current, src)
	if err != nil {
		return err
	}
	return vm.stack.SetAt(Resolve(dest), result)
}

func assignOpToBinary(op isa.InstAssignOp) isa.Opcode {
	switch op {
	case isa.AssignAdd:
		return isa.OpAdd
	case isa.AssignSub:
		return isa.OpSub
	case isa.AssignMul:
		return isa.OpMul
	case isa.AssignDiv:
		return isa.OpDiv
	case isa.AssignRem:
		return isa.OpRem
	case isa.AssignBitAnd:
		return isa.OpBitAnd
	case isa.AssignBitOr:
		return isa.OpBitOr
	case isa.AssignBitXor:
		return isa.OpBitXor
	case isa.AssignShl:
		return isa.OpShl
	case isa.AssignShr:
		return isa.OpShr
	default:
		return isa.OpAdd
	}
}

func (vm *VM) execTuple(in isa.Inst) error {
	n := tupleArity(in.Op, in.N)
	elems, err := vm.stack.SliceAt(Resolve(in.A), n)
	if err != nil {
		return err
	}
	cp := make([]isa.Value, n)
	copy(cp, elems)
	return vm.stack.SetAt(Resolve(in.Out), isa.Value{Kind: isa.ValueTuple, Tuple: cp})
}

func tupleArity(op isa.Opcode, n int) int {
	switch op {
	case isa.OpTuple1:
		return 1
	case isa.OpTuple2:
		return 2
	case isa.OpTuple3:
		return 3
	case isa.OpTuple4:
		return 4
	default:
		return n
	}
}

func (vm *VM) execVec(in isa.Inst) error {
	elems, err := vm.stack.SliceAt(Resolve(in.A), in.N)
	if err != nil {
		return err
	}
	cp := make([]isa.Value, in.N)
	copy(cp, elems)
	return vm.stack.SetAt(Resolve(in.Out), isa.Value{Kind: isa.ValueVec, Vec: cp})
}
