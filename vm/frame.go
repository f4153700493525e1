package vm

import (
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/isa"
)

// Frame is one call-frame's bookkeeping: which instruction stream it is
// executing, its program counter, and the base pointer that created its
// stack "hole". Below the hole sits everything the caller already had
// on the stack; the hole itself is the callee's n local addresses;
// above it is the callee's own transient workspace. Unwinding a frame
// simply restores the stack to basePointer.
//
// Adapted from yourfavoritedev-golang-interpreter/vm/frame.go's
// Frame{cl, ip, basePointer}: that struct's stack-hole design is
// exactly spec.md §4.7's frame-relative addressing model, generalized
// here from "closure + bytecode object" to "raw instruction stream
// plus base pointer", since this module's executor runs directly over
// an assembled isa.Assembly rather than a boxed *object.CompiledFunction.
type Frame struct {
	Instructions []asm.Entry[isa.Inst]
	IP           int
	BasePointer  int
}

// NewFrame creates a new frame for the given instruction stream. ip
// starts at -1, matching the teacher's convention, because the
// fetch-execute loop increments ip immediately before dispatching the
// first instruction.
func NewFrame(instructions []asm.Entry[isa.Inst], basePointer int) *Frame {
	return &Frame{Instructions: instructions, IP: -1, BasePointer: basePointer}
}

// Resolve turns an asm.Address into the stack-relative int offset
// vm.Stack's API expects.
func Resolve(a asm.Address) int { return int(a) }
