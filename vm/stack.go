// Package vm is the runtime collaborator on the other side of every
// address internal/lower emits: a growable slab of values addressed
// frame-relatively, plus the call-frame bookkeeping that gives each
// function invocation its own "hole" of the slab.
//
// Grounded on yourfavoritedev-golang-interpreter/vm/frame.go (the
// basePointer-creates-a-stack-hole design is exactly spec.md §4.7's
// frame-relative model) and vm/vm.go's StackSize/push-pop discipline;
// the boundary arithmetic is additionally cross-checked against
// original_source/stack.rs's `addr.offset() >= len - top` check.
package vm

import "github.com/VorpalBlade/rune/internal/isa"

// DefaultStackSize mirrors yourfavoritedev's vm.StackSize constant; a
// growable slice replaces the teacher's fixed array since this backend
// has no static upper bound on frame depth/width analogous to Monkey's.
const DefaultStackSize = 2048

// Stack is the contiguous sequence of runtime values plus a top cursor
// indicating the base of the current call frame. All addressing is
// top + offset. Invariant: top <= len(values); an address of the
// current frame is valid iff top+offset < len(values).
type Stack struct {
	values []isa.Value
	top    int
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{values: make([]isa.Value, 0, DefaultStackSize)}
}

// Len returns the total number of values currently held (not just the
// current frame's).
func (s *Stack) Len() int { return len(s.values) }

// Top returns the current frame's base offset into the slab.
func (s *Stack) Top() int { return s.top }

func (s *Stack) inBounds(offset int) bool {
	return offset >= 0 && s.top+offset < len(s.values)
}

// At returns the value at a frame-relative address.
func (s *Stack) At(addr int) (isa.Value, error) {
	if !s.inBounds(addr) {
		return isa.Value{}, &StackError{Addr: addr}
	}
	return s.values[s.top+addr], nil
}

// SetAt writes v at a frame-relative address.
func (s *Stack) SetAt(addr int, v isa.Value) error {
	if !s.inBounds(addr) {
		return &StackError{Addr: addr}
	}
	s.values[s.top+addr] = v
	return nil
}

// SliceAt returns a contiguous view of n values starting at addr. When
// n == 0 it returns an empty view regardless of addr (even if addr
// itself would be out of bounds); otherwise it fails with SliceError on
// out-of-bounds.
func (s *Stack) SliceAt(addr, n int) ([]isa.Value, error) {
	if n == 0 {
		return nil, nil
	}
	if addr < 0 || s.top+addr+n > len(s.values) {
		return nil, &SliceError{Addr: addr, Len: n, StackLen: len(s.values)}
	}
	return s.values[s.top+addr : s.top+addr+n], nil
}

// ArrayAt is SliceAt with a compile-time-known arity n; semantics are
// identical to SliceAt, kept as a distinct entry point to mirror
// spec.md's array_at::<N> contract for callers that want a fixed-size
// result.
func (s *Stack) ArrayAt(addr, n int) ([]isa.Value, error) {
	return s.SliceAt(addr, n)
}

// Swap exchanges the values at two frame-relative addresses; a no-op
// when a == b (per spec.md's testable property).
func (s *Stack) Swap(a, b int) error {
	if a == b {
		return nil
	}
	va, err := s.At(a)
	if err != nil {
		return err
	}
	vb, err := s.At(b)
	if err != nil {
		return err
	}
	_ = s.SetAt(a, vb)
	_ = s.SetAt(b, va)
	return nil
}

// Resize grows the current frame so that addresses 0..n are reserved
// and initialized to the unit value.
func (s *Stack) Resize(n int) {
	needed := s.top + n
	for len(s.values) < needed {
		s.values = append(s.values, isa.Unit())
	}
}

// Clear drops every value down to top (supplementary operation carried
// from original_source/stack.rs's clear()).
func (s *Stack) Clear() {
	s.values = s.values[:s.top]
}

// SwapTop establishes a new call frame at the end of the slab, copying
// the len values at top+addr in the caller's frame into it, and returns
// the caller's old top so PopStackTop can restore it.
//
// Invariant: top+addr+len <= len(values).
func (s *Stack) SwapTop(addr, length int) (oldTop int, err error) {
	if addr < 0 || s.top+addr+length > len(s.values) {
		return 0, &SliceError{Addr: addr, Len: length, StackLen: len(s.values)}
	}
	src := s.values[s.top+addr : s.top+addr+length]
	callee := make([]isa.Value, length)
	copy(callee, src)

	oldTop = s.top
	s.top = len(s.values)
	s.values = append(s.values, callee...)
	return oldTop, nil
}

// PopStackTop discards the callee's frame by truncating the slab to the
// current top and restores top to oldTop, the caller's frame. It is the
// left inverse of a preceding SwapTop.
func (s *Stack) PopStackTop(oldTop int) error {
	if len(s.values) < s.top {
		return &StackError{Addr: s.top}
	}
	s.values = s.values[:s.top]
	s.top = oldTop
	return nil
}
