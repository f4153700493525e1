package vm

import "fmt"

// StackError reports an out-of-bounds access at a single address.
//
// Grounded on original_source/stack.rs's OutOfBounds variant and the
// boundary check it performs: addr.offset() >= stack.len() - top.
type StackError struct {
	Addr int
}

func (e *StackError) Error() string {
	return fmt.Sprintf("vm: stack address %d out of bounds", e.Addr)
}

// SliceError reports an out-of-bounds contiguous-run access.
type SliceError struct {
	Addr, Len, StackLen int
}

func (e *SliceError) Error() string {
	return fmt.Sprintf("vm: slice at %d len %d out of bounds (stack len %d)", e.Addr, e.Len, e.StackLen)
}
