// Package asm implements the register/address code generator's leaf
// machinery: frame-relative addresses, the scope tree that allocates
// and reclaims them, linear (contiguous) runs, the needs sink, and the
// append-only assembly buffer with its label table.
//
// Grounded on yourfavoritedev-golang-interpreter/compiler/compiler.go's
// CompilationScope/enterScope/leaveScope/emit/changeOperand machinery
// (the nested-scope, backpatched-jump idiom) and on
// dr8co-kong/compiler/symbol_table.go's complete scope-chain (Outer
// pointer, Define/Resolve, free-variable promotion), since the
// teacher's own retrieved symbol_table.go snapshot predates the scope
// kinds its compiler.go already references.
package asm

import "fmt"

// Address is a non-negative frame-relative offset. InvalidAddress is a
// safe placeholder used where no address has been computed yet.
type Address int

const InvalidAddress Address = -1

// Zero is the frame-base address.
const Zero Address = 0

func (a Address) Valid() bool { return a >= 0 }

func (a Address) String() string {
	if !a.Valid() {
		return "<invalid>"
	}
	return fmt.Sprintf("@%d", int(a))
}

// Linear is a scope-owned contiguous block of addresses, used by call
// arguments, tuple/vec construction, and pattern fan-out.
type Linear struct {
	Base Address
	N    int
}

// Addr returns the address of the i'th slot in the run.
func (l Linear) Addr(i int) Address {
	if l.N == 0 {
		return InvalidAddress
	}
	return l.Base + Address(i)
}

// Empty reports whether the run holds zero addresses.
func (l Linear) Empty() bool { return l.N == 0 }

// SwapPair names two positions within a Linear run that must be
// exchanged.
type SwapPair struct{ I, J int }

// Reorder computes the swap sequence that permutes current into the
// order desired describes (both name the same multiset of field names
// exactly once). Used when struct/variant construction lowers named
// arguments into a linear run but the constructor expects a different
// declared order (spec.md §4.3 "Struct/variant construction... emit a
// swap-sort so positions match the constructor's declared argument
// order"). The caller emits one Swap instruction per returned pair, in
// order.
func Reorder(current, desired []string) []SwapPair {
	pos := make([]string, len(current))
	copy(pos, current)
	index := make(map[string]int, len(pos))
	for i, name := range pos {
		index[name] = i
	}
	var swaps []SwapPair
	for i, want := range desired {
		if pos[i] == want {
			continue
		}
		j := index[want]
		pos[i], pos[j] = pos[j], pos[i]
		index[pos[i]] = i
		index[pos[j]] = j
		swaps = append(swaps, SwapPair{I: i, J: j})
	}
	return swaps
}
