// Package cctx holds the compilation context shared between
// internal/lower and internal/pattern so neither package has to import
// the other: both lower arbitrary code against the same allocator,
// assembly buffer, and metadata unit, and pattern obtains each
// scrutinee through a Loader callback the lower package supplies rather
// than by a direct pattern->lower import (match guards are lowered by
// the lower package itself).
package cctx

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/isa"
)

// LoopFrame records one enclosing loop's bookkeeping (spec.md's "Loop
// record"): its optional label, continue/break labels, the address its
// value (if any) should be written to, and the address of any
// drop-on-exit resource (e.g. an iterator) it is responsible for.
type LoopFrame struct {
	Label       hir.LoopLabel
	ContinueLbl *asm.Label
	// BreakLbl is the loop's own exhaustion exit (cond turned false, or
	// the iterator ran out): it still owns dropping DropOnExit and
	// defaulting Output to unit. JoinLbl is where an explicit `break`
	// jumps instead, since lowerBreak already drops every intervening
	// loop's resource itself and has already written its own value (or
	// unit) into Output; joining at BreakLbl would drop DropOnExit
	// again and clobber that value with BreakLbl's default unit write.
	BreakLbl      *asm.Label
	JoinLbl       *asm.Label
	Output        asm.Needs
	HasOutput     bool
	DropOnExit    asm.Address
	HasDropOnExit bool
}

// Context is the single mutable compilation state threaded through
// expression and pattern lowering for one function body.
type Context struct {
	Allocator *asm.Allocator
	Asm       *asm.Assembly[isa.Inst]
	Unit      *isa.Unit
	Diag      *isa.Diagnostics

	Loops []LoopFrame
}

// New creates a fresh per-function compilation context.
func New(unit *isa.Unit, diag *isa.Diagnostics) *Context {
	return &Context{
		Allocator: asm.NewAllocator(),
		Asm:       asm.New[isa.Inst](),
		Unit:      unit,
		Diag:      diag,
	}
}

// Emit appends inst with span and returns its position.
func (c *Context) Emit(inst isa.Inst, span hir.Span) int {
	return c.Asm.Push(inst, span)
}

// PushLoop opens a new loop record, returning its index for PopLoop.
func (c *Context) PushLoop(f LoopFrame) int {
	c.Loops = append(c.Loops, f)
	return len(c.Loops) - 1
}

// PopLoop discards the innermost loop record.
func (c *Context) PopLoop() {
	c.Loops = c.Loops[:len(c.Loops)-1]
}

// FindLoop walks the loop stack from innermost to outermost looking for
// label (or the innermost loop, when label.Set is false).
func (c *Context) FindLoop(label hir.LoopLabel) (int, bool) {
	if !label.Set {
		if len(c.Loops) == 0 {
			return 0, false
		}
		return len(c.Loops) - 1, true
	}
	for i := len(c.Loops) - 1; i >= 0; i-- {
		if c.Loops[i].Label.Set && c.Loops[i].Label.Name == label.Name {
			return i, true
		}
	}
	return 0, false
}
