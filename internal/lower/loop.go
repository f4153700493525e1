package lower

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/internal/pattern"
)

// lowerFor implements spec.md §4.5 "For": convert the iterable via
// CallAssociated(INTO_ITER), then loop IterNext/destructure/body until
// IterNext reports exhaustion, dropping the iterator itself on every
// exit path (including break/return reached from inside the body).
func lowerFor(cx *cctx.Context, x *hir.For, needs asm.Needs) (Result, error) {
	scope := cx.Allocator.Child()

	run, err := cx.Allocator.NewLinear(1)
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Iterable, asm.NeedsLocal(run.Addr(0))); err != nil {
		return Result{}, err
	}
	iterAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpCallAssociated, Hash: isa.ProtocolIntoIter, B: run.Base, N: run.N, Out: iterAddr}, x.Span())

	continueLbl := cx.Asm.NewLabel("for_continue")
	breakLbl := cx.Asm.NewLabel("for_break")
	joinLbl := cx.Asm.NewLabel("for_join")

	loopIdx := cx.PushLoop(cctx.LoopFrame{
		Label: x.Label, ContinueLbl: continueLbl, BreakLbl: breakLbl, JoinLbl: joinLbl,
		Output: needs, HasOutput: needs.HasValue(),
		DropOnExit: iterAddr, HasDropOnExit: true,
	})

	if err := cx.Asm.PlaceLabel(continueLbl); err != nil {
		return Result{}, err
	}
	itemAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpIterNext, A: iterAddr, Out: itemAddr, Label: breakLbl}, x.Span())

	bindings, err := allocateBindings(cx, x.Pattern)
	if err != nil {
		return Result{}, err
	}
	load := func(needs asm.Needs) error {
		dest, copyNeeded := needs.AssignAddress(itemAddr)
		if copyNeeded {
			emitCopy(cx, dest, itemAddr, x.Pattern.Span())
		}
		return nil
	}
	falseLabel := cx.Asm.NewLabel("for_pattern_false")
	used, err := pattern.Lower(cx, x.Pattern, falseLabel, load, bindings)
	if err != nil {
		return Result{}, toPatternError(err, x.Pattern.Span())
	}
	if err := pattern.CheckExhaustive(bindings); err != nil {
		return Result{}, newError(ErrUnboundNames, x.Pattern.Span(), "%s", err.Error())
	}
	joinLabel := cx.Asm.NewLabel("for_pattern_join")
	if err := pattern.WithPanicGuard(cx, used, falseLabel, joinLabel, x.Pattern.Span()); err != nil {
		return Result{}, err
	}

	if _, err := LowerBlock(cx, x.Body, asm.NeedsDiscard()); err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpJump, Label: continueLbl}, x.Span())

	cx.PopLoop()
	_ = loopIdx

	if err := cx.Asm.PlaceLabel(breakLbl); err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpDrop, A: iterAddr}, x.Span())
	if needs.HasValue() {
		if _, err := unitResult(cx, needs, x.Span()); err != nil {
			return Result{}, err
		}
	}
	if err := cx.Asm.PlaceLabel(joinLbl); err != nil {
		return Result{}, err
	}

	if err := cx.Allocator.Pop(scope); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span()}, nil
}

// lowerLoop implements spec.md §4.5 "Loop": an unconditional `loop` has
// no Cond; a `while`-shaped Loop re-checks Cond each iteration, jumping
// to breakLbl when it turns false.
func lowerLoop(cx *cctx.Context, x *hir.Loop, needs asm.Needs) (Result, error) {
	scope := cx.Allocator.Child()

	continueLbl := cx.Asm.NewLabel("loop_continue")
	breakLbl := cx.Asm.NewLabel("loop_break")
	joinLbl := cx.Asm.NewLabel("loop_join")

	cx.PushLoop(cctx.LoopFrame{
		Label: x.Label, ContinueLbl: continueLbl, BreakLbl: breakLbl, JoinLbl: joinLbl,
		Output: needs, HasOutput: needs.HasValue(),
	})

	if err := cx.Asm.PlaceLabel(continueLbl); err != nil {
		return Result{}, err
	}
	if x.Cond != nil {
		condAddr, err := cx.Allocator.Alloc()
		if err != nil {
			return Result{}, err
		}
		if _, err := LowerExpr(cx, x.Cond, asm.NeedsLocal(condAddr)); err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: condAddr, Label: breakLbl}, x.Span())
	}
	if _, err := LowerBlock(cx, x.Body, asm.NeedsDiscard()); err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpJump, Label: continueLbl}, x.Span())

	cx.PopLoop()

	if err := cx.Asm.PlaceLabel(breakLbl); err != nil {
		return Result{}, err
	}
	if needs.HasValue() {
		if _, err := unitResult(cx, needs, x.Span()); err != nil {
			return Result{}, err
		}
	}
	if err := cx.Asm.PlaceLabel(joinLbl); err != nil {
		return Result{}, err
	}

	if err := cx.Allocator.Pop(scope); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span(), Diverges: x.Cond == nil}, nil
}

// lowerBreak drops every loop's owned iterator from the innermost loop
// out to (and including) the targeted one, writes Value (or unit, per
// the Open Question decision recorded in DESIGN.md: unit is written
// only when the target expects a value and Break carries none) into
// the target's output, then jumps to its join label — not its break
// label, which belongs to the loop's own exhaustion exit and still has
// to drop DropOnExit and default Output to unit for that path; reusing
// it here would drop the iterator twice and clobber the value just
// written with that default.
func lowerBreak(cx *cctx.Context, x *hir.Break) (Result, error) {
	idx, ok := cx.FindLoop(x.Label)
	if !ok {
		return Result{}, newError(ErrBreakOutsideOfLoop, x.Span(), "break outside of a loop")
	}
	target := cx.Loops[idx]

	for i := len(cx.Loops) - 1; i >= idx; i-- {
		if cx.Loops[i].HasDropOnExit {
			cx.Emit(isa.Inst{Op: isa.OpDrop, A: cx.Loops[i].DropOnExit}, x.Span())
		}
	}

	if target.HasOutput {
		out := target.Output
		if x.Value != nil {
			if _, err := LowerExpr(cx, x.Value, out); err != nil {
				return Result{}, err
			}
		} else if out.HasValue() {
			if _, err := unitResult(cx, out, x.Span()); err != nil {
				return Result{}, err
			}
		}
	} else if x.Value != nil {
		if _, err := LowerExpr(cx, x.Value, asm.NeedsDiscard()); err != nil {
			return Result{}, err
		}
	}

	cx.Emit(isa.Inst{Op: isa.OpJump, Label: target.JoinLbl}, x.Span())
	return Result{Span: x.Span(), Diverges: true}, nil
}

// lowerContinue drops every loop's owned iterator from the innermost
// loop out to (but not including, since the targeted loop keeps
// iterating) the targeted one, then jumps to its continue label.
func lowerContinue(cx *cctx.Context, x *hir.Continue) (Result, error) {
	idx, ok := cx.FindLoop(x.Label)
	if !ok {
		return Result{}, newError(ErrContinueOutsideOfLoop, x.Span(), "continue outside of a loop")
	}
	for i := len(cx.Loops) - 1; i > idx; i-- {
		if cx.Loops[i].HasDropOnExit {
			cx.Emit(isa.Inst{Op: isa.OpDrop, A: cx.Loops[i].DropOnExit}, x.Span())
		}
	}
	cx.Emit(isa.Inst{Op: isa.OpJump, Label: cx.Loops[idx].ContinueLbl}, x.Span())
	return Result{Span: x.Span(), Diverges: true}, nil
}

// lowerReturn drops every active loop's owned iterator (a return
// unwinds past all of them) before lowering Value and emitting Return.
func lowerReturn(cx *cctx.Context, x *hir.Return) (Result, error) {
	for i := len(cx.Loops) - 1; i >= 0; i-- {
		if cx.Loops[i].HasDropOnExit {
			cx.Emit(isa.Inst{Op: isa.OpDrop, A: cx.Loops[i].DropOnExit}, x.Span())
		}
	}
	if x.Value == nil {
		cx.Emit(isa.Inst{Op: isa.OpReturnUnit}, x.Span())
		return Result{Span: x.Span(), Diverges: true}, nil
	}
	addr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Value, asm.NeedsLocal(addr)); err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpReturn, A: addr}, x.Span())
	return Result{Span: x.Span(), Diverges: true}, nil
}
