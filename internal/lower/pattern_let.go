package lower

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/internal/pattern"
)

// collectBindingNames walks pat recursively gathering every name a
// PatBinding sub-pattern may introduce.
func collectBindingNames(pat hir.Pattern) []string {
	switch p := pat.(type) {
	case *hir.PatBinding:
		return []string{p.Name}
	case *hir.SequencePattern:
		var names []string
		for _, e := range p.Elems {
			names = append(names, collectBindingNames(e)...)
		}
		return names
	case *hir.ObjectPattern:
		var names []string
		for _, f := range p.Fields {
			names = append(names, collectBindingNames(f.Pattern)...)
		}
		return names
	default:
		return nil
	}
}

// allocateBindings pre-allocates an address for every name pat may
// bind, defines it in the current scope, and returns the bindings map
// internal/pattern.Lower consumes.
func allocateBindings(cx *cctx.Context, pat hir.Pattern) (map[string]asm.Needs, error) {
	names := collectBindingNames(pat)
	bindings := make(map[string]asm.Needs, len(names))
	for _, name := range names {
		addr, err := cx.Allocator.Alloc()
		if err != nil {
			return nil, err
		}
		if err := cx.Allocator.Define(name, addr); err != nil {
			return nil, err
		}
		bindings[name] = asm.NeedsLocal(addr)
	}
	return bindings, nil
}

// lowerLet lowers `let <pattern> = <value>`, per spec.md §4.4's
// pattern_panic wrapper: irrefutable patterns (used==false) skip the
// diagnostic and panic entirely.
func lowerLet(cx *cctx.Context, s *hir.Let) (diverges bool, err error) {
	bindings, err := allocateBindings(cx, s.Pattern)
	if err != nil {
		return false, err
	}
	load := func(needs asm.Needs) error {
		_, err := LowerExpr(cx, s.Value, needs)
		return err
	}
	falseLabel := cx.Asm.NewLabel("let_false")
	joinLabel := cx.Asm.NewLabel("let_join")
	used, err := pattern.Lower(cx, s.Pattern, falseLabel, load, bindings)
	if err != nil {
		return false, toPatternError(err, s.Span())
	}
	if err := pattern.CheckExhaustive(bindings); err != nil {
		return false, newError(ErrUnboundNames, s.Span(), "%s", err.Error())
	}
	if err := pattern.WithPanicGuard(cx, used, falseLabel, joinLabel, s.Span()); err != nil {
		return false, err
	}
	return false, nil
}

func toPatternError(err error, span hir.Span) error {
	if _, ok := err.(*pattern.ErrUnboundNames); ok {
		return newError(ErrUnboundNames, span, "%s", err.Error())
	}
	return err
}

// lowerIf implements spec.md §4.3 "If": evaluate each branch's
// condition, jump to its body on success; if no fallback exists, write
// unit into the output address when all branches fall through.
func lowerIf(cx *cctx.Context, x *hir.If, needs asm.Needs) (Result, error) {
	end := cx.Asm.NewLabel("if_end")
	for _, br := range x.Branches {
		condAddr, err := cx.Allocator.Alloc()
		if err != nil {
			return Result{}, err
		}
		if _, err := LowerExpr(cx, br.Cond, asm.NeedsLocal(condAddr)); err != nil {
			return Result{}, err
		}
		next := cx.Asm.NewLabel("if_next")
		cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: condAddr, Label: next}, br.Cond.Span())
		if _, err := LowerBlock(cx, br.Body, needs); err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpJump, Label: end}, x.Span())
		if err := cx.Asm.PlaceLabel(next); err != nil {
			return Result{}, err
		}
	}
	if x.Else != nil {
		if _, err := LowerBlock(cx, x.Else, needs); err != nil {
			return Result{}, err
		}
	} else if needs.HasValue() {
		if _, err := unitResult(cx, needs, x.Span()); err != nil {
			return Result{}, err
		}
	}
	if err := cx.Asm.PlaceLabel(end); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span()}, nil
}

// lowerMatch implements spec.md §4.3 "Match": evaluate the scrutinee
// once, then for each arm open a pattern scope, match against a
// per-arm false label, optionally evaluate a guard, and jump to the
// next arm (or an UnmatchedPattern panic, on the last arm) on failure.
func lowerMatch(cx *cctx.Context, x *hir.Match, needs asm.Needs) (Result, error) {
	scrutAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Scrutinee, asm.NeedsLocal(scrutAddr)); err != nil {
		return Result{}, err
	}

	end := cx.Asm.NewLabel("match_end")
	noMatch := cx.Asm.NewLabel("match_none")

	for i, arm := range x.Arms {
		scope := cx.Allocator.Child()
		bindings, err := allocateBindings(cx, arm.Pattern)
		if err != nil {
			return Result{}, err
		}
		load := func(needs asm.Needs) error {
			dest, copyNeeded := needs.AssignAddress(scrutAddr)
			if copyNeeded {
				emitCopy(cx, dest, scrutAddr, arm.Pattern.Span())
			}
			return nil
		}
		falseLabel := cx.Asm.NewLabel("match_arm_false")
		if _, err := pattern.Lower(cx, arm.Pattern, falseLabel, load, bindings); err != nil {
			return Result{}, toPatternError(err, arm.Pattern.Span())
		}
		if err := pattern.CheckExhaustive(bindings); err != nil {
			return Result{}, newError(ErrUnboundNames, arm.Pattern.Span(), "%s", err.Error())
		}
		if arm.Guard != nil {
			guardAddr, err := cx.Allocator.Alloc()
			if err != nil {
				return Result{}, err
			}
			if _, err := LowerExpr(cx, arm.Guard, asm.NeedsLocal(guardAddr)); err != nil {
				return Result{}, err
			}
			cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: guardAddr, Label: falseLabel}, arm.Guard.Span())
		}
		if _, err := LowerExpr(cx, arm.Body, needs); err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpJump, Label: end}, arm.Body.Span())
		if err := cx.Allocator.Pop(scope); err != nil {
			return Result{}, err
		}
		if i == len(x.Arms)-1 {
			if err := cx.Asm.PlaceLabel(falseLabel); err != nil {
				return Result{}, err
			}
			cx.Emit(isa.Inst{Op: isa.OpJump, Label: noMatch}, x.Span())
		} else if err := cx.Asm.PlaceLabel(falseLabel); err != nil {
			return Result{}, err
		}
	}

	if err := cx.Asm.PlaceLabel(noMatch); err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpPanic, Reason: isa.PanicUnmatchedPattern}, x.Span())
	if err := cx.Asm.PlaceLabel(end); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span()}, nil
}
