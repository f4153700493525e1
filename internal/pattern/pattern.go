// Package pattern compiles nested literal, sequence, object, and
// variant patterns into a guarded sequence of type/shape checks plus
// field-extraction instructions, binding names to addresses the caller
// pre-allocated.
//
// Grounded directly on spec.md §4.4; the teacher has no pattern
// matching of its own (Monkey has none), so the recursive
// "load scrutinee, emit header check, recurse per field" shape instead
// follows the same recursive type-switch idiom
// yourfavoritedev-golang-interpreter/compiler/compiler.go uses for
// expression lowering.
package pattern

import (
	"fmt"

	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
)

// Loader writes the scrutinee's current value into needs; it is called
// lazily so that patterns which never inspect the value (Ignore) still
// let side effects run exactly once, and patterns that bind directly
// (PatBinding) write straight into the binding's address without an
// intermediate copy.
type Loader func(needs asm.Needs) error

// ErrUnboundNames is returned when bindings still holds entries after a
// pattern's dispatch: a binder whose name was not consumed by any
// sub-pattern was declared but never matched.
type ErrUnboundNames struct {
	Names []string
}

func (e *ErrUnboundNames) Error() string {
	return fmt.Sprintf("pattern declares unbound names: %v", e.Names)
}

// Lower compiles pat against a scrutinee obtained via load, branching to
// falseLabel on a failed match. bindings maps each name pat may
// introduce to its pre-allocated destination; entries are removed as
// patterns bind them. The returned used flag is true iff the pattern
// can fail at runtime (i.e. it emitted at least one guard), which the
// caller used to decide whether a pattern_panic wrapper is needed.
func Lower(cx *cctx.Context, pat hir.Pattern, falseLabel *asm.Label, load Loader, bindings map[string]asm.Needs) (used bool, err error) {
	switch p := pat.(type) {
	case *hir.Ignore:
		return false, load(asm.NeedsDiscard())

	case *hir.PatBinding:
		needs, ok := bindings[p.Name]
		if !ok {
			needs = asm.NeedsDiscard()
		} else {
			delete(bindings, p.Name)
		}
		return false, load(needs)

	case *hir.PatLiteral:
		return lowerLiteral(cx, p, falseLabel, load)

	case *hir.SequencePattern:
		return lowerSequence(cx, p, falseLabel, load, bindings)

	case *hir.ObjectPattern:
		return lowerObject(cx, p, falseLabel, load, bindings)
	}
	return false, fmt.Errorf("pattern: unsupported pattern kind %T", pat)
}

// CheckExhaustive fails with ErrUnboundNames if bindings still has
// entries after Lower dispatched on the top-level pattern (and,
// transitively, all its sub-patterns).
func CheckExhaustive(bindings map[string]asm.Needs) error {
	if len(bindings) == 0 {
		return nil
	}
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	return &ErrUnboundNames{Names: names}
}

func transient(cx *cctx.Context) (asm.Address, error) {
	return cx.Allocator.Alloc()
}

func eqOpcodeFor(kind hir.LitKind) (isa.Opcode, bool) {
	switch kind {
	case hir.LitByte:
		return isa.OpEqByte, true
	case hir.LitChar:
		return isa.OpEqChar, true
	case hir.LitString:
		return isa.OpEqString, true
	case hir.LitByteString:
		return isa.OpEqBytes, true
	case hir.LitInteger:
		return isa.OpEqInteger, true
	case hir.LitBool:
		return isa.OpEqBool, true
	default:
		return 0, false
	}
}

func lowerLiteral(cx *cctx.Context, p *hir.PatLiteral, falseLabel *asm.Label, load Loader) (bool, error) {
	scrut, err := transient(cx)
	if err != nil {
		return false, err
	}
	if err := load(asm.NeedsLocal(scrut)); err != nil {
		return false, err
	}
	op, ok := eqOpcodeFor(p.Value.Kind)
	if !ok {
		return false, fmt.Errorf("pattern: unsupported literal kind %v", p.Value.Kind)
	}
	cond, err := cx.Allocator.Alloc()
	if err != nil {
		return false, err
	}
	inst := isa.Inst{Op: op, A: scrut, Out: cond}
	switch p.Value.Kind {
	case hir.LitByte:
		inst.Byte = p.Value.Byte
	case hir.LitChar:
		inst.Char = p.Value.Char
	case hir.LitString:
		inst.Slot = cx.Unit.NewStaticString(p.Value.Str)
	case hir.LitByteString:
		inst.Slot = cx.Unit.NewStaticBytes(p.Value.Byts)
	case hir.LitInteger:
		inst.Int = p.Value.Int
	case hir.LitBool:
		inst.Bool = p.Value.Bool
	}
	cx.Emit(inst, p.Span())
	cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: cond, Label: falseLabel}, p.Span())
	return true, nil
}

func headerOpcode(kind hir.SeqKind, isObject bool) isa.Opcode {
	if isObject {
		switch kind {
		case hir.SeqVariant:
			return isa.OpMatchVariant
		case hir.SeqBuiltIn:
			return isa.OpMatchBuiltIn
		default:
			return isa.OpMatchObject
		}
	}
	switch kind {
	case hir.SeqVariant:
		return isa.OpMatchVariant
	case hir.SeqType:
		return isa.OpMatchType
	case hir.SeqBuiltIn:
		return isa.OpMatchBuiltIn
	default:
		return isa.OpMatchSequence
	}
}

func lowerSequence(cx *cctx.Context, p *hir.SequencePattern, falseLabel *asm.Label, load Loader, bindings map[string]asm.Needs) (bool, error) {
	scrut, err := transient(cx)
	if err != nil {
		return false, err
	}
	if err := load(asm.NeedsLocal(scrut)); err != nil {
		return false, err
	}

	if len(p.Elems) == 0 && p.Kind == hir.SeqTuple {
		cx.Emit(isa.Inst{Op: isa.OpIsUnit, A: scrut, Out: scrut}, p.Span())
		cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: scrut, Label: falseLabel}, p.Span())
		return true, nil
	}

	cond, err := cx.Allocator.Alloc()
	if err != nil {
		return false, err
	}
	cx.Emit(isa.Inst{
		Op: headerOpcode(p.Kind, false), A: scrut, Out: cond, N: len(p.Elems), Hash: p.Variant,
	}, p.Span())
	cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: cond, Label: falseLabel}, p.Span())

	used := true
	for i, sub := range p.Elems {
		idx := i
		childLoad := func(needs asm.Needs) error {
			addr, err := needs.AllocOutput(cx.Allocator)
			if err != nil {
				return err
			}
			cx.Emit(isa.Inst{Op: isa.OpTupleIndexGet, A: scrut, N: idx, Out: addr}, sub.Span())
			return nil
		}
		subUsed, err := Lower(cx, sub, falseLabel, childLoad, bindings)
		if err != nil {
			return false, err
		}
		used = used || subUsed
	}
	return used, nil
}

func lowerObject(cx *cctx.Context, p *hir.ObjectPattern, falseLabel *asm.Label, load Loader, bindings map[string]asm.Needs) (bool, error) {
	scrut, err := transient(cx)
	if err != nil {
		return false, err
	}
	if err := load(asm.NeedsLocal(scrut)); err != nil {
		return false, err
	}

	keys := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		keys[i] = f.Key
	}
	slot := cx.Unit.NewStaticObjectKeysIter(keys)

	cond, err := cx.Allocator.Alloc()
	if err != nil {
		return false, err
	}
	cx.Emit(isa.Inst{
		Op: headerOpcode(p.Kind, true), A: scrut, Out: cond, Slot: slot, Hash: p.Variant,
	}, p.Span())
	cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: cond, Label: falseLabel}, p.Span())

	used := true
	for _, f := range p.Fields {
		fieldSlot := cx.Unit.NewStaticString(f.Key)
		childLoad := func(needs asm.Needs) error {
			addr, err := needs.AllocOutput(cx.Allocator)
			if err != nil {
				return err
			}
			cx.Emit(isa.Inst{Op: isa.OpObjectIndexGet, A: scrut, Slot: fieldSlot, Out: addr}, f.Pattern.Span())
			return nil
		}
		subUsed, err := Lower(cx, f.Pattern, falseLabel, childLoad, bindings)
		if err != nil {
			return false, err
		}
		used = used || subUsed
	}
	return used, nil
}

// WithPanicGuard wraps a pattern lowering (already emitted by Lower) so
// that if the pattern is refutable (used==true) an UnmatchedPattern
// panic fires at falseLabel, after the success path jumps past it via
// joinLabel. Irrefutable patterns (used==false, e.g. a plain `let x =`)
// skip this: both labels are placed at the current position, with no
// diagnostic and no jump or panic instruction.
func WithPanicGuard(cx *cctx.Context, used bool, falseLabel, joinLabel *asm.Label, span hir.Span) error {
	if !used {
		if err := cx.Asm.PlaceLabel(falseLabel); err != nil {
			return err
		}
		return cx.Asm.PlaceLabel(joinLabel)
	}
	cx.Diag.Report(span, "let pattern might panic")
	cx.Emit(isa.Inst{Op: isa.OpJump, Label: joinLabel}, span)
	if err := cx.Asm.PlaceLabel(falseLabel); err != nil {
		return err
	}
	cx.Emit(isa.Inst{Op: isa.OpPanic, Reason: isa.PanicUnmatchedPattern}, span)
	return cx.Asm.PlaceLabel(joinLabel)
}
