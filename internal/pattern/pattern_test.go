package pattern

import (
	"testing"

	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
)

func newCtx(t *testing.T) *cctx.Context {
	t.Helper()
	cx := cctx.New(isa.NewUnit(), &isa.Diagnostics{})
	cx.Allocator.Child()
	return cx
}

func TestLowerPatBindingWritesDirectlyNoExtraInstruction(t *testing.T) {
	cx := newCtx(t)
	dest, err := cx.Allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	bindings := map[string]asm.Needs{"x": asm.NeedsLocal(dest)}

	before := cx.Asm.Len()
	load := func(needs asm.Needs) error {
		addr, ok := needs.AsAddress()
		if !ok || addr != dest {
			t.Fatalf("load called with needs bound to %v, want %v", addr, dest)
		}
		return nil
	}
	used, err := Lower(cx, &hir.PatBinding{Name: "x"}, cx.Asm.NewLabel("unused"), load, bindings)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if used {
		t.Fatalf("PatBinding must be irrefutable (used=false)")
	}
	if cx.Asm.Len() != before {
		t.Fatalf("PatBinding must bind directly, emitted %d instructions", cx.Asm.Len()-before)
	}
	if _, ok := bindings["x"]; ok {
		t.Fatalf("bindings[\"x\"] should have been consumed")
	}
}

func TestLowerIgnoreStillLoadsForSideEffects(t *testing.T) {
	cx := newCtx(t)
	called := false
	load := func(needs asm.Needs) error {
		called = true
		if needs.HasValue() {
			t.Fatalf("Ignore must discard the scrutinee")
		}
		return nil
	}
	used, err := Lower(cx, &hir.Ignore{}, cx.Asm.NewLabel("unused"), load, map[string]asm.Needs{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if used {
		t.Fatalf("Ignore must be irrefutable")
	}
	if !called {
		t.Fatalf("Ignore must still invoke load so side effects run")
	}
}

func TestLowerLiteralEmitsEqAndGuard(t *testing.T) {
	cx := newCtx(t)
	// load just has to satisfy the Loader contract (write something into
	// whatever address the pattern allocates for the scrutinee); this
	// test only inspects the instructions Lower itself emits afterward.
	load := func(needs asm.Needs) error { return nil }
	falseLabel := cx.Asm.NewLabel("false")
	used, err := Lower(cx, &hir.PatLiteral{Value: &hir.Literal{Kind: hir.LitInteger, Int: 7}}, falseLabel, load, map[string]asm.Needs{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if !used {
		t.Fatalf("a literal pattern must be refutable (used=true)")
	}

	entries := cx.Asm.Entries()
	if len(entries) != 2 {
		t.Fatalf("want 2 instructions (eq + guard), got %d", len(entries))
	}
	if entries[0].Inst.Op != isa.OpEqInteger {
		t.Fatalf("entries[0].Op = %v, want OpEqInteger", entries[0].Inst.Op)
	}
	if entries[0].Inst.Int != 7 {
		t.Fatalf("entries[0].Int = %d, want 7", entries[0].Inst.Int)
	}
	if entries[1].Inst.Op != isa.OpJumpIfNot || entries[1].Inst.Label != falseLabel {
		t.Fatalf("entries[1] = %+v, want JumpIfNot to falseLabel", entries[1].Inst)
	}
}

func TestLowerSequenceEmptyTupleUsesIsUnit(t *testing.T) {
	cx := newCtx(t)
	load := func(needs asm.Needs) error { return nil }
	falseLabel := cx.Asm.NewLabel("false")
	used, err := Lower(cx, &hir.SequencePattern{Kind: hir.SeqTuple}, falseLabel, load, map[string]asm.Needs{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if !used {
		t.Fatalf("() pattern must still guard with IsUnit")
	}
	entries := cx.Asm.Entries()
	if len(entries) != 2 || entries[0].Inst.Op != isa.OpIsUnit || entries[1].Inst.Op != isa.OpJumpIfNot {
		t.Fatalf("unexpected instructions for (): %+v", entries)
	}
}

func TestLowerSequenceBindsElementsByIndex(t *testing.T) {
	cx := newCtx(t)
	xAddr, err := cx.Allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	yAddr, err := cx.Allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	bindings := map[string]asm.Needs{"x": asm.NeedsLocal(xAddr), "y": asm.NeedsLocal(yAddr)}

	load := func(needs asm.Needs) error { return nil }
	falseLabel := cx.Asm.NewLabel("false")
	pat := &hir.SequencePattern{
		Kind: hir.SeqTuple,
		Elems: []hir.Pattern{
			&hir.PatBinding{Name: "x"},
			&hir.PatBinding{Name: "y"},
		},
	}
	used, err := Lower(cx, pat, falseLabel, load, bindings)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if !used {
		t.Fatalf("a 2-tuple pattern must guard with a header check")
	}
	if err := CheckExhaustive(bindings); err != nil {
		t.Fatalf("CheckExhaustive: %v", err)
	}

	entries := cx.Asm.Entries()
	if entries[0].Inst.Op != isa.OpMatchSequence || entries[0].Inst.N != 2 {
		t.Fatalf("entries[0] = %+v, want OpMatchSequence N=2", entries[0].Inst)
	}
	var gotTupleIndexGets []int
	for _, e := range entries {
		if e.Inst.Op == isa.OpTupleIndexGet {
			gotTupleIndexGets = append(gotTupleIndexGets, e.Inst.N)
		}
	}
	if len(gotTupleIndexGets) != 2 || gotTupleIndexGets[0] != 0 || gotTupleIndexGets[1] != 1 {
		t.Fatalf("TupleIndexGet indices = %v, want [0 1]", gotTupleIndexGets)
	}
}

func TestLowerSequenceBuiltInVariantEmitsMatchBuiltIn(t *testing.T) {
	cx := newCtx(t)
	load := func(needs asm.Needs) error { return nil }
	falseLabel := cx.Asm.NewLabel("false")
	pat := &hir.SequencePattern{Kind: hir.SeqBuiltIn, Variant: 42}
	used, err := Lower(cx, pat, falseLabel, load, map[string]asm.Needs{})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if !used {
		t.Fatalf("a built-in variant pattern must guard with a header check")
	}
	entries := cx.Asm.Entries()
	if entries[0].Inst.Op != isa.OpMatchBuiltIn || entries[0].Inst.Hash != 42 {
		t.Fatalf("entries[0] = %+v, want OpMatchBuiltIn Hash=42", entries[0].Inst)
	}
}

func TestCheckExhaustiveDetectsUnboundNames(t *testing.T) {
	bindings := map[string]asm.Needs{"x": asm.NeedsDiscard(), "y": asm.NeedsDiscard()}
	err := CheckExhaustive(bindings)
	if err == nil {
		t.Fatalf("CheckExhaustive with leftover bindings: want error, got nil")
	}
	unbound, ok := err.(*ErrUnboundNames)
	if !ok {
		t.Fatalf("error type = %T, want *ErrUnboundNames", err)
	}
	if len(unbound.Names) != 2 {
		t.Fatalf("unbound.Names = %v, want 2 entries", unbound.Names)
	}
}

func TestCheckExhaustiveEmptyBindingsOK(t *testing.T) {
	if err := CheckExhaustive(map[string]asm.Needs{}); err != nil {
		t.Fatalf("CheckExhaustive(empty): %v", err)
	}
}

func TestWithPanicGuardSkippedWhenIrrefutable(t *testing.T) {
	cx := newCtx(t)
	falseLabel := cx.Asm.NewLabel("false")
	joinLabel := cx.Asm.NewLabel("join")
	before := cx.Asm.Len()
	if err := WithPanicGuard(cx, false, falseLabel, joinLabel, hir.Span{}); err != nil {
		t.Fatalf("WithPanicGuard: %v", err)
	}
	if cx.Asm.Len() != before {
		t.Fatalf("irrefutable pattern must not emit a panic guard")
	}
	if len(cx.Diag.Notes) != 0 {
		t.Fatalf("irrefutable pattern must not report a diagnostic")
	}
}

func TestWithPanicGuardEmitsPanicWhenRefutable(t *testing.T) {
	cx := newCtx(t)
	falseLabel := cx.Asm.NewLabel("false")
	joinLabel := cx.Asm.NewLabel("join")
	if err := WithPanicGuard(cx, true, falseLabel, joinLabel, hir.Span{}); err != nil {
		t.Fatalf("WithPanicGuard: %v", err)
	}
	if len(cx.Diag.Notes) != 1 {
		t.Fatalf("refutable let pattern must report a diagnostic, got %d notes", len(cx.Diag.Notes))
	}

	foundPanic := false
	for _, e := range cx.Asm.Entries() {
		if e.Inst.Op == isa.OpPanic && e.Inst.Reason == isa.PanicUnmatchedPattern {
			foundPanic = true
		}
	}
	if !foundPanic {
		t.Fatalf("refutable pattern must emit OpPanic(UnmatchedPattern) at falseLabel")
	}
	if err := cx.Asm.Finalize(); err != nil {
		t.Fatalf("Finalize: %v (falseLabel/joinLabel must both be placed)", err)
	}
}
