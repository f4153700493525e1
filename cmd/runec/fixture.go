// Package main is runec, the command-line front end over internal/lower
// and vm: since parsing and name resolution that produce hir.Expr trees
// are out of scope for this module (spec.md §1), the asm, run and debug
// subcommands drive a hand-built HIR fixture rather than a textual front
// end, and repl parses only a small integer-arithmetic language
// (exprparse.go), exercising the same lowering and execution path a real
// compiler driver would.
//
// Grounded on informatter-nilan/main.go and cmd_repl.go/cmd_run.go's
// google/subcommands wiring.
package main

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/internal/lower"
)

// Every node below leaves its Span zero-valued: the fixtures are built
// directly rather than parsed, so there is no source text to point
// diagnostics at.
func intLit(v int64) *hir.Literal {
	return &hir.Literal{Kind: hir.LitInteger, Int: v}
}

// buildFixture constructs the body of:
//
//	let x = 1 + 2 * 3;
//	let mut total = x;
//	let mut i = 0;
//	while i < 4 {
//	    total = total + i;
//	    i = i + 1;
//	}
//	total
//
// as an hir.Block, the same shape as spec.md §8's "arithmetic + loop"
// end-to-end scenario; `while` is Loop with a non-nil Cond.
func buildFixture() *hir.Block {
	xValue := &hir.Binary{
		Op:   hir.OpAdd,
		Left: intLit(1),
		Right: &hir.Binary{
			Op:    hir.OpMul,
			Left:  intLit(2),
			Right: intLit(3),
		},
	}
	letX := &hir.Let{Pattern: &hir.PatBinding{Name: "x"}, Value: xValue}
	letTotal := &hir.Let{
		Pattern: &hir.PatBinding{Name: "total"},
		Value:   &hir.Variable{Name: "x"},
	}
	letI := &hir.Let{
		Pattern: &hir.PatBinding{Name: "i"},
		Value:   intLit(0),
	}

	loop := &hir.Loop{
		Cond: &hir.Binary{
			Op:    hir.OpLt,
			Left:  &hir.Variable{Name: "i"},
			Right: intLit(4),
		},
		Body: &hir.Block{
			Stmts: []hir.Stmt{
				&hir.ExprStmt{X: &hir.Assign{
					Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "total"},
					Value: &hir.Binary{
						Op:    hir.OpAdd,
						Left:  &hir.Variable{Name: "total"},
						Right: &hir.Variable{Name: "i"},
					},
				}},
				&hir.ExprStmt{X: &hir.Assign{
					Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "i"},
					Value: &hir.Binary{
						Op:    hir.OpAdd,
						Left:  &hir.Variable{Name: "i"},
						Right: intLit(1),
					},
				}},
			},
		},
	}

	return &hir.Block{
		Stmts: []hir.Stmt{letX, letTotal, letI, &hir.ExprStmt{X: loop}},
		Tail:  &hir.Variable{Name: "total"},
	}
}

// fixture bundles a lowered program with what its caller needs to run
// it: the finalized instructions, the frame size to reserve on the
// stack before execution, and the metadata/diagnostics it was lowered
// against.
type fixture struct {
	Asm       *asm.Assembly[isa.Inst]
	FrameSize int
	Unit      *isa.Unit
	Diag      *isa.Diagnostics
}

// lowerFixture lowers buildFixture's body in a fresh function scope.
func lowerFixture() (*fixture, error) {
	unit := isa.NewUnit()
	diag := &isa.Diagnostics{}
	cx := cctx.New(unit, diag)

	scope := cx.Allocator.Child()
	out, err := cx.Allocator.Alloc()
	if err != nil {
		return nil, err
	}
	body := buildFixture()
	if _, err := lower.LowerBlock(cx, body, asm.NeedsLocal(out)); err != nil {
		return nil, err
	}
	// No trailing OpReturn: this fixture is the outermost frame run
	// directly by vm.New, not a callee frame unwound back to a caller,
	// so its result is read straight off the stack at out's address
	// once the instruction stream runs off the end.
	frameSize := cx.Allocator.FrameSize()
	if err := cx.Allocator.Pop(scope); err != nil {
		return nil, err
	}
	if err := cx.Asm.Finalize(); err != nil {
		return nil, err
	}
	return &fixture{Asm: cx.Asm, FrameSize: frameSize, Unit: unit, Diag: diag}, nil
}

// lowerExprOnce lowers a single freestanding expression (e.g. one typed
// into the repl) the same way lowerFixture lowers the built-in program,
// for callers that only need a one-shot value rather than a whole block.
func lowerExprOnce(e hir.Expr) (*fixture, error) {
	unit := isa.NewUnit()
	diag := &isa.Diagnostics{}
	cx := cctx.New(unit, diag)

	scope := cx.Allocator.Child()
	out, err := cx.Allocator.Alloc()
	if err != nil {
		return nil, err
	}
	if _, err := lower.LowerExpr(cx, e, asm.NeedsLocal(out)); err != nil {
		return nil, err
	}
	frameSize := cx.Allocator.FrameSize()
	if err := cx.Allocator.Pop(scope); err != nil {
		return nil, err
	}
	if err := cx.Asm.Finalize(); err != nil {
		return nil, err
	}
	return &fixture{Asm: cx.Asm, FrameSize: frameSize, Unit: unit, Diag: diag}, nil
}
