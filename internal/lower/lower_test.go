package lower_test

import (
	"testing"

	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/internal/lower"
	"github.com/VorpalBlade/rune/vm"
)

// runExpr lowers e as a standalone expression and executes it,
// returning the value left at the output address.
func runExpr(t *testing.T, e hir.Expr) isa.Value {
	t.Helper()

	cx := cctx.New(isa.NewUnit(), &isa.Diagnostics{})
	scope := cx.Allocator.Child()
	out, err := cx.Allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := lower.LowerExpr(cx, e, asm.NeedsLocal(out)); err != nil {
		t.Fatalf("LowerExpr: %v", err)
	}
	frameSize := cx.Allocator.FrameSize()
	if err := cx.Allocator.Pop(scope); err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if err := cx.Asm.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	machine := vm.New(cx.Asm.Entries(), cx.Unit)
	machine.Stack().Resize(frameSize)
	if err := machine.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, err := machine.Stack().At(int(out))
	if err != nil {
		t.Fatalf("At(out): %v", err)
	}
	return v
}

func intLit(v int64) *hir.Literal { return &hir.Literal{Kind: hir.LitInteger, Int: v} }

func TestArithmeticPrecedence(t *testing.T) {
	// 1 + 2 * 3 == 7
	e := &hir.Binary{
		Op:   hir.OpAdd,
		Left: intLit(1),
		Right: &hir.Binary{
			Op:    hir.OpMul,
			Left:  intLit(2),
			Right: intLit(3),
		},
	}
	got := runExpr(t, e)
	if got.Kind != isa.ValueInteger || got.Int != 7 {
		t.Fatalf("1 + 2 * 3 = %v, want Integer(7)", got)
	}
}

func TestIfElseTakesTruthyBranch(t *testing.T) {
	e := &hir.If{
		Branches: []hir.IfBranch{{
			Cond: &hir.Literal{Kind: hir.LitBool, Bool: false},
			Body: &hir.Block{Tail: intLit(1)},
		}},
		Else: &hir.Block{Tail: intLit(2)},
	}
	got := runExpr(t, e)
	if got.Int != 2 {
		t.Fatalf("if false {1} else {2} = %v, want Integer(2)", got)
	}
}

func TestIfFirstTruthyBranchWins(t *testing.T) {
	e := &hir.If{
		Branches: []hir.IfBranch{
			{Cond: &hir.Literal{Kind: hir.LitBool, Bool: false}, Body: &hir.Block{Tail: intLit(1)}},
			{Cond: &hir.Literal{Kind: hir.LitBool, Bool: true}, Body: &hir.Block{Tail: intLit(2)}},
			{Cond: &hir.Literal{Kind: hir.LitBool, Bool: true}, Body: &hir.Block{Tail: intLit(3)}},
		},
		Else: &hir.Block{Tail: intLit(4)},
	}
	got := runExpr(t, e)
	if got.Int != 2 {
		t.Fatalf("first-truthy-branch if = %v, want Integer(2)", got)
	}
}

func TestLetBindingAndAssignment(t *testing.T) {
	// { let mut total = 0; total += 5; total += 10; total }
	body := &hir.Block{
		Stmts: []hir.Stmt{
			&hir.Let{Pattern: &hir.PatBinding{Name: "total"}, Value: intLit(0)},
			&hir.ExprStmt{X: &hir.Assign{
				Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "total"},
				Value: &hir.Binary{
					Op:    hir.OpAdd,
					Left:  &hir.Variable{Name: "total"},
					Right: intLit(5),
				},
			}},
			&hir.ExprStmt{X: &hir.Assign{
				Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "total"},
				Value: &hir.Binary{
					Op:    hir.OpAdd,
					Left:  &hir.Variable{Name: "total"},
					Right: intLit(10),
				},
			}},
		},
		Tail: &hir.Variable{Name: "total"},
	}
	got := runExpr(t, body)
	if got.Int != 15 {
		t.Fatalf("total after += 5, += 10 = %v, want Integer(15)", got)
	}
}

func TestWhileLoopAccumulates(t *testing.T) {
	// { let mut total = 0; let mut i = 0;
	//   while i < 4 { total += i; i += 1; }
	//   total }
	// sum of 0..3 == 6
	body := &hir.Block{
		Stmts: []hir.Stmt{
			&hir.Let{Pattern: &hir.PatBinding{Name: "total"}, Value: intLit(0)},
			&hir.Let{Pattern: &hir.PatBinding{Name: "i"}, Value: intLit(0)},
			&hir.ExprStmt{X: &hir.Loop{
				Cond: &hir.Binary{Op: hir.OpLt, Left: &hir.Variable{Name: "i"}, Right: intLit(4)},
				Body: &hir.Block{
					Stmts: []hir.Stmt{
						&hir.ExprStmt{X: &hir.Assign{
							Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "total"},
							Value: &hir.Binary{
								Op: hir.OpAdd, Left: &hir.Variable{Name: "total"}, Right: &hir.Variable{Name: "i"},
							},
						}},
						&hir.ExprStmt{X: &hir.Assign{
							Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "i"},
							Value: &hir.Binary{
								Op: hir.OpAdd, Left: &hir.Variable{Name: "i"}, Right: intLit(1),
							},
						}},
					},
				},
			}},
		},
		Tail: &hir.Variable{Name: "total"},
	}
	got := runExpr(t, body)
	if got.Int != 6 {
		t.Fatalf("sum of 0..3 via while = %v, want Integer(6)", got)
	}
}

func TestBreakWithValueFromLoop(t *testing.T) {
	// loop { break 99; } as an expression should evaluate to 99.
	e := &hir.Loop{
		Body: &hir.Block{
			Tail: &hir.Break{Value: intLit(99)},
		},
	}
	got := runExpr(t, e)
	if got.Int != 99 {
		t.Fatalf("loop { break 99; } = %v, want Integer(99)", got)
	}
}

func TestBreakWithValueFromWhileLoop(t *testing.T) {
	// let mut i = 0; while i < 10 { if i == 3 { break i * 100; } i += 1; }
	// must evaluate to 300, not the loop's default unit exit value: a
	// break reached while the condition is still true shares the same
	// loop epilogue as the cond-false exit, so a regression here would
	// have the cond-false path's default unit write clobber it.
	body := &hir.Block{
		Stmts: []hir.Stmt{
			&hir.Let{Pattern: &hir.PatBinding{Name: "i"}, Value: intLit(0)},
		},
		Tail: &hir.Loop{
			Cond: &hir.Binary{Op: hir.OpLt, Left: &hir.Variable{Name: "i"}, Right: intLit(10)},
			Body: &hir.Block{
				Stmts: []hir.Stmt{
					&hir.ExprStmt{X: &hir.If{
						Branches: []hir.IfBranch{{
							Cond: &hir.Binary{Op: hir.OpEq, Left: &hir.Variable{Name: "i"}, Right: intLit(3)},
							Body: &hir.Block{
								Stmts: []hir.Stmt{&hir.ExprStmt{X: &hir.Break{
									Value: &hir.Binary{Op: hir.OpMul, Left: &hir.Variable{Name: "i"}, Right: intLit(100)},
								}}},
							},
						}},
					}},
					&hir.ExprStmt{X: &hir.Assign{
						Target: hir.AssignTarget{Kind: hir.TargetVariable, Name: "i"},
						Value:  &hir.Binary{Op: hir.OpAdd, Left: &hir.Variable{Name: "i"}, Right: intLit(1)},
					}},
				},
			},
		},
	}
	got := runExpr(t, body)
	if got.Int != 300 {
		t.Fatalf("break i*100 from while loop = %v, want Integer(300)", got)
	}
}

func TestBreakOutsideLoopFails(t *testing.T) {
	cx := cctx.New(isa.NewUnit(), &isa.Diagnostics{})
	cx.Allocator.Child()
	_, err := lower.LowerExpr(cx, &hir.Break{}, asm.NeedsDiscard())
	if err == nil {
		t.Fatalf("break outside of any loop: want error, got nil")
	}
}

func TestTryLowersToItsOwnOpcodeDistinctFromAwait(t *testing.T) {
	cx := cctx.New(isa.NewUnit(), &isa.Diagnostics{})
	scope := cx.Allocator.Child()
	out, err := cx.Allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if _, err := lower.LowerExpr(cx, &hir.Try{X: intLit(1)}, asm.NeedsLocal(out)); err != nil {
		t.Fatalf("LowerExpr(Try): %v", err)
	}
	if err := cx.Allocator.Pop(scope); err != nil {
		t.Fatalf("Pop: %v", err)
	}

	entries := cx.Asm.Entries()
	last := entries[len(entries)-1]
	if last.Inst.Op != isa.OpTry {
		t.Fatalf("hir.Try lowered to %+v as its last instruction, want OpTry", last.Inst)
	}
}

func TestAwaitLowersToOpAwaitNotOpTry(t *testing.T) {
	cx := cctx.New(isa.NewUnit(), &isa.Diagnostics{})
	scope := cx.Allocator.Child()
	out, err := cx.Allocator.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	if _, err := lower.LowerExpr(cx, &hir.Await{X: intLit(1)}, asm.NeedsLocal(out)); err != nil {
		t.Fatalf("LowerExpr(Await): %v", err)
	}
	if err := cx.Allocator.Pop(scope); err != nil {
		t.Fatalf("Pop: %v", err)
	}

	entries := cx.Asm.Entries()
	last := entries[len(entries)-1]
	if last.Inst.Op != isa.OpAwait {
		t.Fatalf("hir.Await lowered to %+v as its last instruction, want OpAwait", last.Inst)
	}
}

func TestTupleConstructionAndIndex(t *testing.T) {
	e := &hir.TupleIndex{
		Object: &hir.Tuple{Elems: []hir.Expr{intLit(10), intLit(20), intLit(30)}},
		Index:  1,
	}
	got := runExpr(t, e)
	if got.Int != 20 {
		t.Fatalf("(10,20,30).1 = %v, want Integer(20)", got)
	}
}
