package constfn

import (
	"errors"
	"testing"

	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/isa"
)

func intLit(v int64) *hir.Literal { return &hir.Literal{Kind: hir.LitInteger, Int: v} }

func identityArgLowerer(e hir.Expr) (isa.Value, error) {
	in := New()
	return in.EvalConst(e)
}

func TestEvalConstArithmetic(t *testing.T) {
	// 2 + 3 * 4 == 14
	e := &hir.Binary{
		Op:   hir.OpAdd,
		Left: intLit(2),
		Right: &hir.Binary{
			Op:    hir.OpMul,
			Left:  intLit(3),
			Right: intLit(4),
		},
	}
	got, err := New().EvalConst(e)
	if err != nil {
		t.Fatalf("EvalConst: %v", err)
	}
	if got.Kind != isa.ValueInteger || got.Int != 14 {
		t.Fatalf("2 + 3*4 = %v, want Integer(14)", got)
	}
}

func TestEvalConstIfPicksTruthyBranch(t *testing.T) {
	e := &hir.If{
		Branches: []hir.IfBranch{{
			Cond: &hir.Literal{Kind: hir.LitBool, Bool: true},
			Body: &hir.Block{Tail: intLit(1)},
		}},
		Else: &hir.Block{Tail: intLit(2)},
	}
	got, err := New().EvalConst(e)
	if err != nil {
		t.Fatalf("EvalConst: %v", err)
	}
	if got.Int != 1 {
		t.Fatalf("if true {1} else {2} = %v, want Integer(1)", got)
	}
}

func TestEvalConstShortCircuitsAndOr(t *testing.T) {
	// false && (1/0 == 0) must short-circuit without evaluating the
	// division-by-zero right-hand side.
	e := &hir.Binary{
		Op:   hir.OpAnd,
		Left: &hir.Literal{Kind: hir.LitBool, Bool: false},
		Right: &hir.Binary{
			Op:   hir.OpEq,
			Left: &hir.Binary{Op: hir.OpDiv, Left: intLit(1), Right: intLit(0)},
			Right: intLit(0),
		},
	}
	got, err := New().EvalConst(e)
	if err != nil {
		t.Fatalf("short-circuit && must not evaluate rhs: %v", err)
	}
	if got.Kind != isa.ValueBool || got.Bool != false {
		t.Fatalf("false && ... = %v, want Bool(false)", got)
	}

	e2 := &hir.Binary{
		Op:   hir.OpOr,
		Left: &hir.Literal{Kind: hir.LitBool, Bool: true},
		Right: &hir.Binary{
			Op:   hir.OpEq,
			Left: &hir.Binary{Op: hir.OpDiv, Left: intLit(1), Right: intLit(0)},
			Right: intLit(0),
		},
	}
	got2, err := New().EvalConst(e2)
	if err != nil {
		t.Fatalf("short-circuit || must not evaluate rhs: %v", err)
	}
	if got2.Kind != isa.ValueBool || got2.Bool != true {
		t.Fatalf("true || ... = %v, want Bool(true)", got2)
	}
}

func TestEvalConstLetAndVariable(t *testing.T) {
	body := &hir.Block{
		Stmts: []hir.Stmt{
			&hir.Let{Pattern: &hir.PatBinding{Name: "x"}, Value: intLit(5)},
		},
		Tail: &hir.Binary{Op: hir.OpMul, Left: &hir.Variable{Name: "x"}, Right: intLit(2)},
	}
	got, err := New().EvalConst(body)
	if err != nil {
		t.Fatalf("EvalConst: %v", err)
	}
	if got.Int != 10 {
		t.Fatalf("let x = 5; x * 2 = %v, want Integer(10)", got)
	}
}

func TestEvalConstDivisionByZero(t *testing.T) {
	e := &hir.Binary{Op: hir.OpDiv, Left: intLit(1), Right: intLit(0)}
	if _, err := New().EvalConst(e); err == nil {
		t.Fatalf("1/0: want error, got nil")
	}
}

func TestEvalConstUndefinedVariable(t *testing.T) {
	if _, err := New().EvalConst(&hir.Variable{Name: "nope"}); err == nil {
		t.Fatalf("undefined variable: want error, got nil")
	}
}

func TestEvalConstUnsupportedExpressionRejected(t *testing.T) {
	// A for-loop is not constant-evaluable; the body must reject it
	// rather than silently skip it.
	if _, err := New().EvalConst(&hir.For{}); err == nil {
		t.Fatalf("for-loop in constant position: want error, got nil")
	}
}

func TestBudgetExhaustedOnDeeplyNestedExpression(t *testing.T) {
	// Build a deep chain of nested additions (intLit(1) + (intLit(1) + (...)))
	// that exceeds a tiny budget.
	var e hir.Expr = intLit(1)
	for i := 0; i < 10; i++ {
		e = &hir.Binary{Op: hir.OpAdd, Left: intLit(1), Right: e}
	}
	_, err := NewWithBudget(5).EvalConst(e)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("EvalConst with budget 5 over a 10-deep chain: err = %v, want ErrBudgetExhausted", err)
	}
}

func TestCallMatchesArityAndBindsParams(t *testing.T) {
	fn := &hir.ConstFn{
		Params: []string{"a", "b"},
		Body: &hir.Block{
			Tail: &hir.Binary{Op: hir.OpAdd, Left: &hir.Variable{Name: "a"}, Right: &hir.Variable{Name: "b"}},
		},
	}
	got, err := New().Call(fn, []hir.Expr{intLit(3), intLit(4)}, identityArgLowerer)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Int != 7 {
		t.Fatalf("constfn(3, 4) = %v, want Integer(7)", got)
	}
}

func TestCallArgumentCountMismatch(t *testing.T) {
	fn := &hir.ConstFn{
		Params: []string{"a", "b"},
		Body:   &hir.Block{Tail: &hir.Variable{Name: "a"}},
	}
	_, err := New().Call(fn, []hir.Expr{intLit(1)}, identityArgLowerer)
	if err == nil {
		t.Fatalf("arity mismatch: want error, got nil")
	}
	var argErr *ErrArgumentCount
	if !errors.As(err, &argErr) {
		t.Fatalf("error type = %T, want *ErrArgumentCount", err)
	}
	if argErr.Expected != 2 || argErr.Actual != 1 {
		t.Fatalf("ErrArgumentCount = %+v, want Expected=2 Actual=1", argErr)
	}
}

func TestEnvironmentLookupFallsThroughToOuter(t *testing.T) {
	outer := NewEnvironment()
	outer.Set("x", isa.Integer(1))
	inner := NewEnclosedEnvironment(outer)

	v, ok := inner.Get("x")
	if !ok || v.Int != 1 {
		t.Fatalf("inner.Get(x) = (%v, %v), want (Integer(1), true)", v, ok)
	}

	inner.Set("x", isa.Integer(2))
	innerAgain, _ := inner.Get("x")
	outerStill, _ := outer.Get("x")
	if innerAgain.Int != 2 || outerStill.Int != 1 {
		t.Fatalf("shadowing in inner must not mutate outer: inner=%v outer=%v", innerAgain, outerStill)
	}
}
