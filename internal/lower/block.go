package lower

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
)

// LowerBlock opens a child scope, lowers statements in order, lowers
// the optional trailing expression into needs, then closes the scope.
// A statement following a divergent expression is marked dead (not
// emitted), per spec.md §4.3 "Block".
func LowerBlock(cx *cctx.Context, b *hir.Block, needs asm.Needs) (Result, error) {
	scope := cx.Allocator.Child()
	diverges := false
	for _, stmt := range b.Stmts {
		if diverges {
			cx.Diag.Report(stmt.Span(), "unreachable statement after divergent expression")
			break
		}
		d, err := lowerStmt(cx, stmt)
		if err != nil {
			return Result{}, err
		}
		diverges = d
	}
	if !diverges {
		if b.Tail != nil {
			if _, err := LowerExpr(cx, b.Tail, needs); err != nil {
				return Result{}, err
			}
		} else if needs.HasValue() {
			if _, err := unitResult(cx, needs, b.Span()); err != nil {
				return Result{}, err
			}
		}
	}
	if err := cx.Allocator.Pop(scope); err != nil {
		return Result{}, err
	}
	return Result{Span: b.Span(), Diverges: diverges}, nil
}

func lowerStmt(cx *cctx.Context, s hir.Stmt) (diverges bool, err error) {
	switch st := s.(type) {
	case *hir.ExprStmt:
		res, err := LowerExpr(cx, st.X, asm.NeedsDiscard())
		if err != nil {
			return false, err
		}
		return res.Diverges, nil
	case *hir.Let:
		return lowerLet(cx, st)
	}
	return false, newError(ErrUnsupportedPatternExpr, s.Span(), "unsupported statement %T", s)
}
