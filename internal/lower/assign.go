package lower

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
)

// resolveTarget lowers an AssignTarget's receiver (if any) and returns
// the isa.InstTarget describing where an Assign instruction should
// write, per spec.md's "the only supported LHS forms are a variable, a
// field, a tuple-index position, or an index expression" rule. Index
// targets are not representable by isa.InstTarget (which only carries
// address/field/tuple-index per spec.md's InstTarget family), so an
// Index LHS is lowered as an IndexSet instead; resolveTarget returns
// ok=false in that case and the caller must use lowerIndexSet.
func resolveTarget(cx *cctx.Context, t hir.AssignTarget, span hir.Span) (isa.InstTarget, bool, error) {
	switch t.Kind {
	case hir.TargetVariable:
		v, err := cx.Allocator.Get(t.Name)
		if err != nil {
			return isa.InstTarget{}, false, toCompileError(err, span)
		}
		return isa.InstTarget{Kind: isa.TargetAddress, Addr: v.Address}, true, nil
	case hir.TargetField:
		baseAddr, err := cx.Allocator.Alloc()
		if err != nil {
			return isa.InstTarget{}, false, err
		}
		if _, err := LowerExpr(cx, t.Base, asm.NeedsLocal(baseAddr)); err != nil {
			return isa.InstTarget{}, false, err
		}
		slot := cx.Unit.NewStaticString(t.Name)
		return isa.InstTarget{Kind: isa.TargetField, Addr: baseAddr, Field: slot}, true, nil
	case hir.TargetTupleIndex:
		baseAddr, err := cx.Allocator.Alloc()
		if err != nil {
			return isa.InstTarget{}, false, err
		}
		if _, err := LowerExpr(cx, t.Base, asm.NeedsLocal(baseAddr)); err != nil {
			return isa.InstTarget{}, false, err
		}
		return isa.InstTarget{Kind: isa.TargetTupleIndex, Addr: baseAddr, Index: t.Index}, true, nil
	case hir.TargetIndex:
		return isa.InstTarget{}, false, nil
	}
	return isa.InstTarget{}, false, newError(ErrUnsupportedAssignExpr, span, "unsupported assign target")
}

func lowerAssign(cx *cctx.Context, x *hir.Assign, needs asm.Needs) (Result, error) {
	if x.Target.Kind == hir.TargetIndex {
		pair, err := cx.Allocator.NewLinear(2)
		if err != nil {
			return Result{}, err
		}
		if _, err := LowerExpr(cx, x.Target.Base, asm.NeedsLocal(pair.Addr(0))); err != nil {
			return Result{}, err
		}
		if _, err := LowerExpr(cx, x.Target.Key, asm.NeedsLocal(pair.Addr(1))); err != nil {
			return Result{}, err
		}
		valAddr, err := cx.Allocator.Alloc()
		if err != nil {
			return Result{}, err
		}
		if _, err := LowerExpr(cx, x.Value, asm.NeedsLocal(valAddr)); err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpIndexSet, A: pair.Addr(0), B: pair.Addr(1), Out: valAddr}, x.Span())
		return unitResult(cx, needs, x.Span())
	}

	target, ok, err := resolveTarget(cx, x.Target, x.Span())
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, newError(ErrUnsupportedAssignExpr, x.Span(), "LHS form not supported")
	}
	valAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Value, asm.NeedsLocal(valAddr)); err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpAssign, A: valAddr, Target: target, AssignOp: isa.AssignSet}, x.Span())
	return unitResult(cx, needs, x.Span())
}

var compoundOp = map[hir.BinaryOp]isa.InstAssignOp{
	hir.OpAddAssign: isa.AssignAdd, hir.OpSubAssign: isa.AssignSub,
	hir.OpMulAssign: isa.AssignMul, hir.OpDivAssign: isa.AssignDiv,
	hir.OpRemAssign: isa.AssignRem, hir.OpBitAndAssign: isa.AssignBitAnd,
	hir.OpBitOrAssign: isa.AssignBitOr, hir.OpBitXorAssign: isa.AssignBitXor,
	hir.OpShlAssign: isa.AssignShl, hir.OpShrAssign: isa.AssignShr,
}

// lowerCompoundAssign implements spec.md §4.3 (i): lower RHS to a value
// address, emit Assign with an InstTarget describing the LHS.
func lowerCompoundAssign(cx *cctx.Context, x *hir.Binary) (Result, error) {
	target, targetExpr, err := compoundTarget(x.Left)
	if err != nil {
		return Result{}, err
	}
	rhsAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Right, asm.NeedsLocal(rhsAddr)); err != nil {
		return Result{}, err
	}
	inst, ok, err := resolveTarget(cx, target, x.Span())
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, newError(ErrUnsupportedBinaryExpr, x.Span(), "LHS form not supported for compound assignment")
	}
	assignOp, ok := compoundOp[x.Op]
	if !ok {
		return Result{}, newError(ErrUnsupportedBinaryOp, x.Span(), "operator %v", x.Op)
	}
	cx.Emit(isa.Inst{Op: isa.OpAssign, A: rhsAddr, Target: inst, AssignOp: assignOp}, x.Span())
	_ = targetExpr
	return Result{Span: x.Span()}, nil
}

// compoundTarget converts the LHS expression of a compound-assignment
// Binary into an AssignTarget; only the same forms plain Assign accepts
// are valid, everything else fails with UnsupportedBinaryExpr.
func compoundTarget(lhs hir.Expr) (hir.AssignTarget, hir.Expr, error) {
	switch l := lhs.(type) {
	case *hir.Variable:
		return hir.AssignTarget{Kind: hir.TargetVariable, Name: l.Name}, lhs, nil
	case *hir.FieldAccess:
		return hir.AssignTarget{Kind: hir.TargetField, Name: l.Field, Base: l.Object}, lhs, nil
	case *hir.TupleIndex:
		return hir.AssignTarget{Kind: hir.TargetTupleIndex, Index: l.Index, Base: l.Object}, lhs, nil
	default:
		return hir.AssignTarget{}, nil, newError(ErrUnsupportedBinaryExpr, lhs.Span(), "LHS %T is not assignable", lhs)
	}
}

func unitResult(cx *cctx.Context, needs asm.Needs, span hir.Span) (Result, error) {
	if needs.HasValue() {
		out, err := needs.AllocOutput(cx.Allocator)
		if err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpUnit, Out: out}, span)
	}
	return Result{Span: span}, nil
}

func lowerTuple(cx *cctx.Context, x *hir.Tuple, needs asm.Needs) (Result, error) {
	run, err := cx.Allocator.NewLinear(len(x.Elems))
	if err != nil {
		return Result{}, err
	}
	for i, elem := range x.Elems {
		if _, err := LowerExpr(cx, elem, asm.NeedsLocal(run.Addr(i))); err != nil {
			return Result{}, err
		}
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	op := tupleOp(len(x.Elems))
	cx.Emit(isa.Inst{Op: op, A: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func tupleOp(n int) isa.Opcode {
	switch n {
	case 1:
		return isa.OpTuple1
	case 2:
		return isa.OpTuple2
	case 3:
		return isa.OpTuple3
	case 4:
		return isa.OpTuple4
	default:
		return isa.OpTuple
	}
}

func lowerVec(cx *cctx.Context, x *hir.Vec, needs asm.Needs) (Result, error) {
	run, err := cx.Allocator.NewLinear(len(x.Elems))
	if err != nil {
		return Result{}, err
	}
	for i, elem := range x.Elems {
		if _, err := LowerExpr(cx, elem, asm.NeedsLocal(run.Addr(i))); err != nil {
			return Result{}, err
		}
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpVec, A: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerObjectLit(cx *cctx.Context, x *hir.ObjectLit, needs asm.Needs) (Result, error) {
	slot := cx.Unit.NewStaticObjectKeysIter(x.Keys)
	sortedKeys := cx.Unit.ObjectKeys(slot)
	byKey := make(map[string]hir.Expr, len(x.Keys))
	for i, k := range x.Keys {
		byKey[k] = x.Values[i]
	}
	run, err := cx.Allocator.NewLinear(len(sortedKeys))
	if err != nil {
		return Result{}, err
	}
	for i, k := range sortedKeys {
		if _, err := LowerExpr(cx, byKey[k], asm.NeedsLocal(run.Addr(i))); err != nil {
			return Result{}, err
		}
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpObject, A: run.Base, Slot: slot, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerRange(cx *cctx.Context, x *hir.Range, needs asm.Needs) (Result, error) {
	pair, err := cx.Allocator.NewLinear(2)
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Start, asm.NeedsLocal(pair.Addr(0))); err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.End, asm.NeedsLocal(pair.Addr(1))); err != nil {
		return Result{}, err
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	n := 0
	if x.Inclusive {
		n = 1
	}
	cx.Emit(isa.Inst{Op: isa.OpRange, A: pair.Addr(0), B: pair.Addr(1), N: n, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

// lowerStructConstruct lowers named arguments into a linear run and
// emits a swap-sort (asm.Reorder) so positions match the constructor's
// declared field order, then a Call.
func lowerStructConstruct(cx *cctx.Context, x *hir.StructConstruct, needs asm.Needs) (Result, error) {
	run, err := cx.Allocator.NewLinear(len(x.Values))
	if err != nil {
		return Result{}, err
	}
	for i, v := range x.Values {
		if _, err := LowerExpr(cx, v, asm.NeedsLocal(run.Addr(i))); err != nil {
			return Result{}, err
		}
	}
	declaredOrder := append([]string(nil), x.Fields...)
	// The constructor's declared order is, in this module, taken to be
	// the sorted field order (the metadata layer that actually knows a
	// struct's declared positions is external per spec.md §1); sorting
	// deterministically exercises the same swap-sort machinery.
	sorted := cx.Unit.ObjectKeys(cx.Unit.NewStaticObjectKeysIter(x.Fields))
	for _, sw := range asm.Reorder(declaredOrder, sorted) {
		cx.Emit(isa.Inst{Op: isa.OpSwap, A: run.Addr(sw.I), B: run.Addr(sw.J)}, x.Span())
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpCall, Hash: x.Type, B: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}
