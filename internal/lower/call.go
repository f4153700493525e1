package lower

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/constfn"
	"github.com/VorpalBlade/rune/internal/isa"
)

// lowerCall dispatches on the call target kind (spec.md §4.3 "Call").
func lowerCall(cx *cctx.Context, x *hir.Call, needs asm.Needs) (Result, error) {
	switch x.Kind {
	case hir.CallConstFn:
		return lowerConstFnCall(cx, x, needs)
	case hir.CallVar:
		return lowerCallVar(cx, x, needs)
	case hir.CallAssociated:
		return lowerCallAssociated(cx, x, needs)
	case hir.CallMeta:
		return lowerCallMeta(cx, x, needs)
	case hir.CallExpr:
		return lowerCallExpr(cx, x, needs)
	}
	return Result{}, newError(ErrUnsupportedPatternExpr, x.Span(), "unsupported call kind %v", x.Kind)
}

func lowerArgs(cx *cctx.Context, args []hir.Expr) (asm.Linear, error) {
	run, err := cx.Allocator.NewLinear(len(args))
	if err != nil {
		return asm.Linear{}, err
	}
	for i, a := range args {
		if _, err := LowerExpr(cx, a, asm.NeedsLocal(run.Addr(i))); err != nil {
			return asm.Linear{}, err
		}
	}
	return run, nil
}

func lowerCallVar(cx *cctx.Context, x *hir.Call, needs asm.Needs) (Result, error) {
	fnVar, err := cx.Allocator.Get(x.VarName)
	if err != nil {
		return Result{}, toCompileError(err, x.Span())
	}
	run, err := lowerArgs(cx, x.Args)
	if err != nil {
		return Result{}, err
	}
	out, err := needs.TryAllocAddressOrTransient(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpCallFn, A: fnVar.Address, B: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerCallAssociated(cx *cctx.Context, x *hir.Call, needs asm.Needs) (Result, error) {
	args := append([]hir.Expr{x.Receiver}, x.Args...)
	run, err := lowerArgs(cx, args)
	if err != nil {
		return Result{}, err
	}
	out, err := needs.TryAllocAddressOrTransient(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpCallAssociated, Hash: x.Protocol, B: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerCallMeta(cx *cctx.Context, x *hir.Call, needs asm.Needs) (Result, error) {
	run, err := lowerArgs(cx, x.Args)
	if err != nil {
		return Result{}, err
	}
	out, err := needs.TryAllocAddressOrTransient(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpCall, Hash: x.Meta, B: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerCallExpr(cx *cctx.Context, x *hir.Call, needs asm.Needs) (Result, error) {
	calleeAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Callee, asm.NeedsLocal(calleeAddr)); err != nil {
		return Result{}, err
	}
	run, err := lowerArgs(cx, x.Args)
	if err != nil {
		return Result{}, err
	}
	out, err := needs.TryAllocAddressOrTransient(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpCallFn, A: calleeAddr, B: run.Base, N: run.N, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

// lowerConstFnCall invokes the constant evaluator (§4.6) synchronously
// and emits its result as a literal via the const-value path; no Call
// instruction appears in the emitted code (scenario 5).
func lowerConstFnCall(cx *cctx.Context, x *hir.Call, needs asm.Needs) (Result, error) {
	if len(x.Args) != len(x.ConstFn.Params) {
		return Result{}, newError(ErrUnsupportedArgumentCount, x.Span(), "expected %d arguments, got %d", len(x.ConstFn.Params), len(x.Args))
	}
	interp := constfn.New()
	lowerArg := func(e hir.Expr) (isa.Value, error) {
		return interp.EvalConst(e)
	}
	result, err := interp.Call(x.ConstFn, x.Args, lowerArg)
	if err != nil {
		if err == constfn.ErrBudgetExhausted {
			return Result{}, newError(ErrBudgetExhausted, x.Span(), "constant function exceeded its step budget")
		}
		return Result{}, newError(ErrUnsupportedArgumentCount, x.Span(), "%s", err.Error())
	}
	if !needs.HasValue() {
		return Result{Span: x.Span()}, nil
	}
	if err := lowerConstValue(cx, result, needs, x.Span()); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span()}, nil
}
