// Package lower implements expression and statement lowering: one
// routine per HIR expression kind, recursively emitting instructions
// into the assembly through the allocator and the needs sink
// (spec.md §4.3).
//
// Grounded on yourfavoritedev-golang-interpreter/compiler/compiler.go's
// Compile(node ast.Node) error big type-switch (If/Block/Let/Call/
// FunctionLiteral/...), generalized from Monkey's untyped AST kinds to
// spec.md's typed HIR expression kinds; the needs-sink threading and
// loop/break/continue bookkeeping have no teacher analogue (Monkey has
// no loops) and are grounded directly on spec.md §4.3/§4.5/§5.
package lower

import (
	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/cctx"
	"github.com/VorpalBlade/rune/internal/isa"
)

// Result is returned by every lowering routine: the span it covers and
// whether it diverges (guarantees no continuation).
type Result struct {
	Span     hir.Span
	Diverges bool
}

func emitCopy(cx *cctx.Context, dest, src asm.Address, span hir.Span) {
	if dest == src {
		return
	}
	cx.Emit(isa.Inst{
		Op: isa.OpAssign, A: src,
		Target: isa.InstTarget{Kind: isa.TargetAddress, Addr: dest},
	}, span)
}

// finishValue routes a value already sitting at src into needs,
// emitting a copy only when needs is Assigned to a different address.
func finishValue(cx *cctx.Context, needs asm.Needs, src asm.Address, span hir.Span) {
	dest, copyNeeded := needs.AssignAddress(src)
	if copyNeeded {
		emitCopy(cx, dest, src, span)
	}
}

// LowerExpr is the single entry point spec.md §4.3 describes:
// lower_expr(cx, hir, needs) -> Asm{span, diverges}.
func LowerExpr(cx *cctx.Context, e hir.Expr, needs asm.Needs) (Result, error) {
	span := e.Span()
	switch x := e.(type) {
	case *hir.Variable:
		return lowerVariable(cx, x, needs)
	case *hir.Literal:
		return lowerLiteral(cx, x, needs)
	case *hir.ConstItem:
		return lowerConstItem(cx, x, needs)
	case *hir.Unary:
		return lowerUnary(cx, x, needs)
	case *hir.Binary:
		return lowerBinary(cx, x, needs)
	case *hir.FieldAccess:
		return lowerFieldAccess(cx, x, needs)
	case *hir.TupleIndex:
		return lowerTupleIndex(cx, x, needs)
	case *hir.Index:
		return lowerIndex(cx, x, needs)
	case *hir.Assign:
		return lowerAssign(cx, x, needs)
	case *hir.Tuple:
		return lowerTuple(cx, x, needs)
	case *hir.Vec:
		return lowerVec(cx, x, needs)
	case *hir.ObjectLit:
		return lowerObjectLit(cx, x, needs)
	case *hir.Range:
		return lowerRange(cx, x, needs)
	case *hir.StructConstruct:
		return lowerStructConstruct(cx, x, needs)
	case *hir.Call:
		return lowerCall(cx, x, needs)
	case *hir.Block:
		return LowerBlock(cx, x, needs)
	case *hir.If:
		return lowerIf(cx, x, needs)
	case *hir.Match:
		return lowerMatch(cx, x, needs)
	case *hir.For:
		return lowerFor(cx, x, needs)
	case *hir.Loop:
		return lowerLoop(cx, x, needs)
	case *hir.Break:
		return lowerBreak(cx, x)
	case *hir.Continue:
		return lowerContinue(cx, x)
	case *hir.Return:
		return lowerReturn(cx, x)
	case *hir.Closure:
		return lowerClosure(cx, x, needs)
	case *hir.AsyncBlock:
		return lowerAsyncBlock(cx, x, needs)
	case *hir.Await:
		return lowerOneArg(cx, x.X, needs, isa.OpAwait, span)
	case *hir.Yield:
		return lowerYield(cx, x, needs)
	case *hir.Try:
		return lowerOneArg(cx, x.X, needs, isa.OpTry, span)
	case *hir.Select:
		return lowerSelect(cx, x, needs)
	}
	return Result{Span: span}, newError(ErrUnsupportedPatternExpr, span, "unsupported expression %T", e)
}

func lowerVariable(cx *cctx.Context, x *hir.Variable, needs asm.Needs) (Result, error) {
	v, err := cx.Allocator.Get(x.Name)
	if err != nil {
		return Result{Span: x.Span()}, toCompileError(err, x.Span())
	}
	if needs.HasValue() {
		finishValue(cx, needs, v.Address, x.Span())
	}
	return Result{Span: x.Span()}, nil
}

func lowerLiteral(cx *cctx.Context, x *hir.Literal, needs asm.Needs) (Result, error) {
	if !needs.HasValue() {
		cx.Diag.Report(x.Span(), "not_used")
		return Result{Span: x.Span()}, nil
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, toCompileError(err, x.Span())
	}
	emitLiteral(cx, x, out)
	return Result{Span: x.Span()}, nil
}

func emitLiteral(cx *cctx.Context, x *hir.Literal, out asm.Address) {
	in := isa.Inst{Out: out}
	switch x.Kind {
	case hir.LitUnit:
		in.Op = isa.OpUnit
	case hir.LitBool:
		in.Op, in.Bool = isa.OpBool, x.Bool
	case hir.LitByte:
		in.Op, in.Byte = isa.OpByte, x.Byte
	case hir.LitChar:
		in.Op, in.Char = isa.OpChar, x.Char
	case hir.LitInteger:
		in.Op, in.Int = isa.OpInteger, x.Int
	case hir.LitFloat:
		in.Op, in.Float = isa.OpFloat, x.Flt
	case hir.LitString:
		in.Op, in.Slot = isa.OpString, cx.Unit.NewStaticString(x.Str)
	case hir.LitByteString:
		in.Op, in.Slot = isa.OpByteString, cx.Unit.NewStaticBytes(x.Byts)
	}
	cx.Emit(in, x.Span())
}

func lowerConstItem(cx *cctx.Context, x *hir.ConstItem, needs asm.Needs) (Result, error) {
	v, ok := cx.Unit.GetConstValue(x.Item)
	if !ok {
		return Result{}, newError(ErrVariableNotFound, x.Span(), "const item %d not registered", x.Item)
	}
	if !needs.HasValue() {
		return Result{Span: x.Span()}, nil
	}
	if err := lowerConstValue(cx, v, needs, x.Span()); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span()}, nil
}

// lowerConstValue re-emits an already-evaluated constant as
// instructions, matching the "Constant item" lowering path spec.md
// §4.3 describes: tuples/vecs/objects expand to linear runs and
// aggregate-construction instructions rather than a single opcode.
func lowerConstValue(cx *cctx.Context, v isa.Value, needs asm.Needs, span hir.Span) error {
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return err
	}
	switch v.Kind {
	case isa.ValueUnit:
		cx.Emit(isa.Inst{Op: isa.OpUnit, Out: out}, span)
	case isa.ValueBool:
		cx.Emit(isa.Inst{Op: isa.OpBool, Bool: v.Bool, Out: out}, span)
	case isa.ValueByte:
		cx.Emit(isa.Inst{Op: isa.OpByte, Byte: v.Byte, Out: out}, span)
	case isa.ValueChar:
		cx.Emit(isa.Inst{Op: isa.OpChar, Char: v.Char, Out: out}, span)
	case isa.ValueInteger:
		cx.Emit(isa.Inst{Op: isa.OpInteger, Int: v.Int, Out: out}, span)
	case isa.ValueFloat:
		cx.Emit(isa.Inst{Op: isa.OpFloat, Float: v.Float, Out: out}, span)
	case isa.ValueString:
		cx.Emit(isa.Inst{Op: isa.OpString, Slot: cx.Unit.NewStaticString(v.Str), Out: out}, span)
	case isa.ValueBytes:
		cx.Emit(isa.Inst{Op: isa.OpByteString, Slot: cx.Unit.NewStaticBytes(v.Bytes), Out: out}, span)
	case isa.ValueTuple, isa.ValueVec:
		elems := v.Tuple
		op := isa.OpTuple
		if v.Kind == isa.ValueVec {
			elems, op = v.Vec, isa.OpVec
		}
		run, err := cx.Allocator.NewLinear(len(elems))
		if err != nil {
			return err
		}
		for i, elem := range elems {
			if err := lowerConstValue(cx, elem, asm.NeedsLocal(run.Addr(i)), span); err != nil {
				return err
			}
		}
		cx.Emit(isa.Inst{Op: op, A: run.Base, N: run.N, Out: out}, span)
	case isa.ValueObject:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		slot := cx.Unit.NewStaticObjectKeysIter(keys)
		sortedKeys := cx.Unit.ObjectKeys(slot)
		run, err := cx.Allocator.NewLinear(len(sortedKeys))
		if err != nil {
			return err
		}
		for i, k := range sortedKeys {
			if err := lowerConstValue(cx, v.Fields[k], asm.NeedsLocal(run.Addr(i)), span); err != nil {
				return err
			}
		}
		cx.Emit(isa.Inst{Op: isa.OpObject, A: run.Base, Slot: slot, N: run.N, Out: out}, span)
	default:
		cx.Emit(isa.Inst{Op: isa.OpUnit, Out: out}, span)
	}
	return nil
}

func lowerUnary(cx *cctx.Context, x *hir.Unary, needs asm.Needs) (Result, error) {
	addr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Operand, asm.NeedsLocal(addr)); err != nil {
		return Result{}, err
	}
	op := isa.OpNot
	if x.Op == hir.UnaryNeg {
		op = isa.OpNeg
	}
	cx.Emit(isa.Inst{Op: op, A: addr, Out: addr}, x.Span())
	if needs.HasValue() {
		finishValue(cx, needs, addr, x.Span())
	}
	return Result{Span: x.Span()}, nil
}

var binOpcode = map[hir.BinaryOp]isa.Opcode{
	hir.OpAdd: isa.OpAdd, hir.OpSub: isa.OpSub, hir.OpMul: isa.OpMul,
	hir.OpDiv: isa.OpDiv, hir.OpRem: isa.OpRem, hir.OpEq: isa.OpEq,
	hir.OpNeq: isa.OpNeq, hir.OpLt: isa.OpLt, hir.OpGt: isa.OpGt,
	hir.OpLte: isa.OpLte, hir.OpGte: isa.OpGte, hir.OpBitAnd: isa.OpBitAnd,
	hir.OpBitOr: isa.OpBitOr, hir.OpBitXor: isa.OpBitXor, hir.OpShl: isa.OpShl,
	hir.OpShr: isa.OpShr, hir.OpAs: isa.OpAs, hir.OpIs: isa.OpIs, hir.OpIsNot: isa.OpIsNot,
}

func lowerBinary(cx *cctx.Context, x *hir.Binary, needs asm.Needs) (Result, error) {
	if x.Op.IsAssign() {
		return lowerCompoundAssign(cx, x)
	}
	if x.Op.IsShortCircuit() {
		return lowerShortCircuit(cx, x, needs)
	}
	opcode, ok := binOpcode[x.Op]
	if !ok {
		return Result{}, newError(ErrUnsupportedBinaryOp, x.Span(), "operator %v", x.Op)
	}
	pair, err := cx.Allocator.NewLinear(2)
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Left, asm.NeedsLocal(pair.Addr(0))); err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Right, asm.NeedsLocal(pair.Addr(1))); err != nil {
		return Result{}, err
	}
	out := pair.Addr(0)
	if needs.HasValue() {
		if addr, ok := needs.AsAddress(); ok {
			out = addr
		} else if allocated, err := needs.AllocOutput(cx.Allocator); err == nil {
			out = allocated
		}
	}
	cx.Emit(isa.Inst{Op: opcode, A: pair.Addr(0), B: pair.Addr(1), Out: out}, x.Span())
	if needs.HasValue() {
		finishValue(cx, needs, out, x.Span())
	}
	return Result{Span: x.Span()}, nil
}

func lowerShortCircuit(cx *cctx.Context, x *hir.Binary, needs asm.Needs) (Result, error) {
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		// Needs is None: short-circuit expressions are still evaluated
		// for side effects even when discarded, so fall back to a
		// transient output address.
		out, err = cx.Allocator.Alloc()
		if err != nil {
			return Result{}, err
		}
	}
	if _, err := LowerExpr(cx, x.Left, asm.NeedsLocal(out)); err != nil {
		return Result{}, err
	}
	end := cx.Asm.NewLabel("sc_end")
	if x.Op == hir.OpAnd {
		cx.Emit(isa.Inst{Op: isa.OpJumpIfNot, A: out, Label: end}, x.Span())
	} else {
		cx.Emit(isa.Inst{Op: isa.OpJumpIf, A: out, Label: end}, x.Span())
	}
	if _, err := LowerExpr(cx, x.Right, asm.NeedsLocal(out)); err != nil {
		return Result{}, err
	}
	if err := cx.Asm.PlaceLabel(end); err != nil {
		return Result{}, err
	}
	if needs.HasValue() {
		finishValue(cx, needs, out, x.Span())
	}
	return Result{Span: x.Span()}, nil
}

func lowerFieldAccess(cx *cctx.Context, x *hir.FieldAccess, needs asm.Needs) (Result, error) {
	objAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Object, asm.NeedsLocal(objAddr)); err != nil {
		return Result{}, err
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	slot := cx.Unit.NewStaticString(x.Field)
	cx.Emit(isa.Inst{Op: isa.OpObjectIndexGet, A: objAddr, Slot: slot, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerTupleIndex(cx *cctx.Context, x *hir.TupleIndex, needs asm.Needs) (Result, error) {
	objAddr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Object, asm.NeedsLocal(objAddr)); err != nil {
		return Result{}, err
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpTupleIndexGet, A: objAddr, N: x.Index, Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerIndex(cx *cctx.Context, x *hir.Index, needs asm.Needs) (Result, error) {
	pair, err := cx.Allocator.NewLinear(2)
	if err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Object, asm.NeedsLocal(pair.Addr(0))); err != nil {
		return Result{}, err
	}
	if _, err := LowerExpr(cx, x.Key, asm.NeedsLocal(pair.Addr(1))); err != nil {
		return Result{}, err
	}
	out, err := needs.AllocOutput(cx.Allocator)
	if err != nil {
		return Result{}, err
	}
	cx.Emit(isa.Inst{Op: isa.OpIndexGet, A: pair.Addr(0), B: pair.Addr(1), Out: out}, x.Span())
	return Result{Span: x.Span()}, nil
}

func lowerOneArg(cx *cctx.Context, arg hir.Expr, needs asm.Needs, op isa.Opcode, span hir.Span) (Result, error) {
	addr, err := cx.Allocator.Alloc()
	if err != nil {
		return Result{}, err
	}
	if arg != nil {
		if _, err := LowerExpr(cx, arg, asm.NeedsLocal(addr)); err != nil {
			return Result{}, err
		}
	}
	out := addr
	if needs.HasValue() {
		if allocated, err := needs.AllocOutput(cx.Allocator); err == nil {
			out = allocated
		}
	}
	cx.Emit(isa.Inst{Op: op, A: addr, Out: out}, span)
	return Result{Span: span}, nil
}

func lowerYield(cx *cctx.Context, x *hir.Yield, needs asm.Needs) (Result, error) {
	if x.X == nil {
		out, _, err := needs.TryAllocAddress(cx.Allocator)
		if err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpYieldUnit, Out: out}, x.Span())
		return Result{Span: x.Span()}, nil
	}
	return lowerOneArg(cx, x.X, needs, isa.OpYield, x.Span())
}

func lowerSelect(cx *cctx.Context, x *hir.Select, needs asm.Needs) (Result, error) {
	out, _, err := needs.TryAllocAddress(cx.Allocator)
	_ = out
	if err != nil {
		return Result{}, err
	}
	labels := make([]*asm.Label, len(x.Branches))
	for i := range x.Branches {
		labels[i] = cx.Asm.NewLabel("select_branch")
	}
	cx.Emit(isa.Inst{Op: isa.OpJumpIfBranch, Labels: labels}, x.Span())
	end := cx.Asm.NewLabel("select_end")
	for i, br := range x.Branches {
		if err := cx.Asm.PlaceLabel(labels[i]); err != nil {
			return Result{}, err
		}
		if _, err := LowerBlock(cx, br.Body, needs); err != nil {
			return Result{}, err
		}
		cx.Emit(isa.Inst{Op: isa.OpJump, Label: end}, x.Span())
	}
	if err := cx.Asm.PlaceLabel(end); err != nil {
		return Result{}, err
	}
	return Result{Span: x.Span()}, nil
}

func toCompileError(err error, span hir.Span) error {
	if _, ok := err.(*CompileError); ok {
		return err
	}
	return newError(ErrVariableNotFound, span, "%s", err.Error())
}
