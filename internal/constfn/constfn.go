// Package constfn implements the compile-time constant-function
// interpreter invoked synchronously at call-expression lowering when
// the callee is a ConstFn (spec.md §4.6).
//
// Grounded on yourfavoritedev-golang-interpreter/evaluator/evaluator.go
// (a genuine tree-walking Eval(node) object.Object interpreter) and
// object/environment.go's Environment{store, outer}, adapted from
// Monkey's untyped AST to hir and from an unbounded eval loop to one
// with a decrementing step budget (spec.md §4.6/§9): every Eval call
// consumes one step, and the budget is checked before recursing into
// each sub-expression.
package constfn

import (
	"fmt"

	"github.com/VorpalBlade/rune/hir"
	"github.com/VorpalBlade/rune/internal/isa"
)

// DefaultBudget is the default step budget, per spec.md §4.6.
const DefaultBudget = 1_000_000

// ErrBudgetExhausted is returned when the step budget reaches zero
// before evaluation completes.
var ErrBudgetExhausted = fmt.Errorf("constfn: budget exhausted")

// ErrArgumentCount is returned when a call's argument count does not
// match the const fn's declared parameter arity.
type ErrArgumentCount struct{ Expected, Actual int }

func (e *ErrArgumentCount) Error() string {
	return fmt.Sprintf("constfn: expected %d arguments, got %d", e.Expected, e.Actual)
}

// Environment binds const-fn parameter names to already-evaluated
// argument values, generalized from object.Environment's
// store/outer-chain shape to isa.Value instead of object.Object.
type Environment struct {
	store map[string]isa.Value
	outer *Environment
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]isa.Value)}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment()
	env.outer = outer
	return env
}

func (e *Environment) Get(name string) (isa.Value, bool) {
	v, ok := e.store[name]
	if !ok && e.outer != nil {
		return e.outer.Get(name)
	}
	return v, ok
}

func (e *Environment) Set(name string, v isa.Value) { e.store[name] = v }

// ArgLowerer evaluates a single HIR argument expression to a constant
// Value before the const fn's body is entered (spec.md: "Each
// argument's HIR is lowered to constant-IR"). The caller (internal/lower)
// supplies this since only it knows how to fold arbitrary HIR into a
// constant outside of calling back into this evaluator recursively.
type ArgLowerer func(hir.Expr) (isa.Value, error)

// Interp is one constant-evaluator run, scoped to a single ConstFn
// invocation; its budget is consumed across every block, statement and
// expression it visits. A call to another const fn inside the body is
// not evaluated; eval rejects it as an unsupported expression.
type Interp struct {
	budget int
}

// New creates an interpreter with the default step budget.
func New() *Interp { return &Interp{budget: DefaultBudget} }

// NewWithBudget creates an interpreter with an explicit step budget,
// for tests that want to exercise BudgetExhausted deterministically.
func NewWithBudget(budget int) *Interp { return &Interp{budget: budget} }

// EvalConst evaluates a standalone constant expression (used to fold a
// const fn call's own arguments, which must themselves be constant).
func (in *Interp) EvalConst(e hir.Expr) (isa.Value, error) {
	return in.eval(e, NewEnvironment())
}

// Call evaluates fn with argExprs, each folded to a constant by
// lowerArg, matching arity first per spec.md's UnsupportedArgumentCount check.
func (in *Interp) Call(fn *hir.ConstFn, argExprs []hir.Expr, lowerArg ArgLowerer) (isa.Value, error) {
	if len(argExprs) != len(fn.Params) {
		return isa.Value{}, &ErrArgumentCount{Expected: len(fn.Params), Actual: len(argExprs)}
	}
	env := NewEnvironment()
	for i, name := range fn.Params {
		v, err := lowerArg(argExprs[i])
		if err != nil {
			return isa.Value{}, err
		}
		env.Set(name, v)
	}
	return in.evalBlock(fn.Body, env)
}

func (in *Interp) step() error {
	if in.budget <= 0 {
		return ErrBudgetExhausted
	}
	in.budget--
	return nil
}

func (in *Interp) evalBlock(b *hir.Block, env *Environment) (isa.Value, error) {
	if err := in.step(); err != nil {
		return isa.Value{}, err
	}
	inner := NewEnclosedEnvironment(env)
	for _, stmt := range b.Stmts {
		if err := in.evalStmt(stmt, inner); err != nil {
			return isa.Value{}, err
		}
	}
	if b.Tail == nil {
		return isa.Unit(), nil
	}
	return in.eval(b.Tail, inner)
}

func (in *Interp) evalStmt(s hir.Stmt, env *Environment) error {
	if err := in.step(); err != nil {
		return err
	}
	switch st := s.(type) {
	case *hir.ExprStmt:
		_, err := in.eval(st.X, env)
		return err
	case *hir.Let:
		v, err := in.eval(st.Value, env)
		if err != nil {
			return err
		}
		if binding, ok := st.Pattern.(*hir.PatBinding); ok {
			env.Set(binding.Name, v)
		}
		return nil
	default:
		return fmt.Errorf("constfn: unsupported statement %T in constant body", s)
	}
}

// eval evaluates a purely-constant subset of hir.Expr: literals,
// variables, unary/binary arithmetic, if, and block. Anything else
// (calls, including calls to other const fns, closures, for-loops,
// await, ...) is rejected as an unsupported expression.
func (in *Interp) eval(e hir.Expr, env *Environment) (isa.Value, error) {
	if err := in.step(); err != nil {
		return isa.Value{}, err
	}
	switch x := e.(type) {
	case *hir.Literal:
		return literalValue(x), nil
	case *hir.Variable:
		v, ok := env.Get(x.Name)
		if !ok {
			return isa.Value{}, fmt.Errorf("constfn: undefined variable %q", x.Name)
		}
		return v, nil
	case *hir.Unary:
		operand, err := in.eval(x.Operand, env)
		if err != nil {
			return isa.Value{}, err
		}
		return applyUnary(x.Op, operand)
	case *hir.Binary:
		return in.evalBinary(x, env)
	case *hir.Block:
		return in.evalBlock(x, env)
	case *hir.If:
		for _, br := range x.Branches {
			cond, err := in.eval(br.Cond, env)
			if err != nil {
				return isa.Value{}, err
			}
			if cond.Truthy() {
				return in.evalBlock(br.Body, env)
			}
		}
		if x.Else != nil {
			return in.evalBlock(x.Else, env)
		}
		return isa.Unit(), nil
	default:
		return isa.Value{}, fmt.Errorf("constfn: unsupported expression %T in constant body", e)
	}
}

func (in *Interp) evalBinary(x *hir.Binary, env *Environment) (isa.Value, error) {
	left, err := in.eval(x.Left, env)
	if err != nil {
		return isa.Value{}, err
	}
	if x.Op == hir.OpAnd && !left.Truthy() {
		return isa.Bool(false), nil
	}
	if x.Op == hir.OpOr && left.Truthy() {
		return isa.Bool(true), nil
	}
	right, err := in.eval(x.Right, env)
	if err != nil {
		return isa.Value{}, err
	}
	return applyBinary(x.Op, left, right)
}

func literalValue(l *hir.Literal) isa.Value {
	switch l.Kind {
	case hir.LitUnit:
		return isa.Unit()
	case hir.LitBool:
		return isa.Bool(l.Bool)
	case hir.LitByte:
		return isa.Value{Kind: isa.ValueByte, Byte: l.Byte}
	case hir.LitChar:
		return isa.Value{Kind: isa.ValueChar, Char: l.Char}
	case hir.LitInteger:
		return isa.Integer(l.Int)
	case hir.LitFloat:
		return isa.Float(l.Flt)
	case hir.LitString:
		return isa.String(l.Str)
	case hir.LitByteString:
		return isa.Value{Kind: isa.ValueBytes, Bytes: l.Byts}
	default:
		return isa.Unit()
	}
}

func applyUnary(op hir.UnaryOp, v isa.Value) (isa.Value, error) {
	switch op {
	case hir.UnaryNot:
		return isa.Bool(!v.Truthy()), nil
	case hir.UnaryNeg:
		switch v.Kind {
		case isa.ValueInteger:
			return isa.Integer(-v.Int), nil
		case isa.ValueFloat:
			return isa.Float(-v.Float), nil
		}
	}
	return isa.Value{}, fmt.Errorf("constfn: unsupported unary operator on %v", v.Kind)
}

func applyBinary(op hir.BinaryOp, a, b isa.Value) (isa.Value, error) {
	if a.Kind == isa.ValueInteger && b.Kind == isa.ValueInteger {
		switch op {
		case hir.OpAdd:
			return isa.Integer(a.Int + b.Int), nil
		case hir.OpSub:
			return isa.Integer(a.Int - b.Int), nil
		case hir.OpMul:
			return isa.Integer(a.Int * b.Int), nil
		case hir.OpDiv:
			if b.Int == 0 {
				return isa.Value{}, fmt.Errorf("constfn: division by zero")
			}
			return isa.Integer(a.Int / b.Int), nil
		case hir.OpRem:
			if b.Int == 0 {
				return isa.Value{}, fmt.Errorf("constfn: division by zero")
			}
			return isa.Integer(a.Int % b.Int), nil
		case hir.OpEq:
			return isa.Bool(a.Int == b.Int), nil
		case hir.OpNeq:
			return isa.Bool(a.Int != b.Int), nil
		case hir.OpLt:
			return isa.Bool(a.Int < b.Int), nil
		case hir.OpGt:
			return isa.Bool(a.Int > b.Int), nil
		case hir.OpLte:
			return isa.Bool(a.Int <= b.Int), nil
		case hir.OpGte:
			return isa.Bool(a.Int >= b.Int), nil
		}
	}
	if op == hir.OpEq {
		return isa.Bool(isa.Equal(a, b)), nil
	}
	if op == hir.OpNeq {
		return isa.Bool(!isa.Equal(a, b)), nil
	}
	return isa.Value{}, fmt.Errorf("constfn: unsupported binary operator %v on %v/%v", op, a.Kind, b.Kind)
}
