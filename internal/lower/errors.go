package lower

import (
	"fmt"

	"github.com/VorpalBlade/rune/hir"
)

// ErrorKind enumerates the compile-time error kinds spec.md §7 lists as
// representative (not exhaustive) for this backend.
type ErrorKind int

const (
	ErrUnsupportedSelf ErrorKind = iota
	ErrUnsupportedAssignExpr
	ErrUnsupportedBinaryExpr
	ErrUnsupportedBinaryOp
	ErrUnsupportedUnaryOp
	ErrUnsupportedPatternExpr
	ErrBadFieldAccess
	ErrBreakOutsideOfLoop
	ErrContinueOutsideOfLoop
	ErrUnsupportedArgumentCount
	ErrUnboundNames
	ErrVariableNotFound
	ErrVariableMoved
	ErrBudgetExhausted
)

var kindNames = map[ErrorKind]string{
	ErrUnsupportedSelf:          "UnsupportedSelf",
	ErrUnsupportedAssignExpr:    "UnsupportedAssignExpr",
	ErrUnsupportedBinaryExpr:    "UnsupportedBinaryExpr",
	ErrUnsupportedBinaryOp:      "UnsupportedBinaryOp",
	ErrUnsupportedUnaryOp:       "UnsupportedUnaryOp",
	ErrUnsupportedPatternExpr:   "UnsupportedPatternExpr",
	ErrBadFieldAccess:           "BadFieldAccess",
	ErrBreakOutsideOfLoop:       "BreakOutsideOfLoop",
	ErrContinueOutsideOfLoop:    "ContinueOutsideOfLoop",
	ErrUnsupportedArgumentCount: "UnsupportedArgumentCount",
	ErrUnboundNames:             "UnboundNames",
	ErrVariableNotFound:         "VariableNotFound",
	ErrVariableMoved:            "VariableMoved",
	ErrBudgetExhausted:          "BudgetExhausted",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// CompileError is the structured error every lowering routine returns
// on failure: a kind plus the narrowest span available (the
// sub-expression whose lowering failed), per spec.md §7's propagation
// rule. Lowering routines do not catch; a CompileError aborts the
// current function's compilation.
type CompileError struct {
	Kind    ErrorKind
	Span    hir.Span
	Message string
}

func (e *CompileError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s at %d..%d: %s", e.Kind, e.Span.Start, e.Span.End, e.Message)
	}
	return fmt.Sprintf("%s at %d..%d", e.Kind, e.Span.Start, e.Span.End)
}

func newError(kind ErrorKind, span hir.Span, format string, args ...any) error {
	return &CompileError{Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}
