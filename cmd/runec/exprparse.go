package main

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/VorpalBlade/rune/hir"
)

// parseArith is a tiny hand-rolled recursive-descent parser over
// integer arithmetic (+ - * / ( ) unary -), used only to give repl's
// calculator a way to build an hir.Expr from a typed line: producing
// hir trees from source text in general is out of scope for this
// module, but a single-expression integer calculator is a reasonable
// demo surface for an interactive command, not a front end for the
// language itself.
type exprParser struct {
	toks []string
	pos  int
}

func tokenizeArith(s string) ([]string, error) {
	var toks []string
	i := 0
	runes := []rune(s)
	for i < len(runes) {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case unicode.IsDigit(c):
			start := i
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			toks = append(toks, string(runes[start:i]))
		case strings.ContainsRune("+-*/()", c):
			toks = append(toks, string(c))
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

func parseArith(s string) (hir.Expr, error) {
	toks, err := tokenizeArith(s)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	p := &exprParser{toks: toks}
	e, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("unexpected trailing input at %q", p.toks[p.pos])
	}
	return e, nil
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *exprParser) parseSum() (hir.Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for p.peek() == "+" || p.peek() == "-" {
		op := p.peek()
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		binOp := hir.OpAdd
		if op == "-" {
			binOp = hir.OpSub
		}
		left = &hir.Binary{Op: binOp, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseProduct() (hir.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "*" || p.peek() == "/" {
		op := p.peek()
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		binOp := hir.OpMul
		if op == "/" {
			binOp = hir.OpDiv
		}
		left = &hir.Binary{Op: binOp, Left: left, Right: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (hir.Expr, error) {
	if p.peek() == "-" {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &hir.Unary{Op: hir.UnaryNeg, Operand: operand}, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (hir.Expr, error) {
	tok := p.peek()
	switch {
	case tok == "":
		return nil, fmt.Errorf("unexpected end of input")
	case tok == "(":
		p.pos++
		e, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("expected ')'")
		}
		p.pos++
		return e, nil
	default:
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", tok)
		}
		p.pos++
		return &hir.Literal{Kind: hir.LitInteger, Int: v}, nil
	}
}
