package main

import (
	"testing"

	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/vm"
)

func runFixture(t *testing.T, fix *fixture) isa.Value {
	t.Helper()
	machine := vm.New(fix.Asm.Entries(), fix.Unit)
	machine.Stack().Resize(fix.FrameSize)
	if err := machine.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, err := machine.Stack().At(0)
	if err != nil {
		t.Fatalf("At(0): %v", err)
	}
	return v
}

func TestLowerFixtureMatchesHandComputedResult(t *testing.T) {
	// let x = 1 + 2*3 (=7); total = x; while i<4 { total += i; i += 1 }
	// total ends at 7 + (0+1+2+3) = 13.
	fix, err := lowerFixture()
	if err != nil {
		t.Fatalf("lowerFixture: %v", err)
	}
	got := runFixture(t, fix)
	if got.Kind != isa.ValueInteger || got.Int != 13 {
		t.Fatalf("fixture result = %v, want Integer(13)", got)
	}
}

func TestLowerExprOnceEvaluatesArithmetic(t *testing.T) {
	e, err := parseArith("2 + 3 * 4")
	if err != nil {
		t.Fatalf("parseArith: %v", err)
	}
	fix, err := lowerExprOnce(e)
	if err != nil {
		t.Fatalf("lowerExprOnce: %v", err)
	}
	got := runFixture(t, fix)
	if got.Int != 14 {
		t.Fatalf("2 + 3*4 = %v, want Integer(14)", got)
	}
}

func TestParseArithPrecedenceAndParens(t *testing.T) {
	cases := []struct {
		expr string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 2 - 3", 5},
		{"-5 + 10", 5},
		{"8 / 2 / 2", 2},
	}
	for _, c := range cases {
		e, err := parseArith(c.expr)
		if err != nil {
			t.Fatalf("parseArith(%q): %v", c.expr, err)
		}
		fix, err := lowerExprOnce(e)
		if err != nil {
			t.Fatalf("lowerExprOnce(%q): %v", c.expr, err)
		}
		got := runFixture(t, fix)
		if got.Int != c.want {
			t.Fatalf("%q = %v, want Integer(%d)", c.expr, got, c.want)
		}
	}
}

func TestParseArithRejectsInvalidInput(t *testing.T) {
	cases := []string{"", "1 +", "(1 + 2", "abc", "1 2"}
	for _, c := range cases {
		if _, err := parseArith(c); err == nil {
			t.Fatalf("parseArith(%q): want error, got nil", c)
		}
	}
}

func TestLowerFixtureProducesInstructionsAndFrameSize(t *testing.T) {
	fix, err := lowerFixture()
	if err != nil {
		t.Fatalf("lowerFixture: %v", err)
	}
	if fix.Asm.Len() == 0 {
		t.Fatalf("fixture produced no instructions")
	}
	if fix.FrameSize <= 0 {
		t.Fatalf("FrameSize = %d, want > 0", fix.FrameSize)
	}
}
