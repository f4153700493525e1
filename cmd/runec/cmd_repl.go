package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/VorpalBlade/rune/vm"
	"github.com/chzyer/readline"
	"github.com/google/subcommands"
)

// replCmd is an interactive calculator over the same lowering/
// execution path the rest of runec drives: each line is parsed as an
// integer arithmetic expression, lowered to bytecode, and executed on
// a fresh vm.VM, exercising internal/lower and vm end to end without a
// full source-language front end.
//
// Grounded on informatter-nilan/cmd_repl.go's replCmd shape, rebuilt on
// chzyer/readline instead of a bare bufio.Scanner for history and line
// editing.
type replCmd struct{}

func (*replCmd) Name() string     { return "repl" }
func (*replCmd) Synopsis() string { return "interactive integer-arithmetic calculator" }
func (*replCmd) Usage() string {
	return `repl:
  Start an interactive session. Each line is parsed as an integer
  arithmetic expression, lowered to bytecode, and executed.
  Type "exit" or Ctrl-D to quit.
`
}
func (*replCmd) SetFlags(f *flag.FlagSet) {}

func (*replCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rl, err := readline.New(">>> ")
	if err != nil {
		return fatalf("readline init failed: %v", err)
	}
	defer rl.Close()

	fmt.Println("runec calculator repl. Type \"exit\" or Ctrl-D to quit.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return subcommands.ExitSuccess
		}
		if err != nil {
			return fatalf("readline error: %v", err)
		}
		if line == "" {
			continue
		}
		if line == "exit" {
			return subcommands.ExitSuccess
		}

		if err := evalLine(line); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func evalLine(line string) error {
	e, err := parseArith(line)
	if err != nil {
		return err
	}
	fix, err := lowerExprOnce(e)
	if err != nil {
		return err
	}
	machine := vm.New(fix.Asm.Entries(), fix.Unit)
	machine.Stack().Resize(fix.FrameSize)
	if err := machine.Run(); err != nil {
		return err
	}
	result, err := machine.Stack().At(0)
	if err != nil {
		return err
	}
	fmt.Println(resultString(result))
	return nil
}
