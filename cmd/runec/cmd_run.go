package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/vm"
	"github.com/google/subcommands"
)

// runCmd lowers and executes the fixture program on vm.VM, reporting
// the value left at address 0 of the outermost frame; on success it
// always prints that value, unit included. The command shape follows
// informatter-nilan's runCmd.
type runCmd struct{}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "lower and execute the fixture program" }
func (*runCmd) Usage() string {
	return `run:
  Lower the built-in fixture program and execute it on the reference VM.
`
}
func (*runCmd) SetFlags(f *flag.FlagSet) {}

func (*runCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fix, err := lowerFixture()
	if err != nil {
		return fatalf("lowering failed: %v", err)
	}

	machine := vm.New(fix.Asm.Entries(), fix.Unit)
	machine.Stack().Resize(fix.FrameSize)
	if err := machine.Run(); err != nil {
		return fatalf("execution failed: %v", err)
	}

	result, err := machine.Stack().At(0)
	if err != nil {
		return fatalf("reading result failed: %v", err)
	}
	fmt.Println(resultString(result))
	return subcommands.ExitSuccess
}

func resultString(v isa.Value) string { return v.String() }
