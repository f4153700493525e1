package main

import (
	"context"
	"flag"

	"github.com/VorpalBlade/rune/internal/tui"
	"github.com/google/subcommands"
)

// debugCmd lowers the fixture program and launches the bubbletea
// single-step debugger over it.
type debugCmd struct{}

func (*debugCmd) Name() string     { return "debug" }
func (*debugCmd) Synopsis() string { return "step through the fixture program's bytecode" }
func (*debugCmd) Usage() string {
	return `debug:
  Lower the built-in fixture program and open the interactive
  single-step debugger over it.
`
}
func (*debugCmd) SetFlags(f *flag.FlagSet) {}

func (*debugCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fix, err := lowerFixture()
	if err != nil {
		return fatalf("lowering failed: %v", err)
	}
	if err := tui.Start(fix.Asm.Entries(), fix.FrameSize, fix.Unit); err != nil {
		return fatalf("debugger failed: %v", err)
	}
	return subcommands.ExitSuccess
}
