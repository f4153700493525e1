package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// asmCmd compiles the built-in fixture program and prints its
// disassembly, the same concern informatter-nilan's emitBytecodeCmd
// covers for its own source-file-driven compiler.
type asmCmd struct{}

func (*asmCmd) Name() string     { return "asm" }
func (*asmCmd) Synopsis() string { return "lower the fixture program and print its disassembly" }
func (*asmCmd) Usage() string {
	return `asm:
  Lower the built-in fixture program to bytecode and print it.
`
}
func (*asmCmd) SetFlags(f *flag.FlagSet) {}

func (*asmCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fix, err := lowerFixture()
	if err != nil {
		return fatalf("lowering failed: %v", err)
	}
	for i, e := range fix.Asm.Entries() {
		fmt.Printf("%4d  %s\n", i, e.Inst)
	}
	for _, n := range fix.Diag.Notes {
		fmt.Fprintf(os.Stderr, "note: %s\n", n.Message)
	}
	return subcommands.ExitSuccess
}
