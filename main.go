// Package main provides the entry point for Lizard, a cycle-level model of
// the rename and commit stages of an out-of-order RISC-V core.
//
// It is the same command as ./cmd/lizard.
package main

import (
	"os"

	"github.com/sarchlab/lizard/cmd/lizard/cmd"
)

func main() {
	if err := cmd.NewLizardCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
