// Command lizard runs micro-op programs on the out-of-order core model.
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
