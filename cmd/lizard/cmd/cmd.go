// Package cmd implements the lizard command line.
package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// DefaultLogLevel is the log level used when --verbosity is not given.
const DefaultLogLevel = logrus.WarnLevel

// NewLizardCommand builds the root command. Results go to out and logs to
// errOut.
func NewLizardCommand(out, errOut io.Writer) *cobra.Command {
	var v string

	rootCmd := &cobra.Command{
		Use:   "lizard",
		Short: "A cycle-level model of an out-of-order RISC-V rename and commit core.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return SetUpLogs(errOut, v)
		},
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.AddCommand(NewCmdRun(out))
	rootCmd.AddCommand(NewCmdBench(out))
	rootCmd.AddCommand(NewCmdConfig(out))

	rootCmd.PersistentFlags().StringVarP(&v, "verbosity", "v", DefaultLogLevel.String(),
		"Log level (debug, info, warn, error, fatal, panic)")
	return rootCmd
}

// SetUpLogs points the standard logger at out and sets its level.
func SetUpLogs(out io.Writer, level string) error {
	logrus.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "parsing log level")
	}
	logrus.SetLevel(lvl)
	return nil
}
