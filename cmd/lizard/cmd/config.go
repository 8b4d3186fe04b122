package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/sarchlab/lizard/timing/pipeline"
)

// NewCmdConfig describes the CLI command to print or write the default
// core configuration.
func NewCmdConfig(out io.Writer) *cobra.Command {
	var (
		filename string
		recovery string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Prints the default core configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := pipeline.DefaultConfig()
			if recovery != "" {
				config.Recovery = pipeline.RecoveryMode(recovery)
			}
			if err := config.Validate(); err != nil {
				return errors.Wrap(err, "invalid core config")
			}

			if filename != "" {
				return errors.Wrap(config.SaveConfig(filename), "writing config")
			}

			data, err := yaml.Marshal(config)
			if err != nil {
				return errors.Wrap(err, "marshaling config")
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Write the config to this file instead of stdout")
	cmd.Flags().StringVar(&recovery, "recovery", "", "Misprediction recovery mode (execute, commit)")
	return cmd
}
