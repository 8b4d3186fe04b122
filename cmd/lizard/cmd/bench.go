package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/lizard/benchmarks"
	"github.com/sarchlab/lizard/timing/pipeline"
)

type benchOptions struct {
	configPath string
	recovery   string
	format     string
	core       bool
}

// NewCmdBench describes the CLI command to run the microbenchmarks.
func NewCmdBench(out io.Writer) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Runs the timing microbenchmarks and reports CPI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doBench(out, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Core configuration file (YAML or JSON)")
	f.StringVar(&opts.recovery, "recovery", "", "Misprediction recovery mode (execute, commit)")
	f.StringVarP(&opts.format, "output", "o", "text", "Output format (text, csv, json)")
	f.BoolVar(&opts.core, "core", false, "Run only the core benchmark subset")
	return cmd
}

func doBench(out io.Writer, opts *benchOptions) error {
	config := benchmarks.DefaultConfig()
	config.Output = out

	if opts.configPath != "" {
		c, err := pipeline.LoadConfig(opts.configPath)
		if err != nil {
			return errors.Wrap(err, "loading core config")
		}
		config.Core = c
	}
	if opts.recovery != "" {
		config.Core.Recovery = pipeline.RecoveryMode(opts.recovery)
	}
	if err := config.Core.Validate(); err != nil {
		return errors.Wrap(err, "invalid core config")
	}

	harness := benchmarks.NewHarness(config)
	if opts.core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	results := harness.RunAll()

	switch opts.format {
	case "text":
		harness.PrintResults(results)
	case "csv":
		harness.PrintCSV(results)
	case "json":
		if err := harness.PrintJSON(results); err != nil {
			return errors.Wrap(err, "writing results")
		}
	default:
		return errors.Errorf("unknown output format %q", opts.format)
	}

	for _, r := range results {
		if r.Err != "" {
			return errors.Errorf("benchmark %s: %s", r.Name, r.Err)
		}
		if !r.Passed {
			return errors.Errorf("benchmark %s exited with %d", r.Name, r.ExitCode)
		}
	}
	return nil
}
