package cmd

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/lizard/emu"
	"github.com/sarchlab/lizard/loader"
	"github.com/sarchlab/lizard/timing/core"
	"github.com/sarchlab/lizard/timing/pipeline"
)

type runOptions struct {
	configPath string
	recovery   string
	trapVector uint64
	maxCycles  uint64
	check      bool
	dump       bool
	engine     bool
}

// NewCmdRun describes the CLI command to run a program on the core.
func NewCmdRun(out io.Writer) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Runs a program on the out-of-order core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRun(out, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Core configuration file (YAML or JSON)")
	f.StringVar(&opts.recovery, "recovery", "", "Misprediction recovery mode (execute, commit)")
	f.Uint64Var(&opts.trapVector, "trap", 0, "Exception handler PC, overriding config and program")
	f.Uint64Var(&opts.maxCycles, "max-cycles", 0, "Stop after this many cycles (0 keeps the config value)")
	f.BoolVar(&opts.check, "check", false, "Compare the result against the functional emulator")
	f.BoolVar(&opts.dump, "dump", false, "Dump statistics and registers after the run")
	f.BoolVar(&opts.engine, "engine", false, "Drive the core from an akita event engine")
	return cmd
}

func doRun(out io.Writer, path string, opts *runOptions) error {
	log := logrus.WithFields(logrus.Fields{
		"run":     xid.New().String(),
		"program": path,
	})

	prog, err := loader.Load(path)
	if err != nil {
		return errors.Wrap(err, "loading program")
	}

	config, err := runConfig(prog, opts)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"recovery": config.Recovery,
		"entry":    fmt.Sprintf("0x%x", prog.Entry),
		"ops":      prog.Len(),
	}).Info("starting run")

	c, err := core.NewCore(config, prog.Program,
		pipeline.WithLogger(log.WithField("component", "pipeline")))
	if err != nil {
		return errors.Wrap(err, "creating core")
	}

	exitCode, err := runCore(c, opts.engine)
	if err != nil {
		return errors.Wrap(err, "running core")
	}

	stats := c.Stats()
	log.WithFields(logrus.Fields{
		"cycles":       stats.Cycles,
		"instructions": stats.Instructions,
		"exit_code":    exitCode,
	}).Info("run finished")

	fmt.Fprintf(out, "exit code:       %d\n", exitCode)
	fmt.Fprintf(out, "cycles:          %d\n", stats.Cycles)
	fmt.Fprintf(out, "instructions:    %d\n", stats.Instructions)
	fmt.Fprintf(out, "cpi:             %.3f\n", stats.CPI())
	fmt.Fprintf(out, "mispredictions:  %d\n", stats.Mispredictions)
	fmt.Fprintf(out, "exceptions:      %d\n", stats.Exceptions)

	if opts.dump {
		spew.Fdump(out, stats, c.Pipeline.PredictorStats(), c.ArchRegs())
	}

	if opts.check {
		if err := checkAgainstEmulator(c, prog, config); err != nil {
			return err
		}
		fmt.Fprintln(out, "check:           ok")
	}

	if prog.Exit != nil && *prog.Exit != exitCode {
		return errors.Errorf("exit code %d, expected %d", exitCode, *prog.Exit)
	}
	return nil
}

func runConfig(prog *loader.Program, opts *runOptions) (*pipeline.Config, error) {
	config := pipeline.DefaultConfig()
	if opts.configPath != "" {
		var err error
		config, err = pipeline.LoadConfig(opts.configPath)
		if err != nil {
			return nil, errors.Wrap(err, "loading core config")
		}
	}

	if opts.recovery != "" {
		config.Recovery = pipeline.RecoveryMode(opts.recovery)
	}
	if prog.TrapVector != 0 {
		config.TrapVector = prog.TrapVector
	}
	if opts.trapVector != 0 {
		config.TrapVector = opts.trapVector
	}
	if opts.maxCycles != 0 {
		config.MaxCycles = opts.maxCycles
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid core config")
	}
	return config, nil
}

func runCore(c *core.Core, useEngine bool) (uint64, error) {
	if !useEngine {
		return c.Run()
	}

	engine := sim.NewSerialEngine()
	comp := core.NewComponent("Core", engine, 1*sim.GHz, c)
	comp.TickLater()

	if err := engine.Run(); err != nil {
		return 0, err
	}
	if !c.Halted() {
		return 0, errors.Errorf("no halt after %d cycles", c.Stats().Cycles)
	}
	return c.ExitCode(), nil
}

// checkAgainstEmulator reruns the program on the functional emulator and
// compares every committed register and memory word.
func checkAgainstEmulator(
	c *core.Core,
	prog *loader.Program,
	config *pipeline.Config,
) error {
	e := emu.NewEmulator(prog.Program,
		emu.WithTrapVector(config.TrapVector),
		emu.WithMaxInstructions(c.Stats().Instructions+1))

	if _, err := e.Run(); err != nil {
		return errors.Wrap(err, "emulating program")
	}

	regs := c.ArchRegs()
	for r := range regs {
		want := e.RegFile().ReadReg(uint8(r))
		if regs[r] != want {
			return errors.Errorf("x%d is 0x%x, emulator has 0x%x", r, regs[r], want)
		}
	}
	mem := c.Pipeline.Memory()
	for _, addr := range e.Memory().Addresses() {
		if got, want := mem.Read(addr), e.Memory().Read(addr); got != want {
			return errors.Errorf("word 0x%x is 0x%x, emulator has 0x%x", addr, got, want)
		}
	}
	if got, want := c.Stats().Instructions, e.InstructionCount(); got != want {
		return errors.Errorf("retired %d ops, emulator executed %d", got, want)
	}
	return nil
}
