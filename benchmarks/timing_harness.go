// Package benchmarks provides timing benchmark infrastructure for the
// out-of-order core.
package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/lizard/emu"
	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/core"
	"github.com/sarchlab/lizard/timing/pipeline"
)

// ProgramBase is the PC the benchmark programs are assembled at.
const ProgramBase = 0x1000

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// Recovery is the misprediction recovery mode of the run
	Recovery pipeline.RecoveryMode `json:"recovery"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of retired ops
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// Dispatch stall cycles by reason
	StallWindowFull uint64 `json:"stall_window_full"`
	StallNoFreeRegs uint64 `json:"stall_no_free_regs"`
	StallNoSnapshot uint64 `json:"stall_no_snapshot"`
	StallSameGroup  uint64 `json:"stall_same_group"`

	// Recovery counters
	Mispredictions uint64 `json:"mispredictions"`
	Restores       uint64 `json:"restores"`
	Rollbacks      uint64 `json:"rollbacks"`
	Squashed       uint64 `json:"squashed"`

	// Branch predictor stats
	BranchPredictions     uint64  `json:"branch_predictions,omitempty"`
	BranchCorrect         uint64  `json:"branch_correct,omitempty"`
	BranchAccuracyPercent float64 `json:"branch_accuracy_percent,omitempty"`

	// ExitCode is the program's exit code
	ExitCode uint64 `json:"exit_code"`

	// Passed is false when the exit code does not match the expected one
	Passed bool `json:"passed"`

	// Err holds the reason a benchmark could not run
	Err string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Program is the assembly text, assembled at ProgramBase
	Program []string

	// Data is the initial contents of data memory
	Data map[uint64]uint64

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit uint64
}

// Assemble builds the benchmark's program.
func (b Benchmark) Assemble() (*insts.Program, error) {
	prog, err := insts.NewAssembler(ProgramBase).Assemble(b.Program)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}
	for addr, value := range b.Data {
		prog.Data[addr] = value
	}
	return prog, nil
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Core is the core configuration every benchmark runs on
	Core *pipeline.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Core:    pipeline.DefaultConfig(),
		Output:  os.Stdout,
		Verbose: false,
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Core == nil {
		config.Core = pipeline.DefaultConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			_, _ = fmt.Fprintf(h.config.Output, "%s: cycles=%d insts=%d cpi=%.3f\n",
				result.Name, result.SimulatedCycles,
				result.InstructionsRetired, result.CPI)
		}
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh core.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
		Recovery:    h.config.Core.Recovery,
	}

	prog, err := bench.Assemble()
	if err != nil {
		result.Err = err.Error()
		return result
	}

	c, err := core.NewCore(h.config.Core, prog,
		pipeline.WithMemory(emu.NewMemory()))
	if err != nil {
		result.Err = err.Error()
		return result
	}

	start := time.Now()
	exitCode, err := c.Run()
	result.WallTime = time.Since(start)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	stats := c.Pipeline.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.StallWindowFull = stats.StallWindowFull
	result.StallNoFreeRegs = stats.StallNoFreeRegs
	result.StallNoSnapshot = stats.StallNoSnapshot
	result.StallSameGroup = stats.StallSameGroup
	result.Mispredictions = stats.Mispredictions
	result.Restores = stats.Restores
	result.Rollbacks = stats.Rollbacks
	result.Squashed = stats.Squashed
	result.ExitCode = exitCode
	result.Passed = exitCode == bench.ExpectedExit

	bpStats := c.Pipeline.PredictorStats()
	result.BranchPredictions = bpStats.Predictions
	result.BranchCorrect = bpStats.Correct
	result.BranchAccuracyPercent = bpStats.Accuracy()

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== Lizard Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		if r.Err != "" {
			_, _ = fmt.Fprintf(out, "  Error: %s\n\n", r.Err)
			continue
		}
		_, _ = fmt.Fprintf(out, "  Exit Code: %d (passed: %v)\n", r.ExitCode, r.Passed)
		_, _ = fmt.Fprintf(out, "  Recovery: %s\n", r.Recovery)
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintln(out, "  --- Dispatch Stalls ---")
		_, _ = fmt.Fprintf(out, "  Window Full:   %d\n", r.StallWindowFull)
		_, _ = fmt.Fprintf(out, "  No Free Regs:  %d\n", r.StallNoFreeRegs)
		_, _ = fmt.Fprintf(out, "  No Snapshot:   %d\n", r.StallNoSnapshot)
		_, _ = fmt.Fprintf(out, "  Same Group:    %d\n", r.StallSameGroup)
		_, _ = fmt.Fprintln(out, "  --- Recovery ---")
		_, _ = fmt.Fprintf(out, "  Mispredictions: %d\n", r.Mispredictions)
		_, _ = fmt.Fprintf(out, "  Restores:       %d\n", r.Restores)
		_, _ = fmt.Fprintf(out, "  Rollbacks:      %d\n", r.Rollbacks)
		_, _ = fmt.Fprintf(out, "  Squashed:       %d\n", r.Squashed)

		if r.BranchPredictions > 0 {
			_, _ = fmt.Fprintln(out, "  --- Branch Predictor ---")
			_, _ = fmt.Fprintf(out, "  Predictions:     %d\n", r.BranchPredictions)
			_, _ = fmt.Fprintf(out, "  Correct:         %d\n", r.BranchCorrect)
			_, _ = fmt.Fprintf(out, "  Accuracy:        %.1f%%\n", r.BranchAccuracyPercent)
		}

		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,recovery,cycles,instructions,cpi,mispredictions,restores,rollbacks,squashed,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%s,%d,%d,%.3f,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Recovery,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.Mispredictions,
			r.Restores,
			r.Rollbacks,
			r.Squashed,
			r.ExitCode,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
