// Package core provides the out-of-order CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of ops retired.
	Instructions uint64
	// Exceptions is the number of faulting ops retired.
	Exceptions uint64
	// Mispredictions is the number of retired control flow ops that were
	// followed by a wrong path.
	Mispredictions uint64
	// Restores and Rollbacks count snapshot restores and rollbacks to the
	// committed state.
	Restores  uint64
	Rollbacks uint64
	// Squashed is the number of ops dropped by recovery.
	Squashed uint64
}

// CPI returns the cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core represents a cycle-level out-of-order CPU core model.
type Core struct {
	// Pipeline is the underlying pipeline.
	Pipeline *pipeline.Pipeline
}

// NewCore creates a core that runs prog from its entry.
func NewCore(
	config *pipeline.Config,
	prog *insts.Program,
	opts ...pipeline.PipelineOption,
) (*Core, error) {
	p, err := pipeline.NewPipeline(config, prog, opts...)
	if err != nil {
		return nil, err
	}
	return &Core{Pipeline: p}, nil
}

// Tick executes one cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true once the program has finished.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// ExitCode returns the committed value of a0.
func (c *Core) ExitCode() uint64 {
	return c.Pipeline.ExitCode()
}

// ArchRegs returns the committed register values.
func (c *Core) ArchRegs() [pipeline.NumAregs]uint64 {
	return c.Pipeline.ArchRegs()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	s := c.Pipeline.Stats()
	return Stats{
		Cycles:         s.Cycles,
		Instructions:   s.Instructions,
		Exceptions:     s.Exceptions,
		Mispredictions: s.Mispredictions,
		Restores:       s.Restores,
		Rollbacks:      s.Rollbacks,
		Squashed:       s.Squashed,
	}
}

// Run executes the core until it halts.
// Returns the exit code.
func (c *Core) Run() (uint64, error) {
	return c.Pipeline.Run()
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Reset clears all core state.
func (c *Core) Reset() {
	c.Pipeline.Reset()
}
