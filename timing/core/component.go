package core

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
)

// Component drives a Core from an akita simulation engine, one pipeline
// cycle per tick. It stops ticking once the core halts or reaches the
// configured cycle limit.
type Component struct {
	*sim.TickingComponent

	core      *Core
	maxCycles uint64
	log       *logrus.Entry
}

// NewComponent creates a component ticking core at freq.
func NewComponent(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	core *Core,
) *Component {
	c := &Component{
		core:      core,
		maxCycles: core.Pipeline.Config().MaxCycles,
		log:       logrus.WithField("component", name),
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)
	return c
}

// Core returns the wrapped core.
func (c *Component) Core() *Core {
	return c.core
}

// Tick runs one cycle of the core. It reports no progress once the core
// has halted, which lets the engine run out of events.
func (c *Component) Tick() bool {
	if c.core.Halted() {
		return false
	}
	if c.maxCycles > 0 && c.core.Pipeline.Cycle() >= c.maxCycles {
		c.log.WithField("cycles", c.maxCycles).Warn("cycle limit reached")
		return false
	}

	c.core.Tick()

	if c.core.Halted() {
		c.log.WithFields(logrus.Fields{
			"cycles":    c.core.Stats().Cycles,
			"exit_code": c.core.ExitCode(),
		}).Debug("core halted")
	}

	return true
}
