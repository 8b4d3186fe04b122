package commit

import (
	"errors"
	"fmt"

	"github.com/sarchlab/lizard/timing/control"
	"github.com/sarchlab/lizard/timing/rename"
)

// Config sizes the commit unit.
type Config struct {
	// SeqIdxBits must match the control flow manager.
	SeqIdxBits int

	// ROBSize is the reorder buffer capacity, a power of two no larger than
	// the sequence number ring.
	ROBSize int

	// Width is the maximum number of instructions retired per tick.
	Width int

	// AddPorts is the maximum number of writebacks accepted per tick.
	AddPorts int

	// StopAfterMispredict ends a retire group at a mispredicted control
	// flow instruction so the core can recover before anything younger
	// retires.
	StopAfterMispredict bool
}

// Validate checks that the configuration can be built.
func (c Config) Validate() error {
	ring := 1 << c.SeqIdxBits
	if c.ROBSize < 1 || c.ROBSize&(c.ROBSize-1) != 0 {
		return errors.New("rob_size must be a power of two")
	}
	if c.ROBSize > ring {
		return fmt.Errorf("rob_size must be at most %d", ring)
	}
	if c.Width < 1 || c.AddPorts < 1 {
		return errors.New("commit width and writeback ports must be at least 1")
	}
	return nil
}

// State is the complete state of the commit unit.
type State struct {
	ROB ROBState
}

// NewState returns an empty commit unit.
func (c Config) NewState() State {
	return State{ROB: NewROBState(c.ROBSize)}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{ROB: s.ROB.Clone()}
}

// Inputs holds everything the commit unit sees in one tick.
type Inputs struct {
	// Head and Count describe the window at the start of the tick.
	Head  control.Seq
	Count int

	Writeback []Writeback

	// Squash drops every result younger than Squash.Seq. Flush drops all.
	Squash control.SquashRequest
	Flush  bool
}

// Outputs holds what the commit unit retired in one tick, along with the
// requests it makes of the renaming unit and the control flow manager.
type Outputs struct {
	Retired []Writeback

	// CommitTags are the destination tags to commit, in program order.
	CommitTags []rename.Preg

	// Commit is the number of window entries to retire.
	Commit int
}

// Retirable returns the results that would retire this tick, oldest first.
func (c Config) Retirable(s State, head control.Seq, count int) []Writeback {
	var group []Writeback
	for i := 0; i < c.Width && i < count; i++ {
		seq := c.add(head, i)
		wb, ok := s.ROB.Peek(seq)
		if !ok {
			break
		}
		group = append(group, wb)

		if wb.Status == StatusException {
			break
		}
		if c.StopAfterMispredict && wb.Mispredicted {
			break
		}
	}
	return group
}

// Retire computes what the head group of a tick asks of the other units
// without changing the state: the popped results, the destination tags of
// the valid ones and the number of window entries to retire.
func (c Config) Retire(s State, head control.Seq, count int) Outputs {
	out := Outputs{}
	for _, wb := range c.Retirable(s, head, count) {
		out.Retired = append(out.Retired, wb)
		if wb.Status == StatusValid && wb.RdValid {
			out.CommitTags = append(out.CommitTags, wb.Rd)
		}
	}
	out.Commit = len(out.Retired)
	return out
}

// Next computes the state after one tick. The head group retires first
// from the results present at the start of the tick; arriving writebacks
// are then inserted and finally squashed results are dropped.
func (c Config) Next(s State, in Inputs) (State, Outputs) {
	if len(in.Writeback) > c.AddPorts {
		panic(fmt.Sprintf("commit: %d writebacks, %d ports",
			len(in.Writeback), c.AddPorts))
	}

	next := s.Clone()
	out := c.Retire(s, in.Head, in.Count)

	head := in.Head
	for range out.Retired {
		next.ROB.free(head)
		head = c.add(head, 1)
	}

	for _, wb := range in.Writeback {
		next.ROB.add(wb)
	}

	switch {
	case in.Flush:
		next.ROB.discard(func(control.Seq) bool { return false })
	case in.Squash.Call:
		limit := c.age(head, in.Squash.Seq)
		next.ROB.discard(func(seq control.Seq) bool {
			return c.age(head, seq) <= limit
		})
	}

	return next, out
}

func (c Config) add(seq control.Seq, n int) control.Seq {
	return control.Seq((int(seq) + n) & (1<<c.SeqIdxBits - 1))
}

func (c Config) age(head, seq control.Seq) int {
	return (int(seq) - int(head)) & (1<<c.SeqIdxBits - 1)
}

// Unit holds the live state of the commit unit.
type Unit struct {
	config Config
	state  State
}

// NewUnit creates an empty commit unit. It panics if the config is invalid.
func NewUnit(config Config) *Unit {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("commit: %v", err))
	}
	return &Unit{config: config, state: config.NewState()}
}

// Config returns the unit's configuration.
func (u *Unit) Config() Config {
	return u.config
}

// Tick applies one tick of inputs and returns what retired.
func (u *Unit) Tick(in Inputs) Outputs {
	var out Outputs
	u.state, out = u.config.Next(u.state, in)
	return out
}

// Retire returns what the next Tick will retire for the given window.
func (u *Unit) Retire(head control.Seq, count int) Outputs {
	return u.config.Retire(u.state, head, count)
}

// State returns a copy of the current state.
func (u *Unit) State() State {
	return u.state.Clone()
}

// Reset empties the reorder buffer.
func (u *Unit) Reset() {
	u.state = u.config.NewState()
}
