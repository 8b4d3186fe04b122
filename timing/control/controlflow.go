// Package control tracks program order for the out-of-order core.
//
// The ControlFlowManager hands out sequence numbers to instructions as they
// enter the window, remembers which instruction is oldest, and latches
// redirects of the fetch PC. Sequence numbers live on a ring of
// 2^SeqIdxBits values, so every ordering question is answered relative to
// the current head.
package control

import (
	"errors"
	"fmt"
)

// Seq is an instruction sequence number.
type Seq uint32

// Config sizes the control flow manager.
type Config struct {
	SeqIdxBits int `json:"seq_idx_bits"`

	// MaxEntries bounds the number of in-flight instructions. Zero means
	// the whole ring.
	MaxEntries int `json:"max_entries"`

	RegisterPorts int `json:"register_ports"`
	CommitPorts   int `json:"commit_ports"`

	// ResetVector is the fetch target latched on reset.
	ResetVector uint64 `json:"reset_vector"`
}

// DefaultConfig returns a 32-entry window with single-wide ports.
func DefaultConfig() Config {
	return Config{
		SeqIdxBits:    5,
		RegisterPorts: 1,
		CommitPorts:   1,
	}
}

// Validate checks that the configuration can be built.
func (c Config) Validate() error {
	if c.SeqIdxBits < 1 || c.SeqIdxBits > 16 {
		return errors.New("seq_idx_bits must be between 1 and 16")
	}
	if c.MaxEntries < 0 || c.MaxEntries > c.RingSize() {
		return fmt.Errorf("max_entries must be between 0 and %d", c.RingSize())
	}
	if c.RegisterPorts < 1 || c.CommitPorts < 1 {
		return errors.New("register_ports and commit_ports must be at least 1")
	}
	return nil
}

// RingSize returns the number of distinct sequence numbers.
func (c Config) RingSize() int {
	return 1 << c.SeqIdxBits
}

// Capacity returns the maximum number of in-flight instructions.
func (c Config) Capacity() int {
	if c.MaxEntries == 0 {
		return c.RingSize()
	}
	return c.MaxEntries
}

// Entry is what the manager remembers about an in-flight instruction.
type Entry struct {
	PC          uint64
	Speculative bool
}

// State is the complete state of the control flow manager.
type State struct {
	Head  Seq
	Tail  Seq
	Count int

	RedirectValid  bool
	RedirectTarget uint64

	// Entries is indexed by sequence number.
	Entries []Entry
}

// NewState returns the reset state: an empty window and a redirect to the
// reset vector.
func (c Config) NewState() State {
	return State{
		RedirectValid:  true,
		RedirectTarget: c.ResetVector,
		Entries:        make([]Entry, c.RingSize()),
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	c.Entries = append([]Entry(nil), s.Entries...)
	return c
}

// RegisterRequest enters one instruction into the window.
type RegisterRequest struct {
	PC          uint64
	Speculative bool
}

// RegisterResult is the response of one register port.
type RegisterResult struct {
	Seq     Seq
	Success bool
}

// SquashRequest drops every instruction younger than Seq.
type SquashRequest struct {
	Call bool
	Seq  Seq
}

// RedirectRequest latches a new fetch target for the next tick.
type RedirectRequest struct {
	Call   bool
	Target uint64
}

// Inputs holds every request made to the manager in one tick.
type Inputs struct {
	// Commit is the number of instructions retired from the head.
	Commit int

	Register []RegisterRequest
	Squash   SquashRequest
	Flush    bool
	Redirect RedirectRequest
}

// Outputs holds the responses of one tick.
type Outputs struct {
	Register []RegisterResult
}

// Next computes the state after one tick. Register ports see the window
// as it was at the start of the tick, so a same-tick commit does not make
// room for them. Then the commit moves the head, squash or flush trims the
// tail and the redirect is latched. A redirect is only visible through
// CheckRedirect during the following tick.
func (c Config) Next(s State, in Inputs) (State, Outputs) {
	if in.Commit < 0 || in.Commit > c.CommitPorts {
		panic(fmt.Sprintf("control flow: %d commits, %d ports",
			in.Commit, c.CommitPorts))
	}
	if len(in.Register) > c.RegisterPorts {
		panic(fmt.Sprintf("control flow: %d registers, %d ports",
			len(in.Register), c.RegisterPorts))
	}
	if in.Commit > s.Count {
		panic(fmt.Sprintf("control flow: commit of %d with %d in flight",
			in.Commit, s.Count))
	}

	next := s.Clone()

	out := Outputs{Register: make([]RegisterResult, len(in.Register))}
	for i, req := range in.Register {
		if s.Count+i >= c.Capacity() {
			break
		}
		out.Register[i] = RegisterResult{Seq: next.Tail, Success: true}
		next.Entries[next.Tail] = Entry(req)
		next.Tail = c.add(next.Tail, 1)
		next.Count++
	}

	next.Head = c.add(next.Head, in.Commit)
	next.Count -= in.Commit

	switch {
	case in.Flush:
		next.Tail = next.Head
		next.Count = 0
	case in.Squash.Call:
		if !c.inWindow(next, in.Squash.Seq) {
			panic(fmt.Sprintf("control flow: squash of seq %d outside window",
				in.Squash.Seq))
		}
		next.Count = c.age(next, in.Squash.Seq) + 1
		next.Tail = c.add(in.Squash.Seq, 1)
	}

	next.RedirectValid = in.Redirect.Call
	next.RedirectTarget = 0
	if in.Redirect.Call {
		next.RedirectTarget = in.Redirect.Target
	}

	return next, out
}

func (c Config) add(seq Seq, n int) Seq {
	return Seq((int(seq) + n) & (c.RingSize() - 1))
}

func (c Config) age(s State, seq Seq) int {
	return (int(seq) - int(s.Head)) & (c.RingSize() - 1)
}

func (c Config) inWindow(s State, seq Seq) bool {
	return int(seq) < c.RingSize() && c.age(s, seq) < s.Count
}
