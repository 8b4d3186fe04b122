// Package commit retires instructions in program order.
//
// Results arrive out of order and wait in a reorder buffer indexed by
// sequence number. The commit Unit pops the window head once its result is
// present, commits its destination tag and tells the control flow manager
// to advance.
package commit

import (
	"fmt"

	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/control"
	"github.com/sarchlab/lizard/timing/rename"
)

// Status tells whether an instruction completed normally.
type Status uint8

// Writeback statuses.
const (
	StatusValid Status = iota
	StatusException
)

func (s Status) String() string {
	if s == StatusException {
		return "exception"
	}
	return "valid"
}

// Writeback is the record an instruction leaves in the reorder buffer.
type Writeback struct {
	Seq    control.Seq
	PC     uint64
	Status Status
	Cause  insts.Cause

	// RdValid is set when Rd must be committed at retire.
	RdValid bool
	Rd      rename.Preg

	// Speculative is set for control flow instructions that held SpecIdx.
	Speculative bool
	SpecIdx     rename.SnapshotID

	// Mispredicted is set when the fetched path after this instruction was
	// wrong; Target is the correct next PC.
	Mispredicted bool
	Target       uint64

	StoreValid bool
	StoreAddr  uint64
	StoreData  uint64
}

// ROBState is the complete state of a reorder buffer.
type ROBState struct {
	Valid   []bool
	Entries []Writeback
}

// NewROBState returns an empty buffer with the given capacity.
func NewROBState(capacity int) ROBState {
	return ROBState{
		Valid:   make([]bool, capacity),
		Entries: make([]Writeback, capacity),
	}
}

// Clone returns a deep copy of the state.
func (s ROBState) Clone() ROBState {
	return ROBState{
		Valid:   append([]bool(nil), s.Valid...),
		Entries: append([]Writeback(nil), s.Entries...),
	}
}

// Capacity returns the number of slots.
func (s ROBState) Capacity() int {
	return len(s.Valid)
}

// CheckDone reports whether the result of seq has arrived.
func (s ROBState) CheckDone(seq control.Seq) bool {
	i := s.slot(seq)
	return s.Valid[i] && s.Entries[i].Seq == seq
}

// Peek returns the record of seq without removing it.
func (s ROBState) Peek(seq control.Seq) (Writeback, bool) {
	if !s.CheckDone(seq) {
		return Writeback{}, false
	}
	return s.Entries[s.slot(seq)], true
}

// Occupancy returns the number of results waiting to retire.
func (s ROBState) Occupancy() int {
	n := 0
	for _, v := range s.Valid {
		if v {
			n++
		}
	}
	return n
}

func (s ROBState) slot(seq control.Seq) int {
	return int(seq) % len(s.Valid)
}

func (s *ROBState) add(wb Writeback) {
	i := s.slot(wb.Seq)
	if s.Valid[i] {
		panic(fmt.Sprintf("reorder buffer: slot of seq %d holds seq %d",
			wb.Seq, s.Entries[i].Seq))
	}
	s.Valid[i] = true
	s.Entries[i] = wb
}

// free pops the result of head, which must be the window head.
func (s *ROBState) free(head control.Seq) Writeback {
	if !s.CheckDone(head) {
		panic(fmt.Sprintf("reorder buffer: head seq %d is not done", head))
	}
	i := s.slot(head)
	wb := s.Entries[i]
	s.Valid[i] = false
	s.Entries[i] = Writeback{}
	return wb
}

func (s *ROBState) discard(keep func(control.Seq) bool) {
	for i, v := range s.Valid {
		if v && !keep(s.Entries[i].Seq) {
			s.Valid[i] = false
			s.Entries[i] = Writeback{}
		}
	}
}
