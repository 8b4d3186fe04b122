package rename

import "fmt"

// RenameTableConfig describes a snapshotting rename table.
type RenameTableConfig struct {
	NumAregs     int
	NumSnapshots int
	LookupPorts  int
	UpdatePorts  int

	// ZeroTag is the tag register 0 is pinned to. Lookups of register 0
	// always return it and updates of register 0 are ignored.
	ZeroTag Preg

	// Initial is the mapping installed on reset.
	Initial []Preg
}

// RenameTableState is the complete state of a rename table.
type RenameTableState struct {
	Map       []Preg
	Snapshots [][]Preg
}

// RenameUpdate remaps one architectural register.
type RenameUpdate struct {
	Areg Areg
	Preg Preg
}

// RenameTableInputs holds all requests presented to a rename table in one
// tick.
type RenameTableInputs struct {
	Lookup   []Areg
	Update   []RenameUpdate
	Snapshot SnapshotCall
	Restore  SnapshotCall

	// Set, when non-nil, replaces the whole mapping.
	Set []Preg
}

// RenameTableOutputs holds the lookup results of one tick.
type RenameTableOutputs struct {
	Lookup []Preg
}

// NewRenameTableState returns the reset state for the config.
func (c RenameTableConfig) NewRenameTableState() RenameTableState {
	s := RenameTableState{
		Map:       make([]Preg, c.NumAregs),
		Snapshots: make([][]Preg, c.NumSnapshots),
	}
	copy(s.Map, c.Initial)
	if c.NumAregs > 0 {
		s.Map[0] = c.ZeroTag
	}
	for i := range s.Snapshots {
		s.Snapshots[i] = append([]Preg(nil), s.Map...)
	}
	return s
}

// Clone returns a deep copy of the state.
func (s RenameTableState) Clone() RenameTableState {
	c := RenameTableState{
		Map:       append([]Preg(nil), s.Map...),
		Snapshots: make([][]Preg, len(s.Snapshots)),
	}
	for i, snap := range s.Snapshots {
		c.Snapshots[i] = append([]Preg(nil), snap...)
	}
	return c
}

// Next computes the state after one tick. Lookups see the mapping from the
// start of the tick; then updates apply (a later port wins on the same
// register), then snapshot, restore and set.
func (c RenameTableConfig) Next(
	s RenameTableState,
	in RenameTableInputs,
) (RenameTableState, RenameTableOutputs) {
	c.checkInputs(in)

	out := RenameTableOutputs{Lookup: make([]Preg, len(in.Lookup))}
	for i, areg := range in.Lookup {
		out.Lookup[i] = s.Map[c.areg(areg)]
	}

	next := s.Clone()
	for _, u := range in.Update {
		if c.areg(u.Areg) == 0 {
			continue
		}
		next.Map[u.Areg] = u.Preg
	}

	if in.Snapshot.Call {
		copy(next.snapshot(in.Snapshot.ID), next.Map)
	}

	if in.Restore.Call {
		copy(next.Map, next.snapshot(in.Restore.ID))
	}

	if in.Set != nil {
		copy(next.Map, in.Set)
		next.Map[0] = c.ZeroTag
	}

	return next, out
}

func (c RenameTableConfig) checkInputs(in RenameTableInputs) {
	if len(in.Lookup) > c.LookupPorts {
		panic(fmt.Sprintf("rename table: %d lookups, %d ports",
			len(in.Lookup), c.LookupPorts))
	}
	if len(in.Update) > c.UpdatePorts {
		panic(fmt.Sprintf("rename table: %d updates, %d ports",
			len(in.Update), c.UpdatePorts))
	}
	if in.Set != nil && len(in.Set) != c.NumAregs {
		panic(fmt.Sprintf("rename table: set has %d entries, want %d",
			len(in.Set), c.NumAregs))
	}
}

func (c RenameTableConfig) areg(a Areg) int {
	if int(a) >= c.NumAregs {
		panic(fmt.Sprintf("rename table: register %d out of range", a))
	}
	return int(a)
}

func (s *RenameTableState) snapshot(id SnapshotID) []Preg {
	if int(id) < 0 || int(id) >= len(s.Snapshots) {
		panic(fmt.Sprintf("rename table: snapshot %d out of range", id))
	}
	return s.Snapshots[id]
}
