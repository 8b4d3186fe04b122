package rename

import "fmt"

// FreeListConfig describes a snapshotting free list.
type FreeListConfig struct {
	// Size is the number of indices managed by the list.
	Size int

	// AllocPorts and FreePorts bound the requests accepted per tick.
	AllocPorts int
	FreePorts  int

	// NumSnapshots is the number of allocation trackers.
	NumSnapshots int

	// UsedInitial marks indices [0, UsedInitial) as allocated on reset.
	UsedInitial int
}

// FreeListState is the complete state of a free list.
type FreeListState struct {
	// Free has one entry per index; true means the index can be allocated.
	Free []bool

	// Tracking[s][i] is set when index i was allocated after snapshot s.
	Tracking [][]bool
}

// SnapshotCall requests a snapshot or restore of the given id.
type SnapshotCall struct {
	Call bool
	ID   SnapshotID
}

// FreeListInputs holds all requests presented to a free list in one tick.
type FreeListInputs struct {
	// Alloc is the number of alloc ports called. Ports 0..Alloc-1 are used.
	Alloc int

	Free     []int
	Snapshot SnapshotCall
	Restore  SnapshotCall

	// Set, when non-nil, replaces the free bitmap.
	Set []bool
}

// AllocResult is the response of one alloc port.
type AllocResult struct {
	Success bool
	Index   int
}

// FreeListOutputs holds the per-port responses of one tick.
type FreeListOutputs struct {
	Alloc []AllocResult
}

// NewFreeListState returns the reset state for the config.
func (c FreeListConfig) NewFreeListState() FreeListState {
	s := FreeListState{
		Free:     make([]bool, c.Size),
		Tracking: make([][]bool, c.NumSnapshots),
	}
	for i := range s.Free {
		s.Free[i] = i >= c.UsedInitial
	}
	for i := range s.Tracking {
		s.Tracking[i] = make([]bool, c.Size)
	}
	return s
}

// Clone returns a deep copy of the state.
func (s FreeListState) Clone() FreeListState {
	c := FreeListState{
		Free:     append([]bool(nil), s.Free...),
		Tracking: make([][]bool, len(s.Tracking)),
	}
	for i, t := range s.Tracking {
		c.Tracking[i] = append([]bool(nil), t...)
	}
	return c
}

// FreeCount returns the number of free indices.
func (s FreeListState) FreeCount() int {
	n := 0
	for _, f := range s.Free {
		if f {
			n++
		}
	}
	return n
}

// Next computes the state after one tick. Requests apply in the order alloc,
// free, snapshot, restore, set. Allocation only considers indices that are
// free at the start of the tick.
func (c FreeListConfig) Next(
	s FreeListState,
	in FreeListInputs,
) (FreeListState, FreeListOutputs) {
	c.checkInputs(in)

	next := s.Clone()
	out := FreeListOutputs{Alloc: next.alloc(in.Alloc)}

	for _, idx := range in.Free {
		next.free(idx)
	}

	if in.Snapshot.Call {
		next.snapshot(in.Snapshot.ID)
	}

	if in.Restore.Call {
		next.restore(in.Restore.ID)
	}

	if in.Set != nil {
		next.set(in.Set)
	}

	return next, out
}

func (c FreeListConfig) checkInputs(in FreeListInputs) {
	if in.Alloc < 0 || in.Alloc > c.AllocPorts {
		panic(fmt.Sprintf("free list: %d alloc requests, %d ports",
			in.Alloc, c.AllocPorts))
	}
	if len(in.Free) > c.FreePorts {
		panic(fmt.Sprintf("free list: %d free requests, %d ports",
			len(in.Free), c.FreePorts))
	}
	if in.Set != nil && len(in.Set) != c.Size {
		panic(fmt.Sprintf("free list: set bitmap has %d entries, want %d",
			len(in.Set), c.Size))
	}
}

func (s *FreeListState) alloc(n int) []AllocResult {
	results := make([]AllocResult, n)
	next := 0
	for port := range results {
		for next < len(s.Free) && !s.Free[next] {
			next++
		}
		if next == len(s.Free) {
			break
		}

		results[port] = AllocResult{Success: true, Index: next}
		s.Free[next] = false
		for _, t := range s.Tracking {
			t[next] = true
		}
		next++
	}
	return results
}

func (s *FreeListState) free(idx int) {
	if idx < 0 || idx >= len(s.Free) {
		panic(fmt.Sprintf("free list: index %d out of range", idx))
	}
	if s.Free[idx] {
		panic(fmt.Sprintf("free list: double free of index %d", idx))
	}
	s.Free[idx] = true
}

func (s *FreeListState) snapshot(id SnapshotID) {
	t := s.tracker(id)
	for i := range t {
		t[i] = false
	}
}

func (s *FreeListState) restore(id SnapshotID) {
	for i, allocated := range s.tracker(id) {
		if allocated {
			s.Free[i] = true
		}
	}
}

func (s *FreeListState) set(free []bool) {
	copy(s.Free, free)
	for _, t := range s.Tracking {
		for i := range t {
			t[i] = false
		}
	}
}

func (s *FreeListState) tracker(id SnapshotID) []bool {
	if int(id) < 0 || int(id) >= len(s.Tracking) {
		panic(fmt.Sprintf("free list: snapshot %d out of range", id))
	}
	return s.Tracking[id]
}

// FreeList holds the live state of a free list and advances it tick by tick.
type FreeList struct {
	config FreeListConfig
	state  FreeListState
}

// NewFreeList creates a free list in its reset state.
func NewFreeList(config FreeListConfig) *FreeList {
	return &FreeList{config: config, state: config.NewFreeListState()}
}

// Tick applies one tick of requests and returns the responses.
func (f *FreeList) Tick(in FreeListInputs) FreeListOutputs {
	var out FreeListOutputs
	f.state, out = f.config.Next(f.state, in)
	return out
}

// CanAlloc reports whether n alloc ports would all succeed this tick.
func (f *FreeList) CanAlloc(n int) bool {
	return f.state.FreeCount() >= n
}

// State returns a copy of the current state.
func (f *FreeList) State() FreeListState {
	return f.state.Clone()
}

// Reset returns the list to its reset state.
func (f *FreeList) Reset() {
	f.state = f.config.NewFreeListState()
}
