package rename

import (
	"errors"
	"fmt"
)

// DataFlowConfig sizes the register renaming unit.
type DataFlowConfig struct {
	NumAregs     int `json:"num_aregs"`
	NumPregs     int `json:"num_pregs"`
	NumSnapshots int `json:"num_snapshots"`

	SrcPorts    int `json:"src_ports"`
	DstPorts    int `json:"dst_ports"`
	WritePorts  int `json:"write_ports"`
	CommitPorts int `json:"commit_ports"`
	ReadPorts   int `json:"read_ports"`

	// FreeSnapshotPorts is the number of snapshots released per tick.
	FreeSnapshotPorts int `json:"free_snapshot_ports"`
}

// DefaultDataFlowConfig returns a 32-register, 64-tag configuration.
func DefaultDataFlowConfig() DataFlowConfig {
	return DataFlowConfig{
		NumAregs:     32,
		NumPregs:     64,
		NumSnapshots: 4,
		SrcPorts:     4,
		DstPorts:     2,
		WritePorts:   2,
		CommitPorts:  2,
		ReadPorts:    4,

		FreeSnapshotPorts: 2,
	}
}

// Validate checks that the configuration can be built.
func (c DataFlowConfig) Validate() error {
	if c.NumAregs < 1 {
		return errors.New("num_aregs must be at least 1")
	}
	if c.NumAregs > 256 {
		return errors.New("num_aregs must be at most 256")
	}
	if c.NumPregs < c.NumAregs+1 {
		return fmt.Errorf("num_pregs must be at least num_aregs+1 (%d)",
			c.NumAregs+1)
	}
	if c.NumPregs > 1<<16 {
		return errors.New("num_pregs must be at most 65536")
	}
	if c.NumSnapshots < 0 {
		return errors.New("num_snapshots must not be negative")
	}
	if c.SrcPorts < 1 || c.DstPorts < 1 || c.WritePorts < 1 ||
		c.CommitPorts < 1 || c.ReadPorts < 1 || c.FreeSnapshotPorts < 1 {
		return errors.New("every port count must be at least 1")
	}
	return nil
}

// ZeroTag returns the tag reserved for register 0, the highest tag.
func (c DataFlowConfig) ZeroTag() Preg {
	return Preg(c.NumPregs - 1)
}

func (c DataFlowConfig) freeRegsConfig() FreeListConfig {
	return FreeListConfig{
		Size:         c.NumPregs - 1,
		AllocPorts:   c.DstPorts,
		FreePorts:    c.CommitPorts,
		NumSnapshots: c.NumSnapshots,
		UsedInitial:  c.NumAregs - 1,
	}
}

func (c DataFlowConfig) snapshotIDsConfig() FreeListConfig {
	return FreeListConfig{
		Size:         c.NumSnapshots,
		AllocPorts:   1,
		FreePorts:    c.FreeSnapshotPorts,
		NumSnapshots: c.NumSnapshots,
	}
}

func (c DataFlowConfig) tableConfig() RenameTableConfig {
	return RenameTableConfig{
		NumAregs:     c.NumAregs,
		NumSnapshots: c.NumSnapshots,
		LookupPorts:  c.SrcPorts,
		UpdatePorts:  c.DstPorts,
		ZeroTag:      c.ZeroTag(),
		Initial:      c.initialMap(),
	}
}

// initialMap maps register n to tag n-1 and register 0 to the zero tag.
func (c DataFlowConfig) initialMap() []Preg {
	m := make([]Preg, c.NumAregs)
	m[0] = c.ZeroTag()
	for a := 1; a < c.NumAregs; a++ {
		m[a] = Preg(a - 1)
	}
	return m
}

// DataFlowState is the complete state of the renaming unit.
type DataFlowState struct {
	RegFile RegFileState

	// Inverse records the register each tag was allocated for.
	Inverse []Areg

	// ArchMap is the committed mapping and ArchUsed the tags it holds.
	ArchMap  []Preg
	ArchUsed []bool

	FreeRegs    FreeListState
	SnapshotIDs FreeListState
	Table       RenameTableState
}

// NewDataFlowState returns the reset state for the config.
func (c DataFlowConfig) NewDataFlowState() DataFlowState {
	s := DataFlowState{
		RegFile:     NewRegFileState(c.NumPregs, c.ZeroTag()),
		Inverse:     make([]Areg, c.NumPregs),
		ArchMap:     c.initialMap(),
		ArchUsed:    make([]bool, c.NumPregs),
		FreeRegs:    c.freeRegsConfig().NewFreeListState(),
		SnapshotIDs: c.snapshotIDsConfig().NewFreeListState(),
		Table:       c.tableConfig().NewRenameTableState(),
	}
	for p := 0; p < c.NumAregs-1; p++ {
		s.Inverse[p] = Areg(p + 1)
		s.ArchUsed[p] = true
	}
	return s
}

// Clone returns a deep copy of the state.
func (s DataFlowState) Clone() DataFlowState {
	return DataFlowState{
		RegFile:     s.RegFile.Clone(),
		Inverse:     append([]Areg(nil), s.Inverse...),
		ArchMap:     append([]Preg(nil), s.ArchMap...),
		ArchUsed:    append([]bool(nil), s.ArchUsed...),
		FreeRegs:    s.FreeRegs.Clone(),
		SnapshotIDs: s.SnapshotIDs.Clone(),
		Table:       s.Table.Clone(),
	}
}

// WriteTagRequest writes back a result.
type WriteTagRequest struct {
	Tag   Preg
	Value uint64
}

// RestoreRequest restores the renaming state saved under ID.
type RestoreRequest struct {
	Call bool
	ID   SnapshotID
}

// DataFlowInputs holds every request made to the renaming unit in one tick.
type DataFlowInputs struct {
	WriteTag     []WriteTagRequest
	GetSrc       []Areg
	GetDst       []Areg
	CommitTag    []Preg
	ReadTag      []Preg
	Snapshot     bool
	FreeSnapshot []SnapshotID
	Restore      RestoreRequest
	Rollback     bool
}

// GetDstResult is the response of one destination rename port.
type GetDstResult struct {
	Success bool
	Tag     Preg
}

// SnapshotResult is the response of the snapshot port.
type SnapshotResult struct {
	Ready bool
	ID    SnapshotID
}

// DataFlowOutputs holds the responses of one tick.
type DataFlowOutputs struct {
	GetSrc   []Preg
	GetDst   []GetDstResult
	ReadTag  []PregState
	Snapshot SnapshotResult
}

// Next computes the state after one tick.
//
// Requests apply in the order write_tag, get_src, get_dst, commit_tag,
// read_tag, snapshot, free_snapshot, restore, rollback. Source lookups see
// the mapping from before this tick's renames, reads see this tick's
// writebacks, a snapshot includes this tick's renames and a rollback
// includes this tick's commits.
func (c DataFlowConfig) Next(
	s DataFlowState,
	in DataFlowInputs,
) (DataFlowState, DataFlowOutputs) {
	c.checkInputs(in)

	next := s.Clone()
	out := DataFlowOutputs{}

	for _, w := range in.WriteTag {
		next.RegFile.write(w.Tag, w.Value)
	}

	snapOut := c.nextSnapshotIDs(&next, in)
	out.Snapshot = snapOut

	allocAregs := make([]Areg, 0, len(in.GetDst))
	for _, a := range in.GetDst {
		if c.checkAreg(a) != 0 {
			allocAregs = append(allocAregs, a)
		}
	}

	frees := c.commit(&next, in.CommitTag)

	regsIn := FreeListInputs{
		Alloc: len(allocAregs),
		Free:  frees,
	}
	tableIn := RenameTableInputs{Lookup: in.GetSrc}
	if snapOut.Ready {
		regsIn.Snapshot = SnapshotCall{Call: true, ID: snapOut.ID}
		tableIn.Snapshot = regsIn.Snapshot
	}
	if in.Restore.Call {
		regsIn.Restore = SnapshotCall{Call: true, ID: in.Restore.ID}
		tableIn.Restore = regsIn.Restore
	}
	if in.Rollback {
		regsIn.Set = make([]bool, c.NumPregs-1)
		for i := range regsIn.Set {
			regsIn.Set[i] = !next.ArchUsed[i]
		}
		tableIn.Set = next.ArchMap
	}

	var regsOut FreeListOutputs
	next.FreeRegs, regsOut = c.freeRegsConfig().Next(next.FreeRegs, regsIn)

	out.GetDst = make([]GetDstResult, len(in.GetDst))
	port := 0
	for i, a := range in.GetDst {
		if a == 0 {
			out.GetDst[i] = GetDstResult{Success: true, Tag: c.ZeroTag()}
			continue
		}

		res := regsOut.Alloc[port]
		port++
		if !res.Success {
			out.GetDst[i] = GetDstResult{Tag: c.ZeroTag()}
			continue
		}

		tag := Preg(res.Index)
		out.GetDst[i] = GetDstResult{Success: true, Tag: tag}
		tableIn.Update = append(tableIn.Update, RenameUpdate{Areg: a, Preg: tag})
		next.RegFile.invalidate(tag)
		next.Inverse[tag] = a
	}

	var tableOut RenameTableOutputs
	next.Table, tableOut = c.tableConfig().Next(next.Table, tableIn)
	out.GetSrc = tableOut.Lookup

	out.ReadTag = make([]PregState, len(in.ReadTag))
	for i, tag := range in.ReadTag {
		out.ReadTag[i] = next.RegFile.Read(tag)
	}

	return next, out
}

// nextSnapshotIDs advances the snapshot id pool. The pool is snapshotted
// into itself so that restoring an id also returns every id taken after it.
func (c DataFlowConfig) nextSnapshotIDs(
	next *DataFlowState,
	in DataFlowInputs,
) SnapshotResult {
	idsIn := FreeListInputs{Free: make([]int, len(in.FreeSnapshot))}
	for i, id := range in.FreeSnapshot {
		idsIn.Free[i] = int(id)
	}
	if in.Snapshot {
		idsIn.Alloc = 1
	}
	if in.Restore.Call {
		idsIn.Restore = SnapshotCall{Call: true, ID: in.Restore.ID}
	}
	if in.Rollback {
		idsIn.Set = make([]bool, c.NumSnapshots)
		for i := range idsIn.Set {
			idsIn.Set[i] = true
		}
	}

	cfg := c.snapshotIDsConfig()
	if in.Snapshot && next.SnapshotIDs.FreeCount() > 0 {
		// The id about to be allocated is the lowest free one.
		for i, free := range next.SnapshotIDs.Free {
			if free {
				idsIn.Snapshot = SnapshotCall{Call: true, ID: SnapshotID(i)}
				break
			}
		}
	}

	var idsOut FreeListOutputs
	next.SnapshotIDs, idsOut = cfg.Next(next.SnapshotIDs, idsIn)

	if !in.Snapshot || !idsOut.Alloc[0].Success {
		return SnapshotResult{}
	}
	return SnapshotResult{Ready: true, ID: SnapshotID(idsOut.Alloc[0].Index)}
}

// commit moves each tag into the architectural mapping in port order and
// returns the tags it displaced.
func (c DataFlowConfig) commit(next *DataFlowState, tags []Preg) []int {
	var frees []int
	for _, tag := range tags {
		c.checkPreg(tag)
		if tag == c.ZeroTag() {
			continue
		}

		areg := next.Inverse[tag]
		old := next.ArchMap[areg]
		if old != c.ZeroTag() {
			frees = append(frees, int(old))
			next.ArchUsed[old] = false
		}
		next.ArchMap[areg] = tag
		next.ArchUsed[tag] = true
	}
	return frees
}

func (c DataFlowConfig) checkInputs(in DataFlowInputs) {
	check := func(name string, n, ports int) {
		if n > ports {
			panic(fmt.Sprintf("dataflow: %d %s requests, %d ports",
				n, name, ports))
		}
	}
	check("write_tag", len(in.WriteTag), c.WritePorts)
	check("get_src", len(in.GetSrc), c.SrcPorts)
	check("get_dst", len(in.GetDst), c.DstPorts)
	check("commit_tag", len(in.CommitTag), c.CommitPorts)
	check("read_tag", len(in.ReadTag), c.ReadPorts)
	check("free_snapshot", len(in.FreeSnapshot), c.FreeSnapshotPorts)

	for _, w := range in.WriteTag {
		c.checkPreg(w.Tag)
	}
	for _, a := range in.GetSrc {
		c.checkAreg(a)
	}
	for _, tag := range in.ReadTag {
		c.checkPreg(tag)
	}
	if in.Restore.Call &&
		(in.Restore.ID < 0 || int(in.Restore.ID) >= c.NumSnapshots) {
		panic(fmt.Sprintf("dataflow: restore of snapshot %d out of range",
			in.Restore.ID))
	}
}

func (c DataFlowConfig) checkAreg(a Areg) Areg {
	if int(a) >= c.NumAregs {
		panic(fmt.Sprintf("dataflow: register %d out of range", a))
	}
	return a
}

func (c DataFlowConfig) checkPreg(p Preg) {
	if int(p) >= c.NumPregs {
		panic(fmt.Sprintf("dataflow: tag %d out of range", p))
	}
}
