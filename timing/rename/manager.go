package rename

import "fmt"

// DataFlowManager holds the live state of the renaming unit.
//
// Queries read the state at the start of the current tick; Tick applies all
// of the tick's requests at once.
type DataFlowManager struct {
	config DataFlowConfig
	state  DataFlowState
}

// NewDataFlowManager creates a renaming unit in its reset state. It panics
// if the config is invalid.
func NewDataFlowManager(config DataFlowConfig) *DataFlowManager {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("dataflow: %v", err))
	}
	return &DataFlowManager{
		config: config,
		state:  config.NewDataFlowState(),
	}
}

// Config returns the unit's configuration.
func (m *DataFlowManager) Config() DataFlowConfig {
	return m.config
}

// Tick applies one tick of requests and returns the responses.
func (m *DataFlowManager) Tick(in DataFlowInputs) DataFlowOutputs {
	var out DataFlowOutputs
	m.state, out = m.config.Next(m.state, in)
	return out
}

// State returns a copy of the current state.
func (m *DataFlowManager) State() DataFlowState {
	return m.state.Clone()
}

// Reset returns the unit to its reset state.
func (m *DataFlowManager) Reset() {
	m.state = m.config.NewDataFlowState()
}

// ZeroTag returns the tag that register 0 maps to.
func (m *DataFlowManager) ZeroTag() Preg {
	return m.config.ZeroTag()
}

// FreeCount returns the number of tags available for allocation.
func (m *DataFlowManager) FreeCount() int {
	return m.state.FreeRegs.FreeCount()
}

// CanAllocate reports whether n destination renames would succeed this tick.
func (m *DataFlowManager) CanAllocate(n int) bool {
	return n <= m.config.DstPorts && m.FreeCount() >= n
}

// CanSnapshot reports whether a snapshot would succeed this tick.
func (m *DataFlowManager) CanSnapshot() bool {
	return m.state.SnapshotIDs.FreeCount() > 0
}

// SnapshotsInUse returns the number of snapshot ids currently held.
func (m *DataFlowManager) SnapshotsInUse() int {
	return m.config.NumSnapshots - m.state.SnapshotIDs.FreeCount()
}

// SpecPreg returns the speculative mapping of a register.
func (m *DataFlowManager) SpecPreg(a Areg) Preg {
	return m.state.Table.Map[m.config.checkAreg(a)]
}

// ArchPreg returns the committed mapping of a register.
func (m *DataFlowManager) ArchPreg(a Areg) Preg {
	return m.state.ArchMap[m.config.checkAreg(a)]
}

// ArchValue returns the committed value of a register.
func (m *DataFlowManager) ArchValue(a Areg) uint64 {
	return m.state.RegFile.Read(m.ArchPreg(a)).Value
}

// PeekTag returns the contents of a tag without using a read port.
func (m *DataFlowManager) PeekTag(tag Preg) PregState {
	return m.state.RegFile.Read(tag)
}
