package control

import "fmt"

// ControlFlowManager holds the live state of the control flow manager.
type ControlFlowManager struct {
	config Config
	state  State
}

// NewControlFlowManager creates a manager in its reset state. It panics if
// the config is invalid.
func NewControlFlowManager(config Config) *ControlFlowManager {
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("control flow: %v", err))
	}
	return &ControlFlowManager{config: config, state: config.NewState()}
}

// Config returns the manager's configuration.
func (m *ControlFlowManager) Config() Config {
	return m.config
}

// Tick applies one tick of requests and returns the responses.
func (m *ControlFlowManager) Tick(in Inputs) Outputs {
	var out Outputs
	m.state, out = m.config.Next(m.state, in)
	return out
}

// State returns a copy of the current state.
func (m *ControlFlowManager) State() State {
	return m.state.Clone()
}

// Reset empties the window and latches a redirect to the reset vector.
func (m *ControlFlowManager) Reset() {
	m.state = m.config.NewState()
}

// CheckRedirect returns the latched redirect, if any.
func (m *ControlFlowManager) CheckRedirect() (valid bool, target uint64) {
	return m.state.RedirectValid, m.state.RedirectTarget
}

// GetHead returns the oldest in-flight sequence number. ready is false when
// the window is empty.
func (m *ControlFlowManager) GetHead() (seq Seq, ready bool) {
	return m.state.Head, m.state.Count > 0
}

// IsHead reports whether seq is the oldest in-flight instruction.
func (m *ControlFlowManager) IsHead(seq Seq) bool {
	return m.state.Count > 0 && m.state.Head == seq
}

// InWindow reports whether seq names an in-flight instruction.
func (m *ControlFlowManager) InWindow(seq Seq) bool {
	return m.config.inWindow(m.state, seq)
}

// Age returns how many instructions are older than seq. The result is only
// meaningful for sequence numbers in the window.
func (m *ControlFlowManager) Age(seq Seq) int {
	return m.config.age(m.state, seq)
}

// Older reports whether a entered the window before b.
func (m *ControlFlowManager) Older(a, b Seq) bool {
	return m.Age(a) < m.Age(b)
}

// Count returns the number of in-flight instructions.
func (m *ControlFlowManager) Count() int {
	return m.state.Count
}

// CanRegister reports whether n more instructions fit in the window.
func (m *ControlFlowManager) CanRegister(n int) bool {
	return n <= m.config.RegisterPorts &&
		m.state.Count+n <= m.config.Capacity()
}

// Entry returns what was registered for an in-flight sequence number.
func (m *ControlFlowManager) Entry(seq Seq) (Entry, bool) {
	if !m.InWindow(seq) {
		return Entry{}, false
	}
	return m.state.Entries[seq], true
}
