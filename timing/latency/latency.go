// Package latency provides execution latencies for the functional units.
//
// Latencies are configured per functional unit class through TimingConfig.
package latency

import (
	"github.com/sarchlab/lizard/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given op.
// Divides use the worst case so that timing does not depend on operands.
func (t *Table) GetLatency(op *insts.MicroOp) uint64 {
	if op == nil {
		return 1
	}

	switch op.Func {
	case insts.FuncMUL:
		return t.config.MultiplyLatency
	case insts.FuncDIV, insts.FuncDIVU, insts.FuncREM, insts.FuncREMU:
		return t.config.DivideLatencyMax
	case insts.FuncLD:
		return t.config.LoadLatency
	case insts.FuncSD:
		return t.config.StoreLatency
	}

	switch op.Class() {
	case insts.ClassBranch:
		return t.config.BranchLatency
	case insts.ClassSystem:
		return t.config.SystemLatency
	default:
		return t.config.ALULatency
	}
}

// GetMinLatency returns the minimum execution latency for variable-latency
// operations.
func (t *Table) GetMinLatency(op *insts.MicroOp) uint64 {
	if op == nil {
		return 1
	}

	switch op.Func {
	case insts.FuncDIV, insts.FuncDIVU, insts.FuncREM, insts.FuncREMU:
		return t.config.DivideLatencyMin
	}
	return t.GetLatency(op)
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
