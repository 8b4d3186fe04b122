// Package pipeline drives the renaming, control flow and commit units with
// a simple front end and execution back end.
//
// Each cycle the stages run in the order retire, writeback, issue,
// dispatch, fetch. The first four only build requests. The commit unit
// ticks first and its tag commits and retire count become requests to the
// renaming unit and the control flow manager; all three advance from their
// start-of-cycle state and the responses are handed back to dispatch and
// issue. Fetch runs last against the state the
// managers will hold in the next cycle.
package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/lizard/emu"
	"github.com/sarchlab/lizard/insts"
	"github.com/sarchlab/lizard/timing/commit"
	"github.com/sarchlab/lizard/timing/control"
	"github.com/sarchlab/lizard/timing/latency"
	"github.com/sarchlab/lizard/timing/rename"
)

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of ops retired, faulting ones included.
	Instructions uint64
	// Exceptions is the number of faulting ops retired.
	Exceptions uint64
	// Branches is the number of control flow ops retired and
	// Mispredictions those among them that were fetched down a wrong path.
	Branches       uint64
	Mispredictions uint64
	// Restores and Rollbacks count the two kinds of recovery.
	Restores  uint64
	Rollbacks uint64
	// Squashed is the number of dispatched ops dropped by recovery.
	Squashed uint64

	// Dispatch stalls, counted once per cycle by the reason that ended the
	// dispatch group early.
	StallWindowFull  uint64
	StallNoFreeRegs  uint64
	StallNoSnapshot  uint64
	StallSameGroup   uint64
	FetchBufferEmpty uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// RetireEvent describes one retired op.
type RetireEvent struct {
	Cycle uint64
	Seq   control.Seq
	Op    *insts.MicroOp

	// Cause is set when the op faulted.
	Cause insts.Cause

	// Value is the result written to the op's destination, if any.
	Value uint64
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithLatencyTable overrides the latency table built from the config.
func WithLatencyTable(table *latency.Table) PipelineOption {
	return func(p *Pipeline) {
		p.latencyTable = table
	}
}

// WithMemory makes the pipeline use the given data memory service.
func WithMemory(m emu.DataMemory) PipelineOption {
	return func(p *Pipeline) {
		p.memory = m
	}
}

// WithRetireHook registers a function called for every retired op, in
// program order.
func WithRetireHook(hook func(RetireEvent)) PipelineOption {
	return func(p *Pipeline) {
		p.retireHook = hook
	}
}

// WithLogger sets the logger recovery events are reported to.
func WithLogger(log *logrus.Entry) PipelineOption {
	return func(p *Pipeline) {
		p.log = log
	}
}

type uopState uint8

const (
	uopWaiting uopState = iota
	uopExecuting
	uopWritten
)

// uop is a dispatched op on its way through the window.
type uop struct {
	op        *insts.MicroOp
	seq       control.Seq
	predicted uint64

	src    [2]rename.Preg
	dst    rename.Preg
	hasDst bool

	speculative bool
	specIdx     rename.SnapshotID

	state  uopState
	doneAt uint64
	out    emu.Outcome
}

func (u *uop) mispredicted() bool {
	return !u.out.Faulted() && u.out.NextPC != u.predicted
}

type fetchEntry struct {
	op        *insts.MicroOp
	predicted uint64
}

type srcRef struct {
	u    *uop
	slot int
}

// tickRequests collects what the stages ask of the managers in one cycle.
type tickRequests struct {
	dataFlow    rename.DataFlowInputs
	controlFlow control.Inputs
	commit      commit.Inputs

	recovering bool
	retired    int

	dispatched []*uop
	srcRefs    []srcRef
	dstRefs    []*uop

	issue []*uop
}

// Pipeline is an out-of-order core running one program.
type Pipeline struct {
	config  *Config
	program *insts.Program

	dataFlow    *rename.DataFlowManager
	controlFlow *control.ControlFlowManager
	commitUnit  *commit.Unit

	predictor    *Predictor
	latencyTable *latency.Table
	memory       emu.DataMemory
	retireHook   func(RetireEvent)
	log          *logrus.Entry

	pc          uint64
	fetchBuffer []fetchEntry

	// window holds the dispatched ops that have not retired, oldest first.
	window []*uop

	cycle  uint64
	halted bool
	stats  Statistics
}

// NewPipeline creates a core in its reset state. The first fetch is from
// the program entry.
func NewPipeline(
	config *Config,
	prog *insts.Program,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid core config: %w", err)
	}

	p := &Pipeline{
		config:  config.Clone(),
		program: prog,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.latencyTable == nil {
		p.latencyTable = latency.NewTableWithConfig(p.config.Latency.Clone())
	}
	if p.memory == nil {
		p.memory = emu.NewMemory()
	}
	if p.log == nil {
		p.log = logrus.WithField("component", "pipeline")
	}
	for addr, value := range prog.Data {
		p.memory.Write(addr, value)
	}

	p.reset()

	return p, nil
}

func (p *Pipeline) reset() {
	p.dataFlow = rename.NewDataFlowManager(p.config.DataFlowConfig())
	p.controlFlow = control.NewControlFlowManager(
		p.config.ControlConfig(p.program.Entry))
	p.commitUnit = commit.NewUnit(p.config.CommitConfig())
	p.predictor = NewPredictor(p.config.Predictor)

	p.pc = 0
	p.fetchBuffer = nil
	p.window = nil
	p.cycle = 0
	p.halted = false
	p.stats = Statistics{}
}

// Reset returns the core to its reset state. Data memory keeps its
// contents.
func (p *Pipeline) Reset() {
	p.reset()
}

// Config returns a copy of the pipeline's configuration.
func (p *Pipeline) Config() *Config {
	return p.config.Clone()
}

// DataFlow returns the renaming unit.
func (p *Pipeline) DataFlow() *rename.DataFlowManager {
	return p.dataFlow
}

// ControlFlow returns the control flow manager.
func (p *Pipeline) ControlFlow() *control.ControlFlowManager {
	return p.controlFlow
}

// CommitUnit returns the commit unit.
func (p *Pipeline) CommitUnit() *commit.Unit {
	return p.commitUnit
}

// Memory returns the data memory.
func (p *Pipeline) Memory() emu.DataMemory {
	return p.memory
}

// PC returns the next fetch PC.
func (p *Pipeline) PC() uint64 {
	return p.pc
}

// Cycle returns the number of cycles simulated.
func (p *Pipeline) Cycle() uint64 {
	return p.cycle
}

// InFlight returns the number of dispatched ops that have not retired.
func (p *Pipeline) InFlight() int {
	return len(p.window)
}

// Stats returns the pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// PredictorStats returns the branch predictor statistics.
func (p *Pipeline) PredictorStats() PredictorStats {
	return p.predictor.Stats()
}

// Halted reports whether the program has finished: nothing is in flight
// and the fetch PC holds no op.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// ExitCode returns the committed value of a0.
func (p *Pipeline) ExitCode() uint64 {
	return p.dataFlow.ArchValue(emu.ExitReg)
}

// ArchRegs returns the committed value of every architectural register.
func (p *Pipeline) ArchRegs() [NumAregs]uint64 {
	var regs [NumAregs]uint64
	for a := range regs {
		regs[a] = p.dataFlow.ArchValue(rename.Areg(a))
	}
	return regs
}

// Run ticks the pipeline until it halts and returns the exit code.
func (p *Pipeline) Run() (uint64, error) {
	for !p.halted {
		if p.config.MaxCycles > 0 && p.cycle >= p.config.MaxCycles {
			return 0, fmt.Errorf("no halt after %d cycles (pc=0x%x, %d in flight)",
				p.cycle, p.pc, len(p.window))
		}
		p.Tick()
	}
	return p.ExitCode(), nil
}

// RunCycles ticks the pipeline for up to cycles cycles. It returns true
// if the pipeline is still running.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Tick advances the pipeline by one cycle.
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	if valid, target := p.controlFlow.CheckRedirect(); valid {
		p.pc = target
		p.fetchBuffer = p.fetchBuffer[:0]
	}

	req := &tickRequests{}
	req.commit.Head, _ = p.controlFlow.GetHead()
	req.commit.Count = p.controlFlow.Count()

	p.retire(req)
	if !req.recovering {
		p.writeback(req)
	}
	p.selectIssue(req)
	if !req.recovering {
		p.dispatch(req)
	}

	commitOut := p.commitUnit.Tick(req.commit)
	if commitOut.Commit != req.retired {
		panic(fmt.Sprintf("pipeline: commit unit retired %d, window popped %d",
			commitOut.Commit, req.retired))
	}
	req.dataFlow.CommitTag = commitOut.CommitTags
	req.controlFlow.Commit = commitOut.Commit

	dataFlowOut := p.dataFlow.Tick(req.dataFlow)
	controlFlowOut := p.controlFlow.Tick(req.controlFlow)

	p.finishDispatch(req, dataFlowOut, controlFlowOut)
	p.finishIssue(req, dataFlowOut)

	if !req.recovering {
		p.fetch()
	}

	p.cycle++
	p.stats.Cycles++
	p.checkHalt()
}

func (p *Pipeline) checkHalt() {
	if len(p.window) > 0 || len(p.fetchBuffer) > 0 {
		return
	}
	if valid, _ := p.controlFlow.CheckRedirect(); valid {
		return
	}
	p.halted = p.program.At(p.pc) == nil
}
