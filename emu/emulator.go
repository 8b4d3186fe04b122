package emu

import (
	"fmt"

	"github.com/sarchlab/lizard/insts"
)

// ExitReg is the register holding a program's exit code (a0).
const ExitReg = 10

// StepResult represents the result of executing a single micro-op.
type StepResult struct {
	// Halted is true if there was no micro-op at the PC.
	Halted bool

	// Op is the micro-op that was executed.
	Op *insts.MicroOp

	// Cause is set if the micro-op raised an exception.
	Cause insts.Cause

	// Err is set if an error occurred during execution.
	Err error
}

// Emulator executes a program one micro-op at a time in program order.
//
// An exception retires the faulting op without writing its destination and
// continues at the trap vector. Execution halts when the PC holds no op.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	program *insts.Program

	trapVector uint64

	// Execution state
	instructionCount uint64
	exceptionCount   uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemory makes the emulator use the given memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithTrapVector sets the PC the emulator continues at after an exception.
func WithTrapVector(pc uint64) EmulatorOption {
	return func(e *Emulator) {
		e.trapVector = pc
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates an emulator for prog with its data loaded and the PC
// at the program entry.
func NewEmulator(prog *insts.Program, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: &RegFile{PC: prog.Entry},
		program: prog,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.memory == nil {
		e.memory = NewMemory()
	}
	e.memory.Load(prog.Data)

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// ExceptionCount returns the number of exceptions taken.
func (e *Emulator) ExceptionCount() uint64 {
	return e.exceptionCount
}

// ExitCode returns the value of a0.
func (e *Emulator) ExitCode() uint64 {
	return e.regFile.ReadReg(ExitReg)
}

// Step executes a single micro-op.
func (e *Emulator) Step() StepResult {
	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{Err: fmt.Errorf("max instructions reached")}
	}

	op := e.program.At(e.regFile.PC)
	if op == nil {
		return StepResult{Halted: true}
	}

	out := Execute(op,
		e.regFile.ReadReg(op.Rs1),
		e.regFile.ReadReg(op.Rs2))
	e.instructionCount++

	if out.Faulted() {
		e.exceptionCount++
		e.regFile.PC = e.trapVector
		return StepResult{Op: op, Cause: out.Cause}
	}

	switch {
	case op.IsLoad():
		out.Value = e.memory.Read(out.Addr)
	case op.IsStore():
		e.memory.Write(out.Addr, out.StoreData)
	}

	if op.HasRd() {
		e.regFile.WriteReg(op.Rd, out.Value)
	}
	e.regFile.PC = out.NextPC

	return StepResult{Op: op}
}

// Run executes micro-ops until the emulator halts and returns the exit code.
func (e *Emulator) Run() (uint64, error) {
	for {
		result := e.Step()
		if result.Err != nil {
			return 0, fmt.Errorf("emulation stopped at PC=0x%X: %w",
				e.regFile.PC, result.Err)
		}
		if result.Halted {
			return e.ExitCode(), nil
		}
	}
}
