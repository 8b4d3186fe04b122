package emu

import "github.com/sarchlab/lizard/insts"

// Outcome is the result of executing one micro-op.
type Outcome struct {
	// Value is the destination register result. Loads leave it to the
	// caller, which reads memory at Addr.
	Value uint64

	NextPC uint64
	Taken  bool

	// Addr and StoreData describe the memory access of loads and stores.
	Addr      uint64
	StoreData uint64

	Cause insts.Cause
}

// Faulted reports whether the op raised an exception.
func (o Outcome) Faulted() bool {
	return o.Cause != insts.CauseNone
}

// Execute evaluates op with the given source operand values.
func Execute(op *insts.MicroOp, rs1, rs2 uint64) Outcome {
	out := Outcome{NextPC: op.FallThrough()}

	switch op.Class() {
	case insts.ClassALU, insts.ClassMulDiv:
		if op.Func == insts.FuncUnknown {
			out.Cause = insts.CauseIllegalInstruction
			return out
		}
		if op.Func == insts.FuncNOP {
			return out
		}
		b := rs2
		if op.UseImm {
			b = uint64(op.Imm)
		}
		out.Value = ExecuteALU(op.Func, rs1, b)

	case insts.ClassMemory:
		out.Addr = rs1 + uint64(op.Imm)
		aligned := out.Addr%WordSize == 0
		if op.IsStore() {
			out.StoreData = rs2
			if !aligned {
				out.Cause = insts.CauseMisalignedStore
			}
		} else if !aligned {
			out.Cause = insts.CauseMisalignedLoad
		}

	case insts.ClassBranch:
		out.Taken = BranchTaken(op.Func, rs1, rs2)
		if out.Taken {
			out.NextPC = BranchTarget(op, rs1)
		}
		if !op.IsConditional() {
			out.Value = op.FallThrough()
		}

	case insts.ClassSystem:
		if op.Func == insts.FuncECALL {
			out.Cause = insts.CauseEnvironmentCall
		} else {
			out.Cause = insts.CauseBreakpoint
		}
	}

	return out
}
