package emu

import "github.com/sarchlab/lizard/insts"

// BranchTaken evaluates the condition of a conditional branch. Jumps are
// always taken.
func BranchTaken(f insts.Func, a, b uint64) bool {
	switch f {
	case insts.FuncBEQ:
		return a == b
	case insts.FuncBNE:
		return a != b
	case insts.FuncBLT:
		return int64(a) < int64(b)
	case insts.FuncBGE:
		return int64(a) >= int64(b)
	case insts.FuncBLTU:
		return a < b
	case insts.FuncBGEU:
		return a >= b
	case insts.FuncJAL, insts.FuncJALR:
		return true
	default:
		return false
	}
}

// BranchTarget returns the taken target of a control flow op.
func BranchTarget(op *insts.MicroOp, rs1 uint64) uint64 {
	if op.Func == insts.FuncJALR {
		return (rs1 + uint64(op.Imm)) &^ 1
	}
	return op.PC + uint64(op.Imm)
}
