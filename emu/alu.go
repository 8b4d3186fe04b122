// Package emu provides functional execution of the micro-op ISA.
//
// The Execute function evaluates a single micro-op given its source operand
// values; it is shared by the in-order reference Emulator and the timing
// pipeline so both agree on every result.
package emu

import (
	"math"

	"github.com/sarchlab/lizard/insts"
)

// ExecuteALU evaluates an ALU or multiply/divide function. Division by zero
// and signed overflow follow the RISC-V rules instead of trapping.
func ExecuteALU(f insts.Func, a, b uint64) uint64 {
	switch f {
	case insts.FuncADD:
		return a + b
	case insts.FuncSUB:
		return a - b
	case insts.FuncAND:
		return a & b
	case insts.FuncOR:
		return a | b
	case insts.FuncXOR:
		return a ^ b
	case insts.FuncSLL:
		return a << (b & 63)
	case insts.FuncSRL:
		return a >> (b & 63)
	case insts.FuncSRA:
		return uint64(int64(a) >> (b & 63))
	case insts.FuncSLT:
		return boolToWord(int64(a) < int64(b))
	case insts.FuncSLTU:
		return boolToWord(a < b)
	case insts.FuncMUL:
		return a * b
	case insts.FuncDIV:
		return signedDiv(a, b)
	case insts.FuncDIVU:
		if b == 0 {
			return math.MaxUint64
		}
		return a / b
	case insts.FuncREM:
		return signedRem(a, b)
	case insts.FuncREMU:
		if b == 0 {
			return a
		}
		return a % b
	default:
		return 0
	}
}

func signedDiv(a, b uint64) uint64 {
	x, y := int64(a), int64(b)
	switch {
	case y == 0:
		return math.MaxUint64
	case x == math.MinInt64 && y == -1:
		return a
	default:
		return uint64(x / y)
	}
}

func signedRem(a, b uint64) uint64 {
	x, y := int64(a), int64(b)
	switch {
	case y == 0:
		return a
	case x == math.MinInt64 && y == -1:
		return 0
	default:
		return uint64(x % y)
	}
}

func boolToWord(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
