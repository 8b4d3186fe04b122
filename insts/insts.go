// Package insts provides the micro-op instruction set executed by the Lizard
// core model.
//
// Micro-ops are RISC-V flavoured: every op names at most one destination and
// two source registers, an optional immediate, and the PC it was placed at.
// Programs are built from assembly text with an Assembler:
//
//	prog, err := insts.NewAssembler(0x1000).Assemble([]string{
//		"li a0, 5",
//		"loop: addi a0, a0, -1",
//		"bne a0, zero, loop",
//	})
package insts

import (
	"fmt"
	"sort"
)

// InstSize is the distance between two consecutive micro-ops in the PC space.
const InstSize = 4

// Class groups functions by the functional unit that executes them.
type Class uint8

// Functional unit classes.
const (
	ClassALU Class = iota
	ClassMulDiv
	ClassMemory
	ClassBranch
	ClassSystem
)

func (c Class) String() string {
	switch c {
	case ClassALU:
		return "alu"
	case ClassMulDiv:
		return "muldiv"
	case ClassMemory:
		return "memory"
	case ClassBranch:
		return "branch"
	case ClassSystem:
		return "system"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Func identifies the operation performed by a micro-op.
type Func uint8

// Micro-op functions.
const (
	FuncUnknown Func = iota
	FuncNOP
	FuncADD
	FuncSUB
	FuncAND
	FuncOR
	FuncXOR
	FuncSLL
	FuncSRL
	FuncSRA
	FuncSLT
	FuncSLTU
	FuncMUL
	FuncDIV
	FuncDIVU
	FuncREM
	FuncREMU
	FuncLD
	FuncSD
	FuncBEQ
	FuncBNE
	FuncBLT
	FuncBGE
	FuncBLTU
	FuncBGEU
	FuncJAL
	FuncJALR
	FuncECALL
	FuncEBREAK
)

var funcNames = map[Func]string{
	FuncNOP:    "nop",
	FuncADD:    "add",
	FuncSUB:    "sub",
	FuncAND:    "and",
	FuncOR:     "or",
	FuncXOR:    "xor",
	FuncSLL:    "sll",
	FuncSRL:    "srl",
	FuncSRA:    "sra",
	FuncSLT:    "slt",
	FuncSLTU:   "sltu",
	FuncMUL:    "mul",
	FuncDIV:    "div",
	FuncDIVU:   "divu",
	FuncREM:    "rem",
	FuncREMU:   "remu",
	FuncLD:     "ld",
	FuncSD:     "sd",
	FuncBEQ:    "beq",
	FuncBNE:    "bne",
	FuncBLT:    "blt",
	FuncBGE:    "bge",
	FuncBLTU:   "bltu",
	FuncBGEU:   "bgeu",
	FuncJAL:    "jal",
	FuncJALR:   "jalr",
	FuncECALL:  "ecall",
	FuncEBREAK: "ebreak",
}

func (f Func) String() string {
	if name, ok := funcNames[f]; ok {
		return name
	}
	return "unknown"
}

// Class returns the functional unit class of the function.
func (f Func) Class() Class {
	switch f {
	case FuncMUL, FuncDIV, FuncDIVU, FuncREM, FuncREMU:
		return ClassMulDiv
	case FuncLD, FuncSD:
		return ClassMemory
	case FuncBEQ, FuncBNE, FuncBLT, FuncBGE, FuncBLTU, FuncBGEU,
		FuncJAL, FuncJALR:
		return ClassBranch
	case FuncECALL, FuncEBREAK:
		return ClassSystem
	default:
		return ClassALU
	}
}

// MicroOp is a single decoded micro-op.
type MicroOp struct {
	Func Func
	Rd   uint8
	Rs1  uint8
	Rs2  uint8

	// Imm is the immediate operand. For conditional branches and jal it is
	// the PC-relative target offset.
	Imm    int64
	UseImm bool

	PC uint64
}

// Class returns the functional unit class of the op.
func (op *MicroOp) Class() Class {
	return op.Func.Class()
}

// HasRd reports whether the op produces a register result.
func (op *MicroOp) HasRd() bool {
	switch op.Func {
	case FuncNOP, FuncSD, FuncBEQ, FuncBNE, FuncBLT, FuncBGE, FuncBLTU,
		FuncBGEU, FuncECALL, FuncEBREAK, FuncUnknown:
		return false
	}
	return op.Rd != 0
}

// ReadsRs1 reports whether the op reads its first source register.
func (op *MicroOp) ReadsRs1() bool {
	switch op.Func {
	case FuncNOP, FuncJAL, FuncECALL, FuncEBREAK, FuncUnknown:
		return false
	}
	return true
}

// ReadsRs2 reports whether the op reads its second source register.
func (op *MicroOp) ReadsRs2() bool {
	switch op.Func {
	case FuncSD, FuncBEQ, FuncBNE, FuncBLT, FuncBGE, FuncBLTU, FuncBGEU:
		return true
	case FuncLD, FuncJAL, FuncJALR, FuncNOP, FuncECALL, FuncEBREAK,
		FuncUnknown:
		return false
	}
	return !op.UseImm
}

// IsControlFlow reports whether the op may change the PC.
func (op *MicroOp) IsControlFlow() bool {
	return op.Class() == ClassBranch
}

// IsConditional reports whether the op is a conditional branch.
func (op *MicroOp) IsConditional() bool {
	return op.IsControlFlow() && op.Func != FuncJAL && op.Func != FuncJALR
}

// IsLoad reports whether the op reads data memory.
func (op *MicroOp) IsLoad() bool {
	return op.Func == FuncLD
}

// IsStore reports whether the op writes data memory.
func (op *MicroOp) IsStore() bool {
	return op.Func == FuncSD
}

// FallThrough returns the PC of the next sequential op.
func (op *MicroOp) FallThrough() uint64 {
	return op.PC + InstSize
}

// String renders the op in assembly syntax with numeric offsets.
func (op *MicroOp) String() string {
	name := op.Func.String()
	switch {
	case op.Func == FuncNOP || op.Class() == ClassSystem:
		return name
	case op.Func == FuncLD:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, op.Rd, op.Imm, op.Rs1)
	case op.Func == FuncSD:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, op.Rs2, op.Imm, op.Rs1)
	case op.IsConditional():
		return fmt.Sprintf("%s x%d, x%d, %d", name, op.Rs1, op.Rs2, op.Imm)
	case op.Func == FuncJAL:
		return fmt.Sprintf("%s x%d, %d", name, op.Rd, op.Imm)
	case op.Func == FuncJALR:
		return fmt.Sprintf("%s x%d, %d(x%d)", name, op.Rd, op.Imm, op.Rs1)
	case op.UseImm && op.Func == FuncSLTU:
		return fmt.Sprintf("sltiu x%d, x%d, %d", op.Rd, op.Rs1, op.Imm)
	case op.UseImm:
		return fmt.Sprintf("%si x%d, x%d, %d", name, op.Rd, op.Rs1, op.Imm)
	default:
		return fmt.Sprintf("%s x%d, x%d, x%d", name, op.Rd, op.Rs1, op.Rs2)
	}
}

// Program is a set of micro-ops placed in the PC space plus the initial
// contents of data memory.
type Program struct {
	Entry uint64
	Ops   map[uint64]*MicroOp
	Data  map[uint64]uint64
}

// NewProgram creates an empty program starting at entry.
func NewProgram(entry uint64) *Program {
	return &Program{
		Entry: entry,
		Ops:   make(map[uint64]*MicroOp),
		Data:  make(map[uint64]uint64),
	}
}

// At returns the op placed at pc, or nil if there is none.
func (p *Program) At(pc uint64) *MicroOp {
	return p.Ops[pc]
}

// Place puts op at pc, overwriting the op's PC field.
func (p *Program) Place(pc uint64, op MicroOp) {
	op.PC = pc
	p.Ops[pc] = &op
}

// Len returns the number of ops in the program.
func (p *Program) Len() int {
	return len(p.Ops)
}

// Listing returns the program's ops ordered by PC.
func (p *Program) Listing() []*MicroOp {
	pcs := make([]uint64, 0, len(p.Ops))
	for pc := range p.Ops {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })

	ops := make([]*MicroOp, len(pcs))
	for i, pc := range pcs {
		ops[i] = p.Ops[pc]
	}
	return ops
}
