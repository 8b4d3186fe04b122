package insts

import (
	"fmt"
	"strconv"
	"strings"
)

var abiNames = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24,
	"s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

var regOps = map[string]Func{
	"add": FuncADD, "sub": FuncSUB, "and": FuncAND, "or": FuncOR,
	"xor": FuncXOR, "sll": FuncSLL, "srl": FuncSRL, "sra": FuncSRA,
	"slt": FuncSLT, "sltu": FuncSLTU,
	"mul": FuncMUL, "div": FuncDIV, "divu": FuncDIVU, "rem": FuncREM,
	"remu": FuncREMU,
}

var immOps = map[string]Func{
	"addi": FuncADD, "andi": FuncAND, "ori": FuncOR, "xori": FuncXOR,
	"slli": FuncSLL, "srli": FuncSRL, "srai": FuncSRA, "slti": FuncSLT,
	"sltiu": FuncSLTU,
}

var branchOps = map[string]Func{
	"beq": FuncBEQ, "bne": FuncBNE, "blt": FuncBLT, "bge": FuncBGE,
	"bltu": FuncBLTU, "bgeu": FuncBGEU,
}

// Decoder turns one line of assembly text into a micro-op.
type Decoder struct{}

// NewDecoder creates a new micro-op decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a single instruction. Branch and jump targets may be
// numeric PC-relative offsets or symbolic labels; a symbolic target is
// returned in label and left for the caller to resolve into Imm.
func (d *Decoder) Decode(line string) (op MicroOp, label string, err error) {
	mnemonic, args := splitInstruction(line)
	if mnemonic == "" {
		return op, "", fmt.Errorf("empty instruction")
	}

	if f, ok := regOps[mnemonic]; ok {
		return d.decodeReg(f, args)
	}
	if f, ok := immOps[mnemonic]; ok {
		return d.decodeImm(f, args)
	}
	if f, ok := branchOps[mnemonic]; ok {
		return d.decodeBranch(f, args)
	}

	switch mnemonic {
	case "nop":
		return MicroOp{Func: FuncNOP}, "", expectArgs(mnemonic, args, 0)
	case "ecall":
		return MicroOp{Func: FuncECALL}, "", expectArgs(mnemonic, args, 0)
	case "ebreak":
		return MicroOp{Func: FuncEBREAK}, "", expectArgs(mnemonic, args, 0)
	case "li":
		return d.decodeLI(args)
	case "mv":
		return d.decodeMV(args)
	case "ld", "sd":
		return d.decodeMemory(mnemonic, args)
	case "beqz", "bnez":
		return d.decodeBranchZero(mnemonic, args)
	case "j", "jal":
		return d.decodeJAL(mnemonic, args)
	case "jalr", "jr", "ret":
		return d.decodeJALR(mnemonic, args)
	}

	return op, "", fmt.Errorf("unknown mnemonic %q", mnemonic)
}

func (d *Decoder) decodeReg(f Func, args []string) (MicroOp, string, error) {
	if err := expectArgs(f.String(), args, 3); err != nil {
		return MicroOp{}, "", err
	}
	regs, err := parseRegs(args...)
	if err != nil {
		return MicroOp{}, "", err
	}
	return MicroOp{Func: f, Rd: regs[0], Rs1: regs[1], Rs2: regs[2]}, "", nil
}

func (d *Decoder) decodeImm(f Func, args []string) (MicroOp, string, error) {
	if err := expectArgs(f.String()+"i", args, 3); err != nil {
		return MicroOp{}, "", err
	}
	regs, err := parseRegs(args[0], args[1])
	if err != nil {
		return MicroOp{}, "", err
	}
	imm, err := parseImm(args[2])
	if err != nil {
		return MicroOp{}, "", err
	}
	return MicroOp{Func: f, Rd: regs[0], Rs1: regs[1], Imm: imm, UseImm: true}, "", nil
}

func (d *Decoder) decodeLI(args []string) (MicroOp, string, error) {
	if err := expectArgs("li", args, 2); err != nil {
		return MicroOp{}, "", err
	}
	rd, err := ParseReg(args[0])
	if err != nil {
		return MicroOp{}, "", err
	}
	imm, err := parseImm(args[1])
	if err != nil {
		return MicroOp{}, "", err
	}
	return MicroOp{Func: FuncADD, Rd: rd, Imm: imm, UseImm: true}, "", nil
}

func (d *Decoder) decodeMV(args []string) (MicroOp, string, error) {
	if err := expectArgs("mv", args, 2); err != nil {
		return MicroOp{}, "", err
	}
	regs, err := parseRegs(args...)
	if err != nil {
		return MicroOp{}, "", err
	}
	return MicroOp{Func: FuncADD, Rd: regs[0], Rs1: regs[1], UseImm: true}, "", nil
}

func (d *Decoder) decodeMemory(mnemonic string, args []string) (MicroOp, string, error) {
	if err := expectArgs(mnemonic, args, 2); err != nil {
		return MicroOp{}, "", err
	}
	reg, err := ParseReg(args[0])
	if err != nil {
		return MicroOp{}, "", err
	}
	imm, base, err := parseOffset(args[1])
	if err != nil {
		return MicroOp{}, "", err
	}

	if mnemonic == "ld" {
		return MicroOp{Func: FuncLD, Rd: reg, Rs1: base, Imm: imm, UseImm: true}, "", nil
	}
	return MicroOp{Func: FuncSD, Rs1: base, Rs2: reg, Imm: imm, UseImm: true}, "", nil
}

func (d *Decoder) decodeBranch(f Func, args []string) (MicroOp, string, error) {
	if err := expectArgs(f.String(), args, 3); err != nil {
		return MicroOp{}, "", err
	}
	regs, err := parseRegs(args[0], args[1])
	if err != nil {
		return MicroOp{}, "", err
	}
	op := MicroOp{Func: f, Rs1: regs[0], Rs2: regs[1]}
	label, err := parseTarget(args[2], &op)
	return op, label, err
}

func (d *Decoder) decodeBranchZero(mnemonic string, args []string) (MicroOp, string, error) {
	if err := expectArgs(mnemonic, args, 2); err != nil {
		return MicroOp{}, "", err
	}
	rs, err := ParseReg(args[0])
	if err != nil {
		return MicroOp{}, "", err
	}
	op := MicroOp{Func: FuncBEQ, Rs1: rs}
	if mnemonic == "bnez" {
		op.Func = FuncBNE
	}
	label, err := parseTarget(args[1], &op)
	return op, label, err
}

func (d *Decoder) decodeJAL(mnemonic string, args []string) (MicroOp, string, error) {
	op := MicroOp{Func: FuncJAL}
	switch {
	case mnemonic == "j" && len(args) == 1:
	case mnemonic == "jal" && len(args) == 1:
		op.Rd = abiNames["ra"]
	case mnemonic == "jal" && len(args) == 2:
		rd, err := ParseReg(args[0])
		if err != nil {
			return op, "", err
		}
		op.Rd = rd
		args = args[1:]
	default:
		return op, "", fmt.Errorf("%s: wrong number of operands", mnemonic)
	}
	label, err := parseTarget(args[0], &op)
	return op, label, err
}

func (d *Decoder) decodeJALR(mnemonic string, args []string) (MicroOp, string, error) {
	op := MicroOp{Func: FuncJALR, UseImm: true}
	var err error

	switch {
	case mnemonic == "ret" && len(args) == 0:
		op.Rs1 = abiNames["ra"]
	case mnemonic == "jr" && len(args) == 1:
		op.Rs1, err = ParseReg(args[0])
	case mnemonic == "jalr" && len(args) == 1:
		op.Rd = abiNames["ra"]
		op.Rs1, err = ParseReg(args[0])
	case mnemonic == "jalr" && len(args) == 2:
		op.Rd, err = ParseReg(args[0])
		if err == nil {
			op.Imm, op.Rs1, err = parseOffset(args[1])
		}
	default:
		err = fmt.Errorf("%s: wrong number of operands", mnemonic)
	}

	return op, "", err
}

// ParseReg parses a register name, either numeric (x0-x31) or ABI (a0, sp).
func ParseReg(s string) (uint8, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if r, ok := abiNames[s]; ok {
		return r, nil
	}
	if strings.HasPrefix(s, "x") {
		n, err := strconv.ParseUint(s[1:], 10, 8)
		if err == nil && n < 32 {
			return uint8(n), nil
		}
	}
	return 0, fmt.Errorf("invalid register %q", s)
}

func parseRegs(names ...string) ([]uint8, error) {
	regs := make([]uint8, len(names))
	for i, name := range names {
		r, err := ParseReg(name)
		if err != nil {
			return nil, err
		}
		regs[i] = r
	}
	return regs, nil
}

func parseImm(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate %q", s)
	}
	return v, nil
}

// parseOffset parses "imm(reg)".
func parseOffset(s string) (int64, uint8, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, 0, fmt.Errorf("invalid memory operand %q", s)
	}

	var imm int64
	if open > 0 {
		v, err := parseImm(s[:open])
		if err != nil {
			return 0, 0, err
		}
		imm = v
	}
	reg, err := ParseReg(s[open+1 : len(s)-1])
	return imm, reg, err
}

// parseTarget stores a numeric offset in op.Imm or returns the label name.
func parseTarget(s string, op *MicroOp) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("missing branch target")
	}
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		op.Imm = v
		return "", nil
	}
	return s, nil
}

func expectArgs(mnemonic string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: expected %d operands, got %d", mnemonic, n, len(args))
	}
	return nil
}

func splitInstruction(line string) (string, []string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}

	cut := strings.IndexAny(line, " \t")
	if cut < 0 {
		return strings.ToLower(line), nil
	}
	mnemonic := strings.ToLower(line[:cut])

	var args []string
	for _, a := range strings.Split(line[cut+1:], ",") {
		if a = strings.TrimSpace(a); a != "" {
			args = append(args, a)
		}
	}
	return mnemonic, args
}
