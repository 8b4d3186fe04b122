package insts

import (
	"fmt"
	"strings"
)

// Assembler lays out assembly lines from a base PC and resolves labels.
//
// Each non-empty line holds an optional "label:" prefix and at most one
// instruction. Text after '#' is a comment.
type Assembler struct {
	base    uint64
	decoder *Decoder
}

// NewAssembler creates an assembler placing the first op at base.
func NewAssembler(base uint64) *Assembler {
	return &Assembler{base: base, decoder: NewDecoder()}
}

type pendingOp struct {
	op     MicroOp
	label  string
	lineNo int
}

// Assemble builds a program from the given lines. The program entry is the
// base PC.
func (a *Assembler) Assemble(lines []string) (*Program, error) {
	labels := make(map[string]uint64)
	var pending []pendingOp

	pc := a.base
	for i, raw := range lines {
		line := raw
		if hash := strings.IndexByte(line, '#'); hash >= 0 {
			line = line[:hash]
		}
		line = strings.TrimSpace(line)

		for {
			colon := strings.IndexByte(line, ':')
			if colon < 0 {
				break
			}
			name := strings.TrimSpace(line[:colon])
			if name == "" || strings.ContainsAny(name, " \t,()") {
				return nil, fmt.Errorf("line %d: invalid label %q", i+1, name)
			}
			if _, dup := labels[name]; dup {
				return nil, fmt.Errorf("line %d: duplicate label %q", i+1, name)
			}
			labels[name] = pc
			line = strings.TrimSpace(line[colon+1:])
		}

		if line == "" {
			continue
		}

		op, label, err := a.decoder.Decode(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		op.PC = pc
		pending = append(pending, pendingOp{op: op, label: label, lineNo: i + 1})
		pc += InstSize
	}

	prog := NewProgram(a.base)
	for _, p := range pending {
		if p.label != "" {
			target, ok := labels[p.label]
			if !ok {
				return nil, fmt.Errorf("line %d: undefined label %q", p.lineNo, p.label)
			}
			p.op.Imm = int64(target - p.op.PC)
		}
		prog.Place(p.op.PC, p.op)
	}

	return prog, nil
}

// MustAssemble is like Assemble but panics on error. It is intended for
// programs built into the binary.
func MustAssemble(base uint64, lines ...string) *Program {
	prog, err := NewAssembler(base).Assemble(lines)
	if err != nil {
		panic(err)
	}
	return prog
}
