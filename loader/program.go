// Package loader reads micro-op programs from YAML or JSON files.
//
// A program file looks like:
//
//	name: sum
//	base: 0x1000
//	text:
//	  - li t0, 10
//	  - "loop: add a0, a0, t0"
//	  - addi t0, t0, -1
//	  - bnez t0, loop
//	data:
//	  "0x8000": 42
//	exit: 55
//
// JSON files use the same field names.
package loader

import (
	"fmt"
	"os"
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/sarchlab/lizard/insts"
)

// DefaultBase is the PC of the first op when a file names no base.
const DefaultBase = 0x1000

// File is the on-disk form of a program.
type File struct {
	Name string `json:"name,omitempty"`

	// Base is the PC of the first line of Text and the program entry.
	Base uint64 `json:"base,omitempty"`

	Text []string `json:"text"`

	// TrapVector and Handler place an exception handler. The handler is
	// assembled separately, so it cannot branch to labels in Text.
	TrapVector uint64   `json:"trap_vector,omitempty"`
	Handler    []string `json:"handler,omitempty"`

	// Data maps word addresses, written in any Go integer syntax, to their
	// initial values.
	Data map[string]uint64 `json:"data,omitempty"`

	// Exit is the expected exit code, checked by callers that want it.
	Exit *uint64 `json:"exit,omitempty"`
}

// Program is an assembled program along with its metadata.
type Program struct {
	*insts.Program

	Name       string
	TrapVector uint64
	Exit       *uint64
}

// Load reads and assembles the program file at path.
func Load(path string) (*Program, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	prog, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return prog, nil
}

// Parse assembles a program from YAML or JSON bytes.
func Parse(raw []byte) (*Program, error) {
	var f File
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	return f.Build()
}

// Build assembles the file into a program.
func (f *File) Build() (*Program, error) {
	if len(f.Text) == 0 {
		return nil, fmt.Errorf("program has no text")
	}

	base := f.Base
	if base == 0 {
		base = DefaultBase
	}

	prog, err := insts.NewAssembler(base).Assemble(f.Text)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}

	if len(f.Handler) > 0 {
		handler, err := insts.NewAssembler(f.TrapVector).Assemble(f.Handler)
		if err != nil {
			return nil, fmt.Errorf("handler: %w", err)
		}
		for pc, op := range handler.Ops {
			if prog.At(pc) != nil {
				return nil, fmt.Errorf("handler overlaps text at 0x%x", pc)
			}
			prog.Place(pc, *op)
		}
	}

	for key, value := range f.Data {
		addr, err := strconv.ParseUint(key, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("data address %q: %w", key, err)
		}
		if addr%8 != 0 {
			return nil, fmt.Errorf("data address 0x%x is not word aligned", addr)
		}
		prog.Data[addr] = value
	}

	return &Program{
		Program:    prog,
		Name:       f.Name,
		TrapVector: f.TrapVector,
		Exit:       f.Exit,
	}, nil
}

// Save writes a program file as YAML.
func Save(f *File, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal program: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write program file: %w", err)
	}
	return nil
}

// Disassemble turns a program back into a file. Branch targets are written
// as numeric offsets.
func Disassemble(p *Program) *File {
	f := &File{
		Name:       p.Name,
		Base:       p.Entry,
		TrapVector: p.TrapVector,
		Exit:       p.Exit,
	}

	for _, op := range p.Listing() {
		line := op.String()
		if op.PC >= p.TrapVector && p.TrapVector > p.Entry {
			f.Handler = append(f.Handler, line)
			continue
		}
		f.Text = append(f.Text, line)
	}

	if len(p.Data) > 0 {
		f.Data = make(map[string]uint64, len(p.Data))
		for addr, value := range p.Data {
			f.Data[fmt.Sprintf("0x%x", addr)] = value
		}
	}

	return f
}
