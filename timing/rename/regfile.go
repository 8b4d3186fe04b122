package rename

import "fmt"

// PregState is the contents of one physical register.
type PregState struct {
	Value uint64

	// Ready is cleared when a producer is assigned and set on writeback.
	Ready bool
}

// RegFileState holds every physical register. The zero tag entry is never
// observed.
type RegFileState struct {
	Regs    []PregState
	ZeroTag Preg
}

// NewRegFileState returns a register file of n ready registers holding zero.
func NewRegFileState(n int, zeroTag Preg) RegFileState {
	s := RegFileState{Regs: make([]PregState, n), ZeroTag: zeroTag}
	for i := range s.Regs {
		s.Regs[i].Ready = true
	}
	return s
}

// Clone returns a deep copy of the state.
func (s RegFileState) Clone() RegFileState {
	return RegFileState{
		Regs:    append([]PregState(nil), s.Regs...),
		ZeroTag: s.ZeroTag,
	}
}

// Read returns the contents of tag. The zero tag always reads ready zero.
func (s RegFileState) Read(tag Preg) PregState {
	s.check(tag)
	if tag == s.ZeroTag {
		return PregState{Ready: true}
	}
	return s.Regs[tag]
}

func (s *RegFileState) write(tag Preg, value uint64) {
	s.check(tag)
	if tag == s.ZeroTag {
		return
	}
	s.Regs[tag] = PregState{Value: value, Ready: true}
}

func (s *RegFileState) invalidate(tag Preg) {
	s.check(tag)
	if tag == s.ZeroTag {
		return
	}
	s.Regs[tag] = PregState{}
}

func (s RegFileState) check(tag Preg) {
	if int(tag) >= len(s.Regs) {
		panic(fmt.Sprintf("register file: tag %d out of range", tag))
	}
}
