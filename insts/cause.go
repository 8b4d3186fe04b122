package insts

import "fmt"

// Cause identifies why a micro-op raised an exception.
type Cause uint8

// Exception causes.
const (
	CauseNone Cause = iota
	CauseEnvironmentCall
	CauseBreakpoint
	CauseMisalignedLoad
	CauseMisalignedStore
	CauseIllegalInstruction
)

var causeNames = map[Cause]string{
	CauseNone:               "none",
	CauseEnvironmentCall:    "environment call",
	CauseBreakpoint:         "breakpoint",
	CauseMisalignedLoad:     "misaligned load",
	CauseMisalignedStore:    "misaligned store",
	CauseIllegalInstruction: "illegal instruction",
}

func (c Cause) String() string {
	if name, ok := causeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cause(%d)", uint8(c))
}
