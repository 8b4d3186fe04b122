// Package rename implements register renaming for the out-of-order core.
//
// The package contains the building blocks (a snapshotting free list, a
// snapshotting rename table and a physical register file) and the
// DataFlowManager that composes them. Every unit is described by an
// immutable config, a value state, and a pure Next function that computes
// the state after one tick from the state before it and all requests made
// during the tick. Wrapper types hold the live state for callers that just
// want to tick.
package rename

// Preg is a physical register tag.
type Preg uint16

// Areg is an architectural register index. Register 0 always reads zero.
type Areg uint8

// SnapshotID names a saved copy of the renaming state.
type SnapshotID int
