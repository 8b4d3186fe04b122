package emu

import "sort"

// WordSize is the width of one data memory access in bytes.
const WordSize = 8

// DataMemory is the data memory service seen by loads and stores. Addresses
// are byte addresses of aligned 64-bit words.
type DataMemory interface {
	Read(addr uint64) uint64
	Write(addr uint64, value uint64)
}

// Memory is a sparse word-addressed DataMemory. Unwritten words read 0.
type Memory struct {
	words map[uint64]uint64
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint64]uint64)}
}

// Read returns the word at addr.
func (m *Memory) Read(addr uint64) uint64 {
	return m.words[addr]
}

// Write stores value at addr.
func (m *Memory) Write(addr uint64, value uint64) {
	if value == 0 {
		delete(m.words, addr)
		return
	}
	m.words[addr] = value
}

// Load copies initial contents into memory.
func (m *Memory) Load(data map[uint64]uint64) {
	for addr, value := range data {
		m.Write(addr, value)
	}
}

// Words returns a copy of every non-zero word.
func (m *Memory) Words() map[uint64]uint64 {
	out := make(map[uint64]uint64, len(m.words))
	for addr, value := range m.words {
		out[addr] = value
	}
	return out
}

// Addresses returns the addresses of every non-zero word in ascending order.
func (m *Memory) Addresses() []uint64 {
	addrs := make([]uint64, 0, len(m.words))
	for addr := range m.words {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}
