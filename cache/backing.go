package cache

import (
	"github.com/KINGFIOX/rvemu-hitsz/dram"
)

// DRAMBacking adapts dram.DRAM as a BackingStore. Blocks that hang over the
// edge of the DRAM window are clamped: the missing bytes read as zero and
// are dropped on writeback.
type DRAMBacking struct {
	memory *dram.DRAM
}

// NewDRAMBacking creates a new DRAMBacking adapter.
func NewDRAMBacking(memory *dram.DRAM) *DRAMBacking {
	return &DRAMBacking{memory: memory}
}

// Contains reports whether all size bytes starting at addr are in DRAM.
func (m *DRAMBacking) Contains(addr uint32, size int) bool {
	if size <= 0 || !m.memory.Contains(addr) {
		return false
	}
	return uint64(addr-m.memory.Base())+uint64(size) <= uint64(m.memory.Size())
}

// overlap returns the part of [addr, addr+size) inside the window.
func (m *DRAMBacking) overlap(addr uint32, size int) (lo, hi uint64, ok bool) {
	start := uint64(m.memory.Base())
	end := start + uint64(m.memory.Size())

	lo = max(uint64(addr), start)
	hi = min(uint64(addr)+uint64(size), end)
	return lo, hi, lo < hi
}

// Read fetches a block from DRAM.
func (m *DRAMBacking) Read(addr uint32, size int) ([]byte, error) {
	lo, hi, ok := m.overlap(addr, size)
	if !ok {
		return m.memory.ReadBytes(addr, size)
	}

	data, err := m.memory.ReadBytes(uint32(lo), int(hi-lo))
	if err != nil {
		return nil, err
	}

	block := make([]byte, size)
	copy(block[lo-uint64(addr):], data)
	return block, nil
}

// Write stores a block to DRAM.
func (m *DRAMBacking) Write(addr uint32, data []byte) error {
	lo, hi, ok := m.overlap(addr, len(data))
	if !ok {
		return m.memory.WriteBytes(addr, data)
	}

	return m.memory.WriteBytes(uint32(lo), data[lo-uint64(addr):hi-uint64(addr)])
}
