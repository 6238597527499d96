// Package cache models a set-associative data cache in front of DRAM using
// Akita cache components.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/KINGFIOX/rvemu-hitsz/config"
	"github.com/KINGFIOX/rvemu-hitsz/dram"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size)
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes the DRAM access)
	MissLatency uint64
}

// FromMemoryConfig extracts the cache geometry from a memory map config.
func FromMemoryConfig(c config.CacheConfig) Config {
	return Config{
		Size:          c.Size,
		Associativity: c.Associativity,
		BlockSize:     c.BlockSize,
		HitLatency:    c.HitLatency,
		MissLatency:   c.MissLatency,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the zero-extended value read (for loads).
	Data uint32
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
	// Err is set when the access was rejected. The cache is unchanged.
	Err error
}

// Cache is a write-back, write-allocate cache.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
	Faults     uint64
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Read fetches size bytes starting at addr.
	Read(addr uint32, size int) ([]byte, error)
	// Write stores data starting at addr.
	Write(addr uint32, data []byte) error
	// Contains reports whether size bytes starting at addr are backed.
	Contains(addr uint32, size int) bool
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr / uint32(c.config.BlockSize) * uint32(c.config.BlockSize)
}

// check rejects accesses outside the backing store, widths other than
// 8/16/32 and accesses that straddle two cache lines. The address is checked
// before the width, as in dram.
func (c *Cache) check(op string, addr uint32, w dram.Width) error {
	if c.backing != nil && !c.backing.Contains(addr, 1) {
		return &dram.AccessError{Op: op, Kind: dram.OutOfRange, Addr: addr, Width: w}
	}
	if !w.Valid() {
		return &dram.AccessError{Op: op, Kind: dram.UnsupportedWidth, Addr: addr, Width: w}
	}
	offset := addr % uint32(c.config.BlockSize)
	if offset+w.Bytes() > uint32(c.config.BlockSize) {
		return fmt.Errorf("cache: %s 0x%08x: %d-bit access crosses a %d-byte line",
			op, addr, uint32(w), c.config.BlockSize)
	}
	if c.backing != nil && !c.backing.Contains(addr, int(w.Bytes())) {
		return &dram.AccessError{Op: op, Kind: dram.OutOfRange, Addr: addr, Width: w}
	}
	return nil
}

// Read performs a cache read of width w at addr.
func (c *Cache) Read(addr uint32, w dram.Width) AccessResult {
	if err := c.check("load", addr, w); err != nil {
		c.stats.Faults++
		return AccessResult{Err: err}
	}
	c.stats.Reads++

	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint32(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    extractData(blockData, offset, w),
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, w, false, 0)
}

// Write performs a cache write of the low w bits of value at addr.
// On a miss the block is fetched first, then written.
func (c *Cache) Write(addr uint32, value uint32, w dram.Width) AccessResult {
	if err := c.check("store", addr, w); err != nil {
		c.stats.Faults++
		return AccessResult{Err: err}
	}
	c.stats.Writes++

	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		offset := addr % uint32(c.config.BlockSize)
		blockData := c.dataStore[c.blockIndex(block)]
		storeData(blockData, offset, w, value)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	return c.handleMiss(addr, w, true, value)
}

// handleMiss fetches the block before touching the victim, so a fetch that
// fails leaves the cache and memory as they were.
func (c *Cache) handleMiss(addr uint32, w dram.Width, isWrite bool, writeData uint32) AccessResult {
	result := AccessResult{
		Hit:     false,
		Latency: c.config.MissLatency,
	}

	blockAddr := c.blockAddr(addr)

	var newData []byte
	if c.backing != nil {
		var err error
		newData, err = c.backing.Read(blockAddr, c.config.BlockSize)
		if err != nil {
			c.stats.Faults++
			result.Err = fmt.Errorf("cache: fill 0x%08x: %w", blockAddr, err)
			return result
		}
	}

	victim := c.directory.FindVictim(uint64(blockAddr))
	if victim == nil {
		result.Err = fmt.Errorf("cache: no victim for 0x%08x", blockAddr)
		return result
	}

	victimData := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty && c.backing != nil {
			if err := c.backing.Write(uint32(victim.Tag), victimData); err != nil {
				c.stats.Faults++
				result.Err = fmt.Errorf("cache: writeback 0x%08x: %w", victim.Tag, err)
				return result
			}
			c.stats.Writebacks++
		}
	}

	if newData != nil {
		copy(victimData, newData)
	} else {
		for i := range victimData {
			victimData[i] = 0
		}
	}

	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false

	offset := addr % uint32(c.config.BlockSize)
	if isWrite {
		storeData(victimData, offset, w, writeData)
		victim.IsDirty = true
	} else {
		result.Data = extractData(victimData, offset, w)
	}

	c.directory.Visit(victim)

	return result
}

// Invalidate marks a cache line as invalid without writing it back.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them. It stops at the
// first writeback error.
func (c *Cache) Flush() error {
	sets := c.directory.GetSets()
	for _, set := range sets {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				blockData := c.dataStore[c.blockIndex(block)]
				if err := c.backing.Write(uint32(block.Tag), blockData); err != nil {
					return fmt.Errorf("cache: writeback 0x%08x: %w", block.Tag, err)
				}
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
	return nil
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

// extractData reads a little-endian value of width w from a block.
func extractData(data []byte, offset uint32, w dram.Width) uint32 {
	var result uint32
	for i := uint32(0); i < w.Bytes(); i++ {
		result |= uint32(data[offset+i]) << (i * 8)
	}
	return result
}

// storeData writes the low w bits of value into a block, little-endian.
func storeData(data []byte, offset uint32, w dram.Width, value uint32) {
	for i := uint32(0); i < w.Bytes(); i++ {
		data[offset+i] = byte(value >> (i * 8))
	}
}
