// Package config describes the memory map of the emulated machine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultBase is where RV32 programs conventionally expect DRAM to start.
const DefaultBase = 0x80000000

// DefaultSize is the default DRAM size (128MB).
const DefaultSize = 128 * 1024 * 1024

// CacheConfig holds the geometry of the optional data cache in front of DRAM.
type CacheConfig struct {
	// Enabled places a cache between the CPU and DRAM.
	Enabled bool `json:"enabled"`

	// Size in bytes. Default: 64KB.
	Size int `json:"size"`

	// Associativity is the number of ways per set. Default: 4.
	Associativity int `json:"associativity"`

	// BlockSize is the cache line size in bytes. Default: 64.
	BlockSize int `json:"block_size"`

	// HitLatency in cycles. Default: 1.
	HitLatency uint64 `json:"hit_latency"`

	// MissLatency in cycles, including the DRAM access. Default: 100.
	MissLatency uint64 `json:"miss_latency"`
}

// MemoryConfig describes the DRAM window.
type MemoryConfig struct {
	// Base is the physical address of the first DRAM byte.
	Base uint32 `json:"base"`

	// Size is the requested DRAM size in bytes. It is rounded up to a
	// multiple of 4 when the memory is created.
	Size uint32 `json:"size"`

	Cache CacheConfig `json:"cache"`
}

// DefaultMemoryConfig returns a MemoryConfig with 128MB of DRAM at
// 0x80000000 and the cache disabled.
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		Base: DefaultBase,
		Size: DefaultSize,
		Cache: CacheConfig{
			Enabled:       false,
			Size:          64 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   100,
		},
	}
}

// LoadConfig loads a MemoryConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*MemoryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory config file: %w", err)
	}

	config := DefaultMemoryConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse memory config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a MemoryConfig to a JSON file.
func (c *MemoryConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize memory config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write memory config file: %w", err)
	}

	return nil
}

// Validate checks that the memory map can be built.
func (c *MemoryConfig) Validate() error {
	if c.Size == 0 {
		return fmt.Errorf("size must be > 0")
	}
	// The rounded-up window must end at or below 2^32.
	if uint64(c.Base)+(uint64(c.Size)+3)/4*4 > 1<<32 {
		return fmt.Errorf("memory window 0x%08x+0x%x wraps past 0xffffffff", c.Base, c.Size)
	}

	if !c.Cache.Enabled {
		return nil
	}
	if !isPowerOfTwo(c.Cache.BlockSize) || c.Cache.BlockSize < 4 {
		return fmt.Errorf("cache block_size must be a power of two >= 4")
	}
	if c.Cache.Associativity <= 0 {
		return fmt.Errorf("cache associativity must be > 0")
	}
	setBytes := c.Cache.Associativity * c.Cache.BlockSize
	if c.Cache.Size < setBytes || c.Cache.Size%setBytes != 0 {
		return fmt.Errorf("cache size must be a multiple of associativity*block_size")
	}
	if !isPowerOfTwo(c.Cache.Size / setBytes) {
		return fmt.Errorf("cache set count must be a power of two")
	}
	if c.Cache.HitLatency == 0 {
		return fmt.Errorf("cache hit_latency must be > 0")
	}
	if c.Cache.MissLatency < c.Cache.HitLatency {
		return fmt.Errorf("cache miss_latency must be >= hit_latency")
	}
	return nil
}

// Clone returns a copy of the MemoryConfig.
func (c *MemoryConfig) Clone() *MemoryConfig {
	clone := *c
	return &clone
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
