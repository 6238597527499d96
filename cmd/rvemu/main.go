// Package main provides the entry point for rvemu.
// It loads an RV32 program into DRAM and inspects the resulting memory.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/profile"

	"github.com/KINGFIOX/rvemu-hitsz/cache"
	"github.com/KINGFIOX/rvemu-hitsz/config"
	"github.com/KINGFIOX/rvemu-hitsz/dram"
	"github.com/KINGFIOX/rvemu-hitsz/loader"
)

var (
	configPath  = flag.String("config", "", "Path to memory map configuration JSON file")
	base        = flag.String("base", "", "DRAM base address (overrides config)")
	size        = flag.String("size", "", "DRAM size in bytes (overrides config)")
	raw         = flag.Bool("raw", false, "Treat the program as a flat binary placed at the DRAM base")
	useCache    = flag.Bool("cache", false, "Access memory through the data cache")
	peek        = flag.String("peek", "", "Comma-separated addr[:bits] list to read after loading")
	profilePath = flag.String("profile", "", "Write a CPU profile to this directory")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rvemu [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(programPath string) int {
	if *profilePath != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*profilePath), profile.Quiet).Stop()
	}

	memConfig, err := loadMemoryConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading memory config: %v\n", err)
		return 1
	}

	var prog *loader.Program
	if *raw {
		prog, err = loader.LoadRaw(programPath, memConfig.Base)
	} else {
		prog, err = loader.Load(programPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		return 1
	}

	image, err := prog.Image(memConfig.Base, memConfig.Size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building image: %v\n", err)
		return 1
	}

	memory, err := dram.New(image, memConfig.Base, memConfig.Size)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating DRAM: %v\n", err)
		return 1
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Entry point: 0x%08X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
		fmt.Printf("DRAM: 0x%08X-0x%08X (%d bytes)\n",
			memory.Base(), uint64(memory.Base())+uint64(memory.Size()), memory.Size())
	}

	reader := newReader(memory, memConfig)

	entryWord, err := reader.read(prog.EntryPoint, dram.Word)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching entry instruction: %v\n", err)
		return 1
	}
	fmt.Printf("0x%08X: 0x%08X (entry)\n", prog.EntryPoint, entryWord)

	if *peek != "" {
		requests, err := parsePeeks(*peek)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing -peek: %v\n", err)
			return 1
		}
		for _, req := range requests {
			value, err := reader.read(req.addr, req.width)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
			fmt.Printf("0x%08X: 0x%0*X\n", req.addr, int(req.width.Bytes())*2, value)
		}
	}

	if *verbose && reader.cache != nil {
		stats := reader.cache.Stats()
		fmt.Printf("Cache: %d reads, %d hits, %d misses, %d cycles\n",
			stats.Reads, stats.Hits, stats.Misses, reader.cycles)
	}

	return 0
}

// loadMemoryConfig builds the memory map from defaults, the config file and
// command-line overrides, in that order.
func loadMemoryConfig() (*config.MemoryConfig, error) {
	memConfig := config.DefaultMemoryConfig()
	if *configPath != "" {
		var err error
		memConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if *base != "" {
		v, err := parseUint32(*base)
		if err != nil {
			return nil, fmt.Errorf("invalid -base: %w", err)
		}
		memConfig.Base = v
	}
	if *size != "" {
		v, err := parseUint32(*size)
		if err != nil {
			return nil, fmt.Errorf("invalid -size: %w", err)
		}
		memConfig.Size = v
	}
	if *useCache {
		memConfig.Cache.Enabled = true
	}

	if err := memConfig.Validate(); err != nil {
		return nil, err
	}
	return memConfig, nil
}

// reader sends loads either straight to DRAM or through the data cache.
type reader struct {
	memory *dram.DRAM
	cache  *cache.Cache
	cycles uint64
}

func newReader(memory *dram.DRAM, memConfig *config.MemoryConfig) *reader {
	r := &reader{memory: memory}
	if memConfig.Cache.Enabled {
		r.cache = cache.New(cache.FromMemoryConfig(memConfig.Cache), cache.NewDRAMBacking(memory))
	}
	return r
}

func (r *reader) read(addr uint32, w dram.Width) (uint32, error) {
	if r.cache == nil {
		return r.memory.Load(addr, w)
	}

	result := r.cache.Read(addr, w)
	if result.Err != nil {
		return 0, result.Err
	}
	r.cycles += result.Latency
	return result.Data, nil
}
