package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/tagalloc/pkg/malloc"
)

var (
	scenarioCount      int
	scenarioSize       int
	scenarioRefill     int
	scenarioRefillSize int
)

func init() {
	cmd := newScenarioCmd()
	cmd.Flags().IntVar(&scenarioCount, "count", 1000, "Number of initial allocations")
	cmd.Flags().IntVar(&scenarioSize, "size", 1000, "Size of each initial allocation")
	cmd.Flags().IntVar(&scenarioRefill, "refill", 400, "Number of allocations after freeing every other block")
	cmd.Flags().IntVar(&scenarioRefillSize, "refill-size", 2500, "Size of each refill allocation")
	rootCmd.AddCommand(cmd)
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Run the fragment-and-refill scenario",
		Long: `The scenario command allocates --count blocks of --size bytes, frees
every other one, then allocates --refill blocks of --refill-size bytes. The
arena is verified after each phase.

Example:
  mallocctl scenario
  mallocctl scenario --count 200 --size 64 --refill 50 --refill-size 300
  mallocctl scenario --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario()
		},
	}
	return cmd
}

// ScenarioResult summarises one scenario run.
type ScenarioResult struct {
	Allocated  int          `json:"allocated"`
	Freed      int          `json:"freed"`
	Refilled   int          `json:"refilled"`
	FreeBlocks int          `json:"free_blocks"`
	Stats      malloc.Stats `json:"stats"`
}

func runScenario() error {
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Close()

	var res ScenarioResult
	ptrs := make([]malloc.Ptr, 0, scenarioCount)
	for i := range scenarioCount {
		p, err := a.Malloc(scenarioSize)
		if err != nil {
			return fmt.Errorf("allocation %d of %d bytes: %w", i, scenarioSize, err)
		}
		ptrs = append(ptrs, p)
	}
	res.Allocated = len(ptrs)
	if err := a.Verify(); err != nil {
		return fmt.Errorf("after allocation: %w", err)
	}
	printVerbose("Allocated %d blocks of %s\n", res.Allocated, humanize.IBytes(uint64(scenarioSize)))

	for i := 0; i < len(ptrs); i += 2 {
		if err := a.Free(ptrs[i]); err != nil {
			return fmt.Errorf("free %d: %w", i, err)
		}
		res.Freed++
	}
	if err := a.Verify(); err != nil {
		return fmt.Errorf("after free: %w", err)
	}
	printVerbose("Freed %d blocks, free list has %d entries\n", res.Freed, len(a.FreeList()))

	for i := range scenarioRefill {
		if _, err := a.Malloc(scenarioRefillSize); err != nil {
			return fmt.Errorf("refill %d of %d bytes: %w", i, scenarioRefillSize, err)
		}
		res.Refilled++
	}
	if err := a.Verify(); err != nil {
		return fmt.Errorf("after refill: %w", err)
	}

	res.FreeBlocks = len(a.FreeList())
	res.Stats = a.Stats()

	if jsonOut {
		return printJSON(res)
	}
	printInfo("Allocated:   %d x %d bytes\n", res.Allocated, scenarioSize)
	printInfo("Freed:       %d\n", res.Freed)
	printInfo("Refilled:    %d x %d bytes\n", res.Refilled, scenarioRefillSize)
	printInfo("Free blocks: %d (%s free)\n", res.FreeBlocks, humanize.IBytes(res.Stats.Alloc.FreeBytes))
	printInfo("Arena OK\n")
	return nil
}
