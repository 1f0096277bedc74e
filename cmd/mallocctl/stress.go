package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/tagalloc/pkg/malloc"
)

var (
	stressOps     int
	stressWorkers int
	stressMaxSize int
	stressSeed    int64
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Operations per worker")
	cmd.Flags().IntVar(&stressWorkers, "workers", 4, "Concurrent workers sharing the allocator")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 4096, "Largest request size in bytes")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a concurrent random allocation workload",
		Long: `The stress command runs --workers goroutines against one allocator.
Each performs --ops random malloc, realloc, calloc and free calls and checks
that its blocks keep their contents. Out-of-memory results are counted, not
treated as failures.

Example:
  mallocctl stress
  mallocctl stress --workers 16 --ops 50000 --arena 16MiB
  mallocctl stress --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

// StressResult summarises one stress run.
type StressResult struct {
	Workers     int          `json:"workers"`
	Ops         int          `json:"ops"`
	OutOfMemory int          `json:"out_of_memory"`
	Duration    string       `json:"duration"`
	Stats       malloc.Stats `json:"stats"`
}

type held struct {
	p    malloc.Ptr
	n    int
	mark byte
}

func runStress() error {
	if stressWorkers < 1 || stressOps < 0 || stressMaxSize < 1 {
		return fmt.Errorf("--workers and --max-size must be positive, --ops non-negative")
	}
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oom  int
		errs []error
	)
	start := time.Now()
	for w := range stressWorkers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			n, err := stressWorker(a, byte(id+1), rand.New(rand.NewSource(stressSeed+int64(id))))
			mu.Lock()
			oom += n
			if err != nil {
				errs = append(errs, fmt.Errorf("worker %d: %w", id, err))
			}
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	if err := a.Verify(); err != nil {
		return fmt.Errorf("arena inconsistent after stress: %w", err)
	}

	res := StressResult{
		Workers:     stressWorkers,
		Ops:         stressWorkers * stressOps,
		OutOfMemory: oom,
		Duration:    elapsed.String(),
		Stats:       a.Stats(),
	}
	if jsonOut {
		return printJSON(res)
	}
	printInfo("Workers:       %d\n", res.Workers)
	printInfo("Operations:    %s\n", humanize.Comma(int64(res.Ops)))
	printInfo("Out of memory: %d\n", res.OutOfMemory)
	printInfo("Elapsed:       %s\n", res.Duration)
	printInfo("Free blocks:   %d (%s free)\n", res.Stats.Alloc.FreeBlocks, humanize.IBytes(res.Stats.Alloc.FreeBytes))
	return nil
}

// stressWorker runs one worker's share of the workload and releases all of
// its blocks before returning. It returns the number of out-of-memory results.
func stressWorker(a *malloc.Allocator, mark byte, rng *rand.Rand) (int, error) {
	var (
		mine []held
		oom  int
	)
	stamp := func(h held) error {
		b, err := a.Bytes(h.p)
		if err != nil {
			return err
		}
		for i := range h.n {
			b[i] = h.mark
		}
		return nil
	}
	check := func(h held) error {
		b, err := a.Bytes(h.p)
		if err != nil {
			return err
		}
		for i := range h.n {
			if b[i] != h.mark {
				return fmt.Errorf("block 0x%X corrupted at byte %d", h.p, i)
			}
		}
		return nil
	}

	for range stressOps {
		size := rng.Intn(stressMaxSize) + 1
		switch op := rng.Intn(10); {
		case op < 4 || len(mine) == 0:
			var p malloc.Ptr
			var err error
			if op == 0 {
				p, err = a.Calloc(size, 1)
			} else {
				p, err = a.Malloc(size)
			}
			if errors.Is(err, malloc.ErrOutOfMemory) {
				oom++
				continue
			}
			if err != nil {
				return oom, err
			}
			h := held{p: p, n: size, mark: mark}
			if err := stamp(h); err != nil {
				return oom, err
			}
			mine = append(mine, h)

		case op < 6:
			i := rng.Intn(len(mine))
			if err := check(mine[i]); err != nil {
				return oom, err
			}
			p, err := a.Realloc(mine[i].p, size)
			if errors.Is(err, malloc.ErrOutOfMemory) {
				oom++
				continue
			}
			if err != nil {
				return oom, err
			}
			mine[i] = held{p: p, n: min(size, mine[i].n), mark: mark}
			if err := check(mine[i]); err != nil {
				return oom, err
			}
			mine[i].n = size
			if err := stamp(mine[i]); err != nil {
				return oom, err
			}

		default:
			i := rng.Intn(len(mine))
			if err := check(mine[i]); err != nil {
				return oom, err
			}
			if err := a.Free(mine[i].p); err != nil {
				return oom, err
			}
			mine[i] = mine[len(mine)-1]
			mine = mine[:len(mine)-1]
		}
	}

	for _, h := range mine {
		if err := check(h); err != nil {
			return oom, err
		}
		if err := a.Free(h.p); err != nil {
			return oom, err
		}
	}
	return oom, nil
}
