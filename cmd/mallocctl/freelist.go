package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tagalloc/heap/alloc"
	"github.com/joshuapare/tagalloc/pkg/malloc"
)

var freelistEach bool

func init() {
	cmd := newFreelistCmd()
	cmd.Flags().BoolVar(&freelistEach, "each", false, "Print the free list after every step")
	rootCmd.AddCommand(cmd)
}

func newFreelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freelist [step...]",
		Short: "Run an allocation script and dump the free list",
		Long: `The freelist command applies a sequence of steps to a fresh allocator
and prints the free list. Offsets are relative to the first block.

Steps:
  aN    allocate N bytes
  fI    free the I-th allocation (0-based, in script order)
  rI:N  realloc the I-th allocation to N bytes

Example:
  mallocctl freelist
  mallocctl freelist a100 a100 f0
  mallocctl freelist a64 a64 a64 f1 r0:500 --each
  mallocctl freelist a100 f0 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFreelist(args)
		},
	}
	return cmd
}

// FreelistStep is one applied script step.
type FreelistStep struct {
	Step     string            `json:"step"`
	Ptr      malloc.Ptr        `json:"ptr,omitempty"`
	FreeList []alloc.FreeBlock `json:"free_list,omitempty"`
}

// FreelistResult is the JSON form of a freelist run.
type FreelistResult struct {
	Steps    []FreelistStep    `json:"steps"`
	FreeList []alloc.FreeBlock `json:"free_list"`
}

func runFreelist(args []string) error {
	a, err := newAllocator()
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		res  FreelistResult
		ptrs []malloc.Ptr
	)
	for _, arg := range args {
		step := FreelistStep{Step: arg}
		p, err := applyStep(a, arg, &ptrs)
		if err != nil {
			return fmt.Errorf("step %q: %w", arg, err)
		}
		step.Ptr = p
		if freelistEach {
			step.FreeList = a.FreeList()
			if !jsonOut {
				printInfo("%-10s %s\n", arg, malloc.FormatFreeList(step.FreeList))
			}
		}
		res.Steps = append(res.Steps, step)
	}

	if err := a.Verify(); err != nil {
		return err
	}
	res.FreeList = a.FreeList()
	if res.FreeList == nil {
		// An empty script never touched the arena.
		printVerbose("Mapping arena for an empty script\n")
		res.FreeList = freshFreeList(a)
	}

	if jsonOut {
		return printJSON(res)
	}
	if !freelistEach || len(args) == 0 {
		printInfo("%s\n", malloc.FormatFreeList(res.FreeList))
	}
	return nil
}

// freshFreeList maps the arena with a zero-byte round trip and returns its
// free list.
func freshFreeList(a *malloc.Allocator) []alloc.FreeBlock {
	p, err := a.Malloc(0)
	if err != nil {
		return nil
	}
	_ = a.Free(p)
	return a.FreeList()
}

// applyStep runs one script step and returns the pointer it produced, if any.
func applyStep(a *malloc.Allocator, step string, ptrs *[]malloc.Ptr) (malloc.Ptr, error) {
	if len(step) < 2 {
		return malloc.Nil, fmt.Errorf("malformed step")
	}
	arg := step[1:]
	switch step[0] {
	case 'a':
		n, err := strconv.Atoi(arg)
		if err != nil {
			return malloc.Nil, err
		}
		p, err := a.Malloc(n)
		if err != nil {
			return malloc.Nil, err
		}
		*ptrs = append(*ptrs, p)
		return p, nil

	case 'f':
		i, err := index(arg, *ptrs)
		if err != nil {
			return malloc.Nil, err
		}
		return malloc.Nil, a.Free((*ptrs)[i])

	case 'r':
		is, ns, ok := strings.Cut(arg, ":")
		if !ok {
			return malloc.Nil, fmt.Errorf("realloc step needs I:N")
		}
		i, err := index(is, *ptrs)
		if err != nil {
			return malloc.Nil, err
		}
		n, err := strconv.Atoi(ns)
		if err != nil {
			return malloc.Nil, err
		}
		p, err := a.Realloc((*ptrs)[i], n)
		if err != nil {
			return malloc.Nil, err
		}
		(*ptrs)[i] = p
		return p, nil
	}
	return malloc.Nil, fmt.Errorf("unknown step kind %q", step[0])
}

func index(s string, ptrs []malloc.Ptr) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(ptrs) {
		return 0, fmt.Errorf("no allocation %d (have %d)", i, len(ptrs))
	}
	return i, nil
}
