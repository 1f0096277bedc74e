package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/tagalloc/pkg/malloc"
)

var (
	// Global flags
	verbose   bool
	quiet     bool
	jsonOut   bool
	arenaFlag string
	report    bool
)

var rootCmd = &cobra.Command{
	Use:   "mallocctl",
	Short: "Exercise and inspect the boundary-tag allocator",
	Long: `mallocctl drives a boundary-tag allocator instance through fixed
scenarios, random stress runs and scripted allocation sequences, and prints
the resulting free list and statistics.`,
	Version: "0.1.0",
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&arenaFlag, "arena", "2MiB", "Arena size (e.g. 64KiB, 4MiB, 1048576)")
	rootCmd.PersistentFlags().
		BoolVar(&report, "report", false, "Print the allocator statistics report on exit")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAllocator builds an allocator from the global flags.
func newAllocator() (*malloc.Allocator, error) {
	size, err := humanize.ParseBytes(arenaFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid --arena %q: %w", arenaFlag, err)
	}
	if size == 0 || size > 1<<40 {
		return nil, fmt.Errorf("invalid --arena %q: out of range", arenaFlag)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	showReport := report && !quiet && !jsonOut
	return malloc.New(&malloc.Options{
		ArenaSize:    int(size),
		Verbose:      &showReport,
		Logger:       logger,
		ReportWriter: os.Stdout,
	}), nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
