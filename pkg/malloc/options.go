package malloc

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/tagalloc/internal/format"
	"github.com/joshuapare/tagalloc/internal/osmem"
)

// Environment variables read by OptionsFromEnv.
const (
	EnvVerbose   = "MALLOCVERBOSE"
	EnvArenaSize = "MALLOC_ARENA_SIZE"
)

// Options configures an Allocator. The zero value is valid.
type Options struct {
	// ArenaSize is the usable capacity of the arena in bytes.
	// Default: 2 MiB.
	ArenaSize int

	// Verbose controls the statistics report written by Close.
	// If nil, the report is written.
	Verbose *bool

	// Logger receives lifecycle and error events.
	// If nil, events are discarded.
	Logger *slog.Logger

	// Mapper supplies the arena memory. If nil, memory is mapped from the OS.
	Mapper osmem.MapFunc

	// ReportWriter is where Close writes the report.
	// Default: os.Stderr.
	ReportWriter io.Writer
}

// OptionsFromEnv builds Options from MALLOCVERBOSE and MALLOC_ARENA_SIZE.
// MALLOCVERBOSE=NO disables the report; any other value leaves it on.
func OptionsFromEnv() (*Options, error) {
	opts := &Options{}
	if v, ok := os.LookupEnv(EnvVerbose); ok {
		verbose := !strings.EqualFold(strings.TrimSpace(v), "NO")
		opts.Verbose = &verbose
	}
	if v := strings.TrimSpace(os.Getenv(EnvArenaSize)); v != "" {
		n, err := humanize.ParseBytes(v)
		if err != nil {
			return nil, fmt.Errorf("malloc: parse %s=%q: %w", EnvArenaSize, v, err)
		}
		if n == 0 || n > uint64(maxArena) {
			return nil, fmt.Errorf("malloc: %s=%q out of range", EnvArenaSize, v)
		}
		opts.ArenaSize = int(n)
	}
	return opts, nil
}

// maxArena caps sizes parsed from text; heap.New rejects anything larger.
const maxArena = 1 << 40

type config struct {
	arenaSize int
	verbose   bool
	logger    *slog.Logger
	mapper    osmem.MapFunc
	report    io.Writer
}

func (o *Options) withDefaults() config {
	c := config{
		arenaSize: format.DefaultArenaSize,
		verbose:   true,
		logger:    slog.New(slog.DiscardHandler),
		mapper:    osmem.Map,
		report:    os.Stderr,
	}
	if o == nil {
		return c
	}
	if o.ArenaSize > 0 {
		c.arenaSize = o.ArenaSize
	}
	if o.Verbose != nil {
		c.verbose = *o.Verbose
	}
	if o.Logger != nil {
		c.logger = o.Logger
	}
	if o.Mapper != nil {
		c.mapper = o.Mapper
	}
	if o.ReportWriter != nil {
		c.report = o.ReportWriter
	}
	return c
}
