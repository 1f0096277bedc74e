package malloc

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/tagalloc/heap/alloc"
)

// Stats is a snapshot of an Allocator's counters.
type Stats struct {
	HeapSize int64 `json:"heap_size"`
	Chunks   int   `json:"chunks"`
	Mallocs  int   `json:"mallocs"`
	Reallocs int   `json:"reallocs"`
	Callocs  int   `json:"callocs"`
	Frees    int   `json:"frees"`

	Alloc alloc.Stats `json:"alloc"`
}

// Stats returns the current counters. HeapSize and Chunks are zero until the
// arena is mapped.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statsLocked()
}

func (a *Allocator) statsLocked() Stats {
	s := Stats{
		Mallocs:  a.mallocs,
		Reallocs: a.reallocs,
		Callocs:  a.callocs,
		Frees:    a.frees,
	}
	if a.h != nil {
		s.HeapSize = a.h.MappedBytes()
		s.Chunks = a.h.Chunks()
		s.Alloc = a.fa.Stats()
	}
	return s
}

// Report writes the statistics report to w.
func (a *Allocator) Report(w io.Writer) error {
	return writeReport(w, a.Stats())
}

var printer = message.NewPrinter(language.English)

const rule = "\n-------------------\n"

func writeReport(w io.Writer, s Stats) error {
	var b strings.Builder
	b.WriteString(rule)
	printer.Fprintf(&b, "HeapSize:\t%d bytes (%s)\n", s.HeapSize, humanize.IBytes(uint64(s.HeapSize)))
	printer.Fprintf(&b, "# chunks:\t%d\n", s.Chunks)
	printer.Fprintf(&b, "# mallocs:\t%d\n", s.Mallocs)
	printer.Fprintf(&b, "# reallocs:\t%d\n", s.Reallocs)
	printer.Fprintf(&b, "# callocs:\t%d\n", s.Callocs)
	printer.Fprintf(&b, "# frees:\t%d\n", s.Frees)
	printer.Fprintf(&b, "# free blocks:\t%d (%s)\n", s.Alloc.FreeBlocks, humanize.IBytes(s.Alloc.FreeBytes))
	b.WriteString(rule)
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatFreeList renders blocks the way the free-list dump prints them:
//
//	FreeList: [offset:0,size:2097200]->[offset:4096,size:1048]
func FormatFreeList(blocks []alloc.FreeBlock) string {
	var b strings.Builder
	b.WriteString("FreeList: ")
	for i, fb := range blocks {
		if i > 0 {
			b.WriteString("->")
		}
		fmt.Fprintf(&b, "[offset:%d,size:%d]", fb.Offset, fb.Size)
	}
	return b.String()
}
