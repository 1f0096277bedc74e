package alloc

import (
	"log/slog"
	"os"
)

// logAlloc enables allocation tracing. Controlled by MALLOC_LOG_ALLOC.
var logAlloc = os.Getenv("MALLOC_LOG_ALLOC") != ""

var tracer = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

func tracef(msg string, args ...any) {
	if logAlloc {
		tracer.Debug(msg, args...)
	}
}
