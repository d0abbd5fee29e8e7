package allocator

import (
	"golang.org/x/exp/slog"

	"github.com/tensorarena/arena/arena/planning"
)

// ErrorReporter routes fatal diagnostic messages to a host-supplied sink
// (firmware UART, a log file, whatever the embedding application prefers),
// matching spec.md §7's "diagnostic message is routed to a host-supplied
// error reporter".
type ErrorReporter interface {
	Report(format string, args ...any)
}

// Options configures an Allocator at construction time. The zero value is
// valid: it logs to slog.Default(), reports nowhere, and packs buffers with
// AllocationStrategyMinMemory.
type Options struct {
	// Logger receives lifecycle and exhaustion diagnostics. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
	// Reporter receives the same diagnostics as a formatted string,
	// in addition to Logger. Optional.
	Reporter ErrorReporter
	// Strategy selects how the memory planner breaks ties among valid
	// offsets. Defaults to AllocationStrategyMinMemory.
	Strategy planning.AllocationStrategy
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Strategy == 0 {
		o.Strategy = planning.AllocationStrategyMinMemory
	}
	return o
}
