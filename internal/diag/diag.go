// Package diag provides the diagnostics sink the core reports warnings
// through instead of raising exceptions for per-element geometric problems
// (spec.md §7). The core never reaches for a global logger; every component
// that can produce a diagnostic takes a Sink.
package diag

import "log/slog"

// Level classifies a diagnostic entry.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Reason is a machine-distinguishable classification for a diagnostic,
// e.g. why a roundabout or structure match was rejected.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonNoOnRingPoints      Reason = "no-on-ring-points"
	ReasonAmbiguousRing       Reason = "ambiguous-ring"
	ReasonUnmatchedStructure  Reason = "unmatched-structure"
	ReasonGradeExceeded       Reason = "grade-exceeded"
	ReasonDegenerateGeometry  Reason = "degenerate-geometry"
	ReasonInsufficientPoints  Reason = "insufficient-points"
	ReasonTopologyAmbiguity   Reason = "topology-ambiguity"
)

// Entry is one diagnostic message.
type Entry struct {
	Level   Level
	Message string
	Reason  Reason
}

// Sink receives diagnostic entries emitted by the pipeline. Implementations
// must be safe to call from the single pipeline goroutine only; the core
// makes no concurrency guarantees about Sink usage (spec.md §5).
type Sink interface {
	Emit(level Level, message string, reason Reason)
}

// Collector is a Sink that accumulates entries in memory, for callers that
// want to inspect diagnostics after a pipeline run (e.g. in tests or a
// result summary) rather than stream them.
type Collector struct {
	Entries []Entry
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit implements Sink.
func (c *Collector) Emit(level Level, message string, reason Reason) {
	c.Entries = append(c.Entries, Entry{Level: level, Message: message, Reason: reason})
}

// CountAtLeast returns how many entries are at or above the given level.
func (c *Collector) CountAtLeast(level Level) int {
	n := 0
	for _, e := range c.Entries {
		if e.Level >= level {
			n++
		}
	}
	return n
}

// SlogSink adapts log/slog to the Sink interface, matching the teacher's
// slog-based logging convention (internal/cmd/root.go's initLogging).
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink wraps logger (or slog.Default() if nil) as a Sink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger}
}

// Emit implements Sink.
func (s *SlogSink) Emit(level Level, message string, reason Reason) {
	args := []any{}
	if reason != ReasonNone {
		args = append(args, "reason", string(reason))
	}
	switch level {
	case Info:
		s.Logger.Info(message, args...)
	case Warning:
		s.Logger.Warn(message, args...)
	case Error:
		s.Logger.Error(message, args...)
	}
}

// Nop is a Sink that discards everything, useful as a zero-value default.
type Nop struct{}

// Emit implements Sink.
func (Nop) Emit(Level, string, Reason) {}
