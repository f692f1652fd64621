// Package trace is zkFuzz's logging substitute: typed event structs
// collected into a slice rather than text lines, so the caller decides
// what to do with them (print, attach to a report, discard).
//
// Also carries the constraint-statistics counters (Stats), which
// zkfuzz.ComputeStats fills in and the CLI prints under flag_printout_stats.
package trace

import "fmt"

// DebugLevel is a three-tier severity split.
type DebugLevel int

const (
	LevelInfo DebugLevel = iota
	LevelWarn
	LevelError
)

func (l DebugLevel) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// DebugEvent is one recorded event: a severity, a short tag naming the
// component that emitted it, and a free-form message.
type DebugEvent struct {
	Level   DebugLevel
	Source  string
	Message string
}

func (e DebugEvent) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Level, e.Source, e.Message)
}

// Telemetry accumulates DebugEvents across a run of the search driver. Nil-safe: a nil *Telemetry silently discards events, so
// callers that don't care about telemetry don't need to special-case it.
type Telemetry struct {
	Events []DebugEvent
}

// New creates an empty Telemetry sink.
func New() *Telemetry { return &Telemetry{} }

// Emit records one event. A nil receiver is a no-op.
func (t *Telemetry) Emit(level DebugLevel, source, format string, args ...interface{}) {
	if t == nil {
		return
	}
	t.Events = append(t.Events, DebugEvent{Level: level, Source: source, Message: fmt.Sprintf(format, args...)})
}

// Infof/Warnf/Errorf are Emit at a fixed level, for call-site brevity.
func (t *Telemetry) Infof(source, format string, args ...interface{}) {
	t.Emit(LevelInfo, source, format, args...)
}
func (t *Telemetry) Warnf(source, format string, args ...interface{}) {
	t.Emit(LevelWarn, source, format, args...)
}
func (t *Telemetry) Errorf(source, format string, args ...interface{}) {
	t.Emit(LevelError, source, format, args...)
}

// Stats carries the per-run constraint-statistics counters: trace length,
// side constraint count, components instantiated, unsafe (<--) assignment
// sites available to the mutation driver, and the deepest
// symbolic-execution nesting reached.
type Stats struct {
	TraceLength        int
	SideConstraintLen  int
	ComponentsFired    int
	UnsafeAssignSites  int
	MaxDepth           int
}

// String renders Stats as a short human-readable table.
func (s Stats) String() string {
	return fmt.Sprintf(
		"trace=%d side=%d components=%d unsafe_assigns=%d max_depth=%d",
		s.TraceLength, s.SideConstraintLen, s.ComponentsFired, s.UnsafeAssignSites, s.MaxDepth,
	)
}
