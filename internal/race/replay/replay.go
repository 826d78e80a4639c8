// Package replay drives the detector from recorded instrumentation event
// traces.
//
// A Trace is the serialized form of the event stream the instrumentation
// boundary would deliver: function entries and exits, spawn and continuation
// boundaries, task completions, sync points, writes, and local-storage
// allocations, in the nesting order the monitored program produced. Traces
// replay either unsplit on one worker or split at a continuation boundary
// across a victim and a thief, which is how the worker merge protocol's
// observational-equivalence obligation is exercised: the union of racing
// addresses must not depend on where the trace was split.
package replay

import (
	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/dispatch"
)

// Kind enumerates the instrumentation event surface.
type Kind int

const (
	FunctionEnter Kind = iota
	FunctionExit
	SpawnTask
	SpawnContinuation
	TaskComplete
	BeforeSync
	AfterSync
	Write
	Alloca
)

var kindNames = [...]string{
	FunctionEnter:     "function_enter",
	FunctionExit:      "function_exit",
	SpawnTask:         "spawn_task",
	SpawnContinuation: "spawn_continuation",
	TaskComplete:      "task_complete",
	BeforeSync:        "before_sync",
	AfterSync:         "after_sync",
	Write:             "write",
	Alloca:            "alloca",
}

// String returns the event kind's wire name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one instrumentation event. Fields beyond Kind are populated per
// kind: FunctionID for function events, Tag for spawn and sync events, Addr,
// Size, and Loc for memory events.
type Event struct {
	Kind       Kind
	FunctionID uint64
	Tag        uint32
	Addr       accessset.Address
	Size       uintptr
	Loc        accessset.SourceLocation
}

// Trace is an ordered instrumentation event stream.
type Trace []Event

// Apply delivers one event to a worker context.
func Apply(w *dispatch.Worker, ev Event) {
	switch ev.Kind {
	case FunctionEnter:
		w.OnFunctionEnter(ev.FunctionID)
	case FunctionExit:
		w.OnFunctionExit(ev.FunctionID)
	case SpawnTask:
		w.OnSpawnTask(ev.Tag)
	case SpawnContinuation:
		w.OnSpawnContinuation(ev.Tag)
	case TaskComplete:
		w.OnTaskComplete()
	case BeforeSync:
		w.OnBeforeSync(ev.Tag)
	case AfterSync:
		w.OnAfterSync(ev.Tag)
	case Write:
		w.OnWrite(ev.Addr, ev.Loc)
	case Alloca:
		w.OnAlloca(ev.Addr, ev.Size)
	}
}

// Run replays a trace on one worker context.
func Run(w *dispatch.Worker, trace Trace) {
	for _, ev := range trace {
		Apply(w, ev)
	}
}

// RunSplit replays a trace as if the scheduler stole the continuation at
// trace[at]: the victim executes the prefix, a thief replays the suffix from
// the identity view, the views recombine, and the victim then completes the
// suffix's sync points on the combined view, exactly as the last strand to
// reach a sync does under work-stealing. at must be a valid steal point
// (see StealPoints).
func RunSplit(d *dispatch.Dispatcher, victim *dispatch.Worker, trace Trace, at int) {
	Run(victim, trace[:at])

	thief := d.Steal()
	Run(thief, trace[at:])

	d.Rejoin(victim, thief)
	for _, ev := range trace[at:] {
		if ev.Kind == AfterSync {
			victim.OnAfterSync(ev.Tag)
		}
	}
}

// StealPoints returns the indices at which a steal may split the trace: the
// continuation boundaries, where a work-stealing scheduler hands the rest of
// the strand to a thief.
func StealPoints(trace Trace) []int {
	var points []int
	for i, ev := range trace {
		if ev.Kind == SpawnContinuation {
			points = append(points, i)
		}
	}
	return points
}
