package engine

import (
	"go.uber.org/zap"

	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/report"
	"github.com/kolkov/detrace/internal/race/shadowstack"
)

// Engine drives race detection for one strand's shadow stack.
//
// Engine is not safe for concurrent use; under work-stealing each worker
// slot owns its own Engine, and views are recombined through the reducer.
type Engine struct {
	stack  *shadowstack.ShadowStack
	onRace report.Handler
	log    *zap.Logger
}

// New returns an engine for a fresh strand, holding the single base frame.
// A nil handler discards races; a nil logger disables tracing.
func New(onRace report.Handler, log *zap.Logger) *Engine {
	return Attach(shadowstack.New(), onRace, log)
}

// Attach wraps an existing shadow stack, typically an identity view created
// for a stolen continuation.
func Attach(stack *shadowstack.ShadowStack, onRace report.Handler, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{stack: stack, onRace: onRace, log: log}
}

// Stack exposes the underlying view for the reducer.
func (e *Engine) Stack() *shadowstack.ShadowStack {
	return e.stack
}

// RegisterWrite records a write to addr in the current frame.
func (e *Engine) RegisterWrite(addr accessset.Address, loc accessset.SourceLocation) {
	e.stack.RegisterWrite(addr, loc)
}

// BeforeDetach opens the frame of a task about to be spawned in sync region
// tag. When the spawning side's own frame carries a different tag, an extra
// continuation frame is pushed first so the spawning region can later be
// collapsed by the matching sync.
func (e *Engine) BeforeDetach(tag uint32) {
	if e.stack.Depth() > 0 && e.stack.Top().SyncRegion != tag {
		e.stack.PushContinuationFrame(tag)
	}
	e.stack.PushTaskFrame(tag)
	e.log.Debug("detach", zap.Uint32("sync_region", tag), zap.Int("frames", e.stack.Depth()))
}

// DetachContinue opens the frame of a spawn continuation in sync region tag.
func (e *Engine) DetachContinue(tag uint32) {
	e.stack.PushContinuationFrame(tag)
	e.log.Debug("detach_continue", zap.Uint32("sync_region", tag), zap.Int("frames", e.stack.Depth()))
}

// Join folds a completed task's frame back into its parent. The task's
// pending parallel writes become serial from its own perspective; the folded
// set is checked against the parent's pending parallel writes, and any
// intersection is a race. The folded set then joins the parent's parallel
// writes, where it stays provisional until the enclosing sync.
func (e *Engine) Join() {
	oth := e.stack.Pop()
	if oth.IsContinuation {
		shadowstack.Violatef("join",
			"expected task frame, got continuation frame (sync region %d)", oth.SyncRegion)
	}
	folded := oth.Fold()

	parent := e.stack.Top()
	if ok, collisions := accessset.Disjoint(parent.ParallelWrites, folded); !ok {
		e.emit(report.PhaseJoin, collisions)
	}
	parent.ParallelWrites = accessset.MergeInto(parent.ParallelWrites, folded)
	e.log.Debug("join", zap.Int("frames", e.stack.Depth()))
}

// EnterSerial collapses the continuation frames of sync region tag. All
// spawns guarded by that sync have joined by the time this runs, so each
// matching continuation frame is folded and checked against the frame below
// it, exactly like a join. Collisions from the whole collapse are reported
// as one race; union and intersection are order-independent, so the address
// set does not depend on the pop order. Finally the surviving frame's
// parallel writes fold into its serial writes: the region is serial again
// with respect to this tag.
func (e *Engine) EnterSerial(tag uint32) {
	var all accessset.AccessSet
	for e.stack.Depth() >= 2 {
		top := e.stack.Top()
		if !top.IsContinuation || top.SyncRegion != tag {
			break
		}
		oth := e.stack.Pop()
		folded := oth.Fold()

		parent := e.stack.Top()
		if ok, collisions := accessset.Disjoint(parent.ParallelWrites, folded); !ok {
			if all == nil {
				all = collisions
			} else {
				all = accessset.MergeInto(all, collisions)
			}
		}
		parent.ParallelWrites = accessset.MergeInto(parent.ParallelWrites, folded)
	}

	top := e.stack.Top()
	top.SerialWrites = accessset.MergeInto(top.SerialWrites, top.ParallelWrites)
	top.ParallelWrites = accessset.New()

	if all != nil {
		e.emit(report.PhaseSync, all)
	}
	e.log.Debug("enter_serial", zap.Uint32("sync_region", tag), zap.Int("frames", e.stack.Depth()))
}

// FunctionEnter opens an activation for functionID.
func (e *Engine) FunctionEnter(functionID uint64) {
	e.stack.PushActivation(functionID)
}

// FunctionExit closes the activation of functionID and scrubs its
// local-storage range from the current frame's serial writes. Sibling tasks
// calling the same function may be handed the identical local-storage
// address for unrelated locals; without the scrub that coincidental reuse
// would be indistinguishable from a true race.
func (e *Engine) FunctionExit(functionID uint64) {
	info := e.stack.PopActivation(functionID)
	top := e.stack.Top()
	if top.IsContinuation {
		shadowstack.Violatef("function_exit",
			"exit from function %d on a continuation frame (sync region %d)",
			functionID, top.SyncRegion)
	}
	low, high, ok := info.Range()
	if !ok {
		return
	}
	for _, addr := range top.SerialWrites.Addresses() {
		if addr >= low && addr < high {
			top.SerialWrites.Delete(addr)
		}
	}
	e.log.Debug("function_exit",
		zap.Uint64("function", functionID),
		zap.Uint64("scrub_low", uint64(low)),
		zap.Uint64("scrub_high", uint64(high)))
}

// RegisterAlloca extends the active activation's local-storage range.
// Allocations outside any tracked function are ignored.
func (e *Engine) RegisterAlloca(addr accessset.Address, size uintptr) {
	act := e.stack.CurrentActivation()
	if act == nil {
		e.log.Debug("alloca outside tracked function", zap.Uint64("addr", uint64(addr)))
		return
	}
	act.RegisterAlloca(addr, size)
}

func (e *Engine) emit(phase string, collisions accessset.AccessSet) {
	if e.onRace != nil {
		e.onRace(report.Race{Phase: phase, Collisions: collisions})
	}
}
