package dispatch

import (
	"go.uber.org/zap"

	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/engine"
	"github.com/kolkov/detrace/internal/race/reducer"
	"github.com/kolkov/detrace/internal/race/shadowstack"
)

// Worker is the per-worker-slot detector context. It receives the
// instrumentation events of the strands scheduled on its slot and forwards
// them to its engine. A Worker must only be driven by one strand at a time;
// the work-stealing scheduler's own scheduling discipline provides that.
type Worker struct {
	slot    int
	stack   *shadowstack.ShadowStack
	eng     *engine.Engine
	log     *zap.Logger
	release func()
}

func newWorker(d *Dispatcher, slot int, stolen bool) *Worker {
	stack := shadowstack.New()
	if stolen {
		stack = reducer.Identity()
	}
	log := d.log.With(zap.Int("worker", slot))
	return &Worker{
		slot:    slot,
		stack:   stack,
		eng:     engine.Attach(stack, d.handleRace, log),
		log:     log,
		release: d.registry.Register(stack),
	}
}

// Slot returns the worker slot identifier.
func (w *Worker) Slot() int {
	return w.slot
}

// Depth returns the worker view's current region frame count.
func (w *Worker) Depth() int {
	return w.stack.Depth()
}

// OnFunctionEnter handles a function entry event.
func (w *Worker) OnFunctionEnter(functionID uint64) {
	w.eng.FunctionEnter(functionID)
}

// OnFunctionExit handles the matching function exit event.
func (w *Worker) OnFunctionExit(functionID uint64) {
	w.eng.FunctionExit(functionID)
}

// OnSpawnTask handles a spawn boundary in sync region tag.
func (w *Worker) OnSpawnTask(tag uint32) {
	w.eng.BeforeDetach(tag)
}

// OnSpawnContinuation handles the paired continuation boundary.
func (w *Worker) OnSpawnContinuation(tag uint32) {
	w.eng.DetachContinue(tag)
}

// OnTaskComplete handles a spawned task's completion.
func (w *Worker) OnTaskComplete() {
	w.eng.Join()
}

// OnBeforeSync handles the pre-sync event. The collapse happens after the
// sync, once every child of the region has provably completed; this hook
// only traces.
func (w *Worker) OnBeforeSync(tag uint32) {
	w.log.Debug("before_sync", zap.Uint32("sync_region", tag))
}

// OnAfterSync handles the post-sync event by collapsing the region.
func (w *Worker) OnAfterSync(tag uint32) {
	w.eng.EnterSerial(tag)
}

// OnWrite handles a memory write event.
func (w *Worker) OnWrite(addr accessset.Address, loc accessset.SourceLocation) {
	w.eng.RegisterWrite(addr, loc)
}

// OnAlloca handles a local-storage allocation event.
func (w *Worker) OnAlloca(addr accessset.Address, size uintptr) {
	w.eng.RegisterAlloca(addr, size)
}
