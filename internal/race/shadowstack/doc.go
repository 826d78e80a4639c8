// Package shadowstack maintains the per-strand state of the determinacy-race
// detector.
//
// A ShadowStack mirrors the fork-join structure of the monitored strand. Each
// unresolved spawn or continuation contributes one RegionFrame holding the
// writes observed so far, split into a serial set (writes by the frame's own
// strand) and a parallel set (writes folded in from completed children, which
// are provisional from this frame's perspective until the matching sync).
// A parallel stack of FunctionInfo records tracks the local-storage footprint
// of each active function activation so coincidental stack-slot reuse can be
// scrubbed on function exit.
//
// The stack trusts its caller to deliver spawn, sync, and function events in
// the nesting order the monitored program produced. Structural violations of
// that order (popping an empty stack, mismatched function exits) are
// unrecoverable: every race report after such a violation would be
// meaningless, so the package panics with an *InvariantError instead of
// returning it.
package shadowstack
