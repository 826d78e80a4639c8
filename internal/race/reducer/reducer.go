package reducer

import (
	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/report"
	"github.com/kolkov/detrace/internal/race/shadowstack"
)

// Identity returns the fresh, frameless view handed to a worker that steals
// a continuation. It is the identity element of Reduce: reducing any view
// with a view that recorded nothing changes nothing.
func Identity() *shadowstack.ShadowStack {
	return shadowstack.NewEmpty()
}

// Reduce recombines two views produced when one strand's execution was split
// by a steal, discarding right. The right view ran in parallel with the left
// view's pending work, so this is a soft join: right's residual frame is
// folded, checked for disjointness against left's pending parallel writes,
// and absorbed into them.
//
// Reduce must be observationally equivalent to running the unsplit strand on
// one worker and applying the ordinary join logic; the replay tests pin that
// obligation. A right view holding more than one residual frame means its
// worker still had unresolved spawns at the rejoin, which the scheduler's
// own join edges make impossible for a well-formed event stream.
func Reduce(left, right *shadowstack.ShadowStack, onRace report.Handler) {
	if depth := right.Depth(); depth != 1 {
		shadowstack.Violatef("reduce", "right view holds %d residual frames, want exactly 1", depth)
	}
	oth := right.Pop()
	folded := oth.Fold()

	top := left.Top()
	if ok, collisions := accessset.Disjoint(top.ParallelWrites, folded); !ok && onRace != nil {
		onRace(report.Race{Phase: report.PhaseSteal, Collisions: collisions})
	}
	top.ParallelWrites = accessset.MergeInto(top.ParallelWrites, folded)
}
