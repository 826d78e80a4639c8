package shadowstack

import "github.com/kolkov/detrace/internal/race/accessset"

// RegionFrame is one nested spawn/sync scope on the shadow stack.
//
// A frame represents serial work followed by parallel work: writes by the
// frame's own strand land in SerialWrites, while writes folded in from
// completed children accumulate in ParallelWrites until the region is made
// serial again by the matching sync.
type RegionFrame struct {
	// IsContinuation distinguishes a spawn continuation from a spawned
	// task. Joins consume task frames; syncs collapse continuation frames.
	IsContinuation bool

	// SyncRegion tags the frame with the sync statement guarding it, so a
	// function with several sequential syncs resolves each spawn group
	// independently.
	SyncRegion uint32

	SerialWrites   accessset.AccessSet
	ParallelWrites accessset.AccessSet
}

func newFrame(continuation bool, tag uint32) RegionFrame {
	return RegionFrame{
		IsContinuation: continuation,
		SyncRegion:     tag,
		SerialWrites:   accessset.New(),
		ParallelWrites: accessset.New(),
	}
}

// Fold absorbs the frame's parallel writes into its serial writes and
// returns the combined set. After a join or sync the frame's own history is
// fully serial from its own perspective; this is the step that makes it so.
// The frame must not be used afterwards.
func (f *RegionFrame) Fold() accessset.AccessSet {
	return accessset.MergeInto(f.SerialWrites, f.ParallelWrites)
}
