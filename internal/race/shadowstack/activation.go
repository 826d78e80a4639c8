package shadowstack

import "github.com/kolkov/detrace/internal/race/accessset"

// FunctionInfo tracks the local-storage footprint of one active function
// activation. Allocation events extend the half-open range
// [LowWaterMark, HighWaterMark); on function exit every tracked write in
// that range is scrubbed from the current region frame, because two sibling
// tasks calling the same function may be handed the identical local-storage
// address for unrelated locals.
type FunctionInfo struct {
	// FunctionID identifies the activation's function; exits must present
	// the same id.
	FunctionID uint64

	// LowWaterMark is the lowest local-storage address seen so far.
	LowWaterMark accessset.Address
	// HighWaterMark is one past the highest local-storage address seen;
	// with a downward-growing stack this reconstructs the stack pointer at
	// entry from the allocation events alone.
	HighWaterMark accessset.Address

	tracked bool
}

// RegisterAlloca extends the activation's local-storage range to cover
// [addr, addr+size).
func (f *FunctionInfo) RegisterAlloca(addr accessset.Address, size uintptr) {
	end := addr + accessset.Address(size)
	if !f.tracked {
		f.LowWaterMark, f.HighWaterMark = addr, end
		f.tracked = true
		return
	}
	if addr < f.LowWaterMark {
		f.LowWaterMark = addr
	}
	if end > f.HighWaterMark {
		f.HighWaterMark = end
	}
}

// Range returns the tracked local-storage range. ok is false when the
// activation registered no allocations.
func (f *FunctionInfo) Range() (low, high accessset.Address, ok bool) {
	return f.LowWaterMark, f.HighWaterMark, f.tracked
}

// Covers reports whether addr falls inside the tracked range.
func (f *FunctionInfo) Covers(addr accessset.Address) bool {
	return f.tracked && addr >= f.LowWaterMark && addr < f.HighWaterMark
}
