package shadowstack

import "github.com/kolkov/detrace/internal/race/accessset"

// ShadowStack is the per-strand detector state: an ordered stack of
// RegionFrame, one per unresolved nested spawn, and a parallel stack of
// FunctionInfo, one per active function activation.
//
// A live strand always has at least one frame; the stack collapses to
// exactly one frame whenever the strand has no outstanding spawn. A
// frameless stack exists only as the identity element of the worker merge
// protocol, before the stolen continuation pushes its first frame.
//
// ShadowStack is not safe for concurrent use. The scheduler guarantees a
// single view is only ever touched by one strand; cross-strand information
// flows exclusively through joins, syncs, and reductions.
type ShadowStack struct {
	frames      []RegionFrame
	activations []FunctionInfo
}

// New returns a stack holding the single base frame of a fresh strand.
func New() *ShadowStack {
	s := NewEmpty()
	s.frames = append(s.frames, newFrame(false, 0))
	return s
}

// NewEmpty returns a frameless stub, usable only as the right operand seed
// of the worker merge protocol.
func NewEmpty() *ShadowStack {
	return &ShadowStack{}
}

// Depth returns the number of region frames.
func (s *ShadowStack) Depth() int {
	return len(s.frames)
}

// ActivationDepth returns the number of active function activations.
func (s *ShadowStack) ActivationDepth() int {
	return len(s.activations)
}

// Top returns the current region frame. The pointer is invalidated by the
// next push or pop.
func (s *ShadowStack) Top() *RegionFrame {
	if len(s.frames) == 0 {
		Violatef("top", "shadow stack has no frames")
	}
	return &s.frames[len(s.frames)-1]
}

// Pop removes and returns the current region frame.
func (s *ShadowStack) Pop() RegionFrame {
	if len(s.frames) == 0 {
		Violatef("pop", "shadow stack has no frames")
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// PushTaskFrame opens the region of a newly spawned task.
func (s *ShadowStack) PushTaskFrame(tag uint32) {
	s.frames = append(s.frames, newFrame(false, tag))
}

// PushContinuationFrame opens the region of a spawn continuation.
func (s *ShadowStack) PushContinuationFrame(tag uint32) {
	s.frames = append(s.frames, newFrame(true, tag))
}

// RegisterWrite records a write in the current frame's serial set.
func (s *ShadowStack) RegisterWrite(addr accessset.Address, loc accessset.SourceLocation) {
	s.Top().SerialWrites.Insert(addr, loc)
}

// PushActivation opens a function activation.
func (s *ShadowStack) PushActivation(functionID uint64) {
	s.activations = append(s.activations, FunctionInfo{FunctionID: functionID})
}

// PopActivation closes the innermost activation, which must belong to
// functionID. The returned record carries the local-storage range to scrub.
func (s *ShadowStack) PopActivation(functionID uint64) FunctionInfo {
	if len(s.activations) == 0 {
		Violatef("function_exit", "exit from function %d with no active activation", functionID)
	}
	info := s.activations[len(s.activations)-1]
	if info.FunctionID != functionID {
		Violatef("function_exit", "exit from function %d does not pair with entry of function %d",
			functionID, info.FunctionID)
	}
	s.activations = s.activations[:len(s.activations)-1]
	return info
}

// CurrentActivation returns the innermost activation, or nil when the
// strand is outside any tracked function.
func (s *ShadowStack) CurrentActivation() *FunctionInfo {
	if len(s.activations) == 0 {
		return nil
	}
	return &s.activations[len(s.activations)-1]
}
