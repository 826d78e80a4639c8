package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/report"
)

const (
	addrX = accessset.Address(0x1000)
	addrY = accessset.Address(0x2000)
	local = accessset.Address(0x7ff0)
)

type collector struct {
	races []report.Race
}

func (c *collector) handle(r report.Race) {
	c.races = append(c.races, r)
}

func newTestEngine(t *testing.T) (*Engine, *collector) {
	t.Helper()
	c := &collector{}
	return New(c.handle, nil), c
}

// spawnTask replays the event sequence of one spawned task that performs
// the given writes: detach, task body, task exit, continuation boundary.
func spawnTask(e *Engine, tag uint32, writes ...accessset.Address) {
	e.BeforeDetach(tag)
	for _, addr := range writes {
		e.RegisterWrite(addr, accessset.SourceLocation{})
	}
	e.Join()
	e.DetachContinue(tag)
}

func TestSiblingTasksSameAddressRaceOnce(t *testing.T) {
	e, c := newTestEngine(t)

	spawnTask(e, 0, addrX)
	spawnTask(e, 0, addrX)
	e.EnterSerial(0)

	require.Len(t, c.races, 1)
	assert.Equal(t, report.PhaseSync, c.races[0].Phase)
	assert.Equal(t, []accessset.Address{addrX}, c.races[0].Collisions.Addresses())

	// The strand is fully serial again.
	assert.Equal(t, 1, e.Stack().Depth())
	assert.Equal(t, 0, e.Stack().Top().ParallelWrites.Len())
	assert.True(t, e.Stack().Top().SerialWrites.Contains(addrX))
}

func TestSiblingTasksDisjointAddressesNoRace(t *testing.T) {
	e, c := newTestEngine(t)

	spawnTask(e, 0, addrX)
	spawnTask(e, 0, addrY)
	e.EnterSerial(0)

	assert.Empty(t, c.races)
	assert.Equal(t, 1, e.Stack().Depth())
}

func TestSerialRewritesNeverRace(t *testing.T) {
	e, c := newTestEngine(t)

	e.RegisterWrite(addrX, accessset.SourceLocation{})
	e.RegisterWrite(addrY, accessset.SourceLocation{})
	e.RegisterWrite(addrX, accessset.SourceLocation{})
	e.EnterSerial(0)

	assert.Empty(t, c.races)
}

func TestTaskRacesWithContinuation(t *testing.T) {
	e, c := newTestEngine(t)

	spawnTask(e, 0, addrX)
	// The continuation itself writes the same address before the sync.
	e.RegisterWrite(addrX, accessset.SourceLocation{Name: "main.go", Line: 9})
	e.EnterSerial(0)

	require.Len(t, c.races, 1)
	assert.Equal(t, report.PhaseSync, c.races[0].Phase)
	assert.Equal(t, "main.go:9", c.races[0].Collisions[addrX].String())
}

func TestJoinAgainstPendingParallelWrites(t *testing.T) {
	e, c := newTestEngine(t)

	// Pending writes from an earlier recombined steal.
	e.Stack().Top().ParallelWrites.Insert(addrX, accessset.SourceLocation{})

	e.BeforeDetach(0)
	e.RegisterWrite(addrX, accessset.SourceLocation{})
	e.Join()

	require.Len(t, c.races, 1)
	assert.Equal(t, report.PhaseJoin, c.races[0].Phase)
	assert.Equal(t, []accessset.Address{addrX}, c.races[0].Collisions.Addresses())
}

func TestStackReuseAcrossSiblingsIsScrubbed(t *testing.T) {
	e, c := newTestEngine(t)

	// Two sibling tasks call the same function, which is handed the
	// identical local-storage address for an unrelated local each time.
	for i := 0; i < 2; i++ {
		e.BeforeDetach(0)
		e.FunctionEnter(42)
		e.RegisterAlloca(local, 8)
		e.RegisterWrite(local, accessset.SourceLocation{})
		e.FunctionExit(42)
		e.Join()
		e.DetachContinue(0)
	}
	e.EnterSerial(0)

	assert.Empty(t, c.races, "coincidental stack reuse must not be reported")
}

func TestUnscrubbedStackReuseWouldRace(t *testing.T) {
	// Same shape as above but without allocation events: the scrub has no
	// range to act on and the reuse is indistinguishable from a race.
	e, c := newTestEngine(t)

	for i := 0; i < 2; i++ {
		e.BeforeDetach(0)
		e.FunctionEnter(42)
		e.RegisterWrite(local, accessset.SourceLocation{})
		e.FunctionExit(42)
		e.Join()
		e.DetachContinue(0)
	}
	e.EnterSerial(0)

	require.Len(t, c.races, 1)
	assert.Equal(t, []accessset.Address{local}, c.races[0].Collisions.Addresses())
}

func TestFunctionExitScrubsOnlyTrackedRange(t *testing.T) {
	e, c := newTestEngine(t)

	e.FunctionEnter(7)
	e.RegisterAlloca(local, 8)
	e.RegisterWrite(local, accessset.SourceLocation{})
	e.RegisterWrite(addrX, accessset.SourceLocation{})
	e.FunctionExit(7)

	top := e.Stack().Top()
	assert.False(t, top.SerialWrites.Contains(local))
	assert.True(t, top.SerialWrites.Contains(addrX), "heap write must survive the scrub")
	assert.Empty(t, c.races)
}

func TestIndependentSyncRegions(t *testing.T) {
	e, c := newTestEngine(t)

	// Region 1: two siblings race on X.
	spawnTask(e, 1, addrX)
	spawnTask(e, 1, addrX)
	e.EnterSerial(1)

	// Region 2: two siblings race on Y.
	spawnTask(e, 2, addrY)
	spawnTask(e, 2, addrY)
	e.EnterSerial(2)

	require.Len(t, c.races, 2, "a race in one region neither suppresses nor duplicates the other")
	assert.Equal(t, []accessset.Address{addrX}, c.races[0].Collisions.Addresses())
	assert.Equal(t, []accessset.Address{addrY}, c.races[1].Collisions.Addresses())
	assert.Equal(t, 1, e.Stack().Depth())
}

func TestInterleavedSyncRegionsDoNotCrossContaminate(t *testing.T) {
	e, c := newTestEngine(t)

	// Region 1 spawns, then region 2 spawns, then region 2 syncs before
	// region 1. Writes are disjoint, so neither collapse may report.
	spawnTask(e, 1, addrX)
	spawnTask(e, 2, addrY)
	e.EnterSerial(2)
	e.EnterSerial(1)

	assert.Empty(t, c.races)
	assert.Equal(t, 1, e.Stack().Depth())
}

func TestJoinOnContinuationFrameViolates(t *testing.T) {
	e, _ := newTestEngine(t)
	e.DetachContinue(0)
	assert.Panics(t, func() { e.Join() })
}

func TestFunctionExitOnContinuationFrameViolates(t *testing.T) {
	e, _ := newTestEngine(t)
	e.FunctionEnter(7)
	e.DetachContinue(0)
	assert.Panics(t, func() { e.FunctionExit(7) })
}

func TestUnbalancedFunctionExitViolates(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Panics(t, func() { e.FunctionExit(7) })
}

func TestAllocaOutsideFunctionIgnored(t *testing.T) {
	e, c := newTestEngine(t)
	e.RegisterAlloca(local, 8)
	assert.Empty(t, c.races)
}

func TestNilHandlerDiscardsRaces(t *testing.T) {
	e := New(nil, nil)
	spawnTask(e, 0, addrX)
	spawnTask(e, 0, addrX)
	assert.NotPanics(t, func() { e.EnterSerial(0) })
}
