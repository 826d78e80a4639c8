package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/engine"
	"github.com/kolkov/detrace/internal/race/report"
	"github.com/kolkov/detrace/internal/race/shadowstack"
)

const (
	addrX = accessset.Address(0x1000)
	addrY = accessset.Address(0x2000)
)

type collector struct {
	races []report.Race
}

func (c *collector) handle(r report.Race) {
	c.races = append(c.races, r)
}

func TestIdentityIsFrameless(t *testing.T) {
	assert.Equal(t, 0, Identity().Depth())
}

func TestReduceIdentityElement(t *testing.T) {
	c := &collector{}
	left := shadowstack.New()
	left.Top().ParallelWrites.Insert(addrX, accessset.SourceLocation{})

	// A stolen continuation that recorded nothing: identity plus one
	// untouched frame.
	right := Identity()
	right.PushContinuationFrame(0)

	Reduce(left, right, c.handle)

	assert.Empty(t, c.races)
	assert.Equal(t, []accessset.Address{addrX}, left.Top().ParallelWrites.Addresses())
}

func TestReduceDetectsCollision(t *testing.T) {
	c := &collector{}

	// Left worker ran a task that wrote X; the write is still pending.
	left := shadowstack.New()
	left.Top().ParallelWrites.Insert(addrX, accessset.SourceLocation{})

	// The thief executed the continuation, which also wrote X.
	right := Identity()
	eng := engine.Attach(right, c.handle, nil)
	eng.DetachContinue(0)
	eng.RegisterWrite(addrX, accessset.SourceLocation{Name: "main.go", Line: 21})
	eng.RegisterWrite(addrY, accessset.SourceLocation{})
	eng.EnterSerial(0)
	require.Equal(t, 1, right.Depth())

	Reduce(left, right, c.handle)

	require.Len(t, c.races, 1)
	assert.Equal(t, report.PhaseSteal, c.races[0].Phase)
	assert.Equal(t, []accessset.Address{addrX}, c.races[0].Collisions.Addresses())
	assert.Equal(t, "main.go:21", c.races[0].Collisions[addrX].String())

	// Right's writes are absorbed, pending until the enclosing sync.
	assert.ElementsMatch(t, []accessset.Address{addrX, addrY}, left.Top().ParallelWrites.Addresses())
}

func TestReduceFoldsRightParallelWrites(t *testing.T) {
	c := &collector{}
	left := shadowstack.New()

	right := Identity()
	right.PushContinuationFrame(0)
	right.Top().SerialWrites.Insert(addrX, accessset.SourceLocation{})
	right.Top().ParallelWrites.Insert(addrY, accessset.SourceLocation{})

	Reduce(left, right, c.handle)

	assert.Empty(t, c.races)
	assert.ElementsMatch(t, []accessset.Address{addrX, addrY}, left.Top().ParallelWrites.Addresses())
}

func TestReduceMultiFrameRightViolates(t *testing.T) {
	left := shadowstack.New()
	right := Identity()
	right.PushContinuationFrame(0)
	right.PushTaskFrame(0)

	assert.PanicsWithError(t,
		"detrace: invariant violated in reduce: right view holds 2 residual frames, want exactly 1",
		func() { Reduce(left, right, nil) })
}

func TestReduceFramelessRightViolates(t *testing.T) {
	left := shadowstack.New()
	assert.Panics(t, func() { Reduce(left, Identity(), nil) })
}

func TestRegistryScopedRelease(t *testing.T) {
	r := NewRegistry()
	release1 := r.Register(shadowstack.New())
	release2 := r.Register(shadowstack.New())
	require.Equal(t, 2, r.Len())

	release1()
	assert.Equal(t, 1, r.Len())

	// Release is idempotent: double teardown must not disturb other views.
	release1()
	assert.Equal(t, 1, r.Len())

	release2()
	assert.Equal(t, 0, r.Len())
}
