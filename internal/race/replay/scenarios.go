package replay

import "github.com/kolkov/detrace/internal/race/accessset"

// Canned traces mirroring the classic fork-join race patterns. The demo
// command replays them and the tests pin their expected race sets.

const (
	addrX     = accessset.Address(0x1000)
	addrY     = accessset.Address(0x2000)
	addrLocal = accessset.Address(0x7ff0)

	funcChild = uint64(2)
)

func spawned(tag uint32, body ...Event) Trace {
	t := Trace{{Kind: SpawnTask, Tag: tag}}
	t = append(t, body...)
	t = append(t,
		Event{Kind: TaskComplete},
		Event{Kind: SpawnContinuation, Tag: tag},
	)
	return t
}

func synced(tag uint32, t Trace) Trace {
	return append(t,
		Event{Kind: BeforeSync, Tag: tag},
		Event{Kind: AfterSync, Tag: tag},
	)
}

// SiblingRace is two spawned tasks writing the same address, then a sync:
// the canonical determinacy race.
func SiblingRace() Trace {
	var t Trace
	t = append(t, spawned(0, Event{Kind: Write, Addr: addrX, Loc: accessset.SourceLocation{Name: "demo.go", Line: 11}})...)
	t = append(t, spawned(0, Event{Kind: Write, Addr: addrX, Loc: accessset.SourceLocation{Name: "demo.go", Line: 12}})...)
	return synced(0, t)
}

// DisjointSiblings is two spawned tasks writing different addresses: no race.
func DisjointSiblings() Trace {
	var t Trace
	t = append(t, spawned(0, Event{Kind: Write, Addr: addrX})...)
	t = append(t, spawned(0, Event{Kind: Write, Addr: addrY})...)
	return synced(0, t)
}

// SerialRewrite writes the same address repeatedly without spawning: writes
// on one strand are always ordered, so no race.
func SerialRewrite() Trace {
	return synced(0, Trace{
		{Kind: Write, Addr: addrX},
		{Kind: Write, Addr: addrY},
		{Kind: Write, Addr: addrX},
	})
}

// StackReuse is two sibling tasks calling the same function, which is handed
// the identical local-storage address for unrelated locals. The exit-time
// scrub keeps the coincidental reuse from being reported.
func StackReuse() Trace {
	call := []Event{
		{Kind: FunctionEnter, FunctionID: funcChild},
		{Kind: Alloca, Addr: addrLocal, Size: 8},
		{Kind: Write, Addr: addrLocal},
		{Kind: FunctionExit, FunctionID: funcChild},
	}
	var t Trace
	t = append(t, spawned(0, call...)...)
	t = append(t, spawned(0, call...)...)
	return synced(0, t)
}

// TwoSyncRegions is a function with two sequential sync statements, each
// guarding a racing spawn pair. The regions resolve independently: one race
// per region, neither suppressed nor duplicated.
func TwoSyncRegions() Trace {
	var t Trace
	t = append(t, spawned(1, Event{Kind: Write, Addr: addrX})...)
	t = append(t, spawned(1, Event{Kind: Write, Addr: addrX})...)
	t = synced(1, t)
	t = append(t, spawned(2, Event{Kind: Write, Addr: addrY})...)
	t = append(t, spawned(2, Event{Kind: Write, Addr: addrY})...)
	return synced(2, t)
}

// Scenarios returns the canned traces by name.
func Scenarios() map[string]Trace {
	return map[string]Trace{
		"sibling-race": SiblingRace(),
		"disjoint":     DisjointSiblings(),
		"serial":       SerialRewrite(),
		"stack-reuse":  StackReuse(),
		"sync-regions": TwoSyncRegions(),
	}
}
