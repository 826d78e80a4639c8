// Package engine implements the join/sync state machine of the
// determinacy-race detector.
//
// The engine operates on one strand's shadow stack. Spawn boundaries push
// region frames, completed tasks are joined back into their parent frame,
// and sync points collapse the continuation frames of one sync region. At
// every merge point the parent's pending parallel writes are checked for
// disjointness against the folded child set; any intersection is a
// determinacy race and is handed to the configured handler. The monitored
// program is never interrupted: the engine is purely observational, and the
// only thing that aborts an analysis run is a structural violation of the
// fork-join nesting (see package shadowstack).
package engine
