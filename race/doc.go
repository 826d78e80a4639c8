// Package race detects determinacy races in fork-join parallel programs
// running on a work-stealing scheduler.
//
// A determinacy race is two writes to the same address on strands that the
// program's spawn and sync structure leaves unordered: depending on how the
// scheduler interleaves them, the program can produce different results
// from the same input. The detector finds these races from the
// instrumentation event stream alone, without ever reading the monitored
// program's memory.
//
// # Quick Start
//
// Instrumentation hands each scheduler worker slot a detector context and
// forwards its events:
//
//	det, err := race.Open()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer det.Close()
//
//	w := det.Worker(0)
//	w.OnSpawnTask(tag)            // spawn boundary, task side
//	w.OnWrite(addr, loc)          // memory write
//	w.OnTaskComplete()            // spawned task returned
//	w.OnSpawnContinuation(tag)    // spawn boundary, continuation side
//	w.OnBeforeSync(tag)           // sync statement reached
//	w.OnAfterSync(tag)            // sync statement passed
//
// When a worker steals a continuation, its events move to a fresh context
// from [Detector.Steal]; [Detector.Rejoin] recombines the two contexts when
// the split strands meet again.
//
// # How It Works
//
// Each worker context keeps a shadow stack of region frames mirroring the
// monitored program's spawn nesting. Writes land in the current frame;
// when a task joins its parent, the task's write set is checked for
// disjointness against the writes already pending in the parent. An
// intersection means two unordered strands wrote the same address: a
// determinacy race. Sync statements collapse their region's frames the
// same way, and steals are resolved by an identity/reduce protocol so the
// verdict never depends on the schedule that happened to run.
//
// Reports name the racing addresses and, when the instrumentation supplied
// them, source locations:
//
//	RACE CONDITION sync
//	  0x1f40  main.go:12
//	  0x1f48
//
// # Configuration
//
// Reports go to stderr by default. DETRACE_OUT redirects them to a file
// and DETRACE_TRACE=1 enables the per-event debug log; [WithOutput],
// [WithColor], [WithTrace], and [WithoutSummary] set the same things
// programmatically.
//
// # Guarantees
//
// For a deadlock-free fork-join program the verdict is schedule
// independent: the set of racing addresses reported does not depend on
// which workers ran which strands or where steals happened. The detector
// tracks writes only; read-write races are out of scope.
//
// Detected races never interrupt the monitored program; they only flow to
// the configured report sink. A panic from a detector context means the
// event stream itself was malformed (an unpaired function exit, a join
// with no matching spawn) and the analysis cannot continue.
package race
