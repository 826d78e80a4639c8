package shadowstack

import "fmt"

// InvariantError describes a structural violation of the fork-join nesting
// the detector relies on: an empty-stack pop, a mismatched function exit, a
// join against the wrong kind of frame. It signals that the instrumentation
// event stream is malformed, not that the monitored program raced.
type InvariantError struct {
	// Op names the operation that observed the violation.
	Op string
	// Detail describes the violated assumption.
	Detail string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "detrace: invariant violated in " + e.Op + ": " + e.Detail
}

// Violatef aborts the analysis by panicking with an *InvariantError.
// Detected races never interrupt control flow; structural violations always
// do, because the engine is deterministic for a fixed event sequence and
// continuing would only produce garbage reports.
func Violatef(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
