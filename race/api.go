// Package race provides the public API for the determinacy-race detector.
//
// See doc.go for detailed documentation and examples.
package race

import (
	"github.com/kolkov/detrace/internal/race/accessset"
	"github.com/kolkov/detrace/internal/race/config"
	"github.com/kolkov/detrace/internal/race/dispatch"
)

// Address identifies a written memory location. The detector treats it as
// an opaque key and never dereferences it.
type Address = accessset.Address

// SourceLocation is an optional diagnostic tag attached to a write, shown
// in race reports when known.
type SourceLocation = accessset.SourceLocation

// Worker is the detector context of one scheduler worker slot. All
// instrumentation events of the strands scheduled on that slot go through
// its On* methods. A Worker must only be driven by one strand at a time,
// which the work-stealing scheduler's own discipline guarantees.
type Worker = dispatch.Worker

// Detector is one analysis run of the determinacy-race detector.
//
// Create one per monitored program execution, hand each worker slot its
// context via [Detector.Worker], and close the detector when the program
// ends:
//
//	det, err := race.Open()
//	if err != nil {
//		return err
//	}
//	defer det.Close()
//
//	w := det.Worker(0)
//	w.OnSpawnTask(0)
//	// ... deliver the slot's instrumentation events
type Detector struct {
	d *dispatch.Dispatcher
}

// Option configures a Detector.
type Option func(*config.Config)

// WithOutput redirects race reports to the file at path instead of stderr.
// The DETRACE_OUT environment variable sets the same thing.
func WithOutput(path string) Option {
	return func(c *config.Config) { c.Output = path }
}

// WithColor sets report colorization: "auto", "always", or "never".
func WithColor(mode string) Option {
	return func(c *config.Config) { c.Color = mode }
}

// WithTrace enables the per-event debug trace log. The DETRACE_TRACE
// environment variable sets the same thing.
func WithTrace() Option {
	return func(c *config.Config) { c.Trace = true }
}

// WithoutSummary suppresses the end-of-run race count line.
func WithoutSummary() Option {
	return func(c *config.Config) { c.Summary = false }
}

// Open creates a Detector. Configuration starts from the defaults, is
// overlaid by the DETRACE_* environment variables, and then by the given
// options.
func Open(opts ...Option) (*Detector, error) {
	cfg := config.FromEnv(config.Default())
	for _, opt := range opts {
		opt(&cfg)
	}
	d, err := dispatch.New(dispatch.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &Detector{d: d}, nil
}

// Worker returns the detector context for a worker slot, creating it on
// first use. Slots are whatever identifiers the scheduler uses; the
// detector only requires that each slot's events stay on its own context.
func (det *Detector) Worker(slot int) *Worker {
	return det.d.Worker(slot)
}

// Steal returns a fresh context for a worker that stole a continuation.
// The stolen continuation's events go to this context until [Detector.Rejoin].
func (det *Detector) Steal() *Worker {
	return det.d.Steal()
}

// Rejoin recombines a thief's context into the victim's when the split
// strands meet again, reporting any collision between the two sides as a
// race. The thief context must not be used afterwards.
func (det *Detector) Rejoin(victim, thief *Worker) {
	det.d.Rejoin(victim, thief)
}

// Races returns the number of races reported so far.
func (det *Detector) Races() int {
	return det.d.Races()
}

// Close releases the detector's worker contexts, prints the summary line,
// and closes the report sink. Close is idempotent.
func (det *Detector) Close() error {
	return det.d.Close()
}
