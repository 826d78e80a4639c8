// Package report carries detected races from the detection engine to a
// diagnostic sink.
//
// The detection contract ends at the Race value: a race was found, on this
// address set, at this phase. Formatting and destination selection live in
// the Console reporter and are deliberately replaceable.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/kolkov/detrace/internal/race/accessset"
)

// Phases at which a collision can be observed.
const (
	// PhaseJoin marks a race found when a completed task joined its parent
	// region.
	PhaseJoin = "join"
	// PhaseSync marks a race found while collapsing continuation frames at
	// a sync point.
	PhaseSync = "sync"
	// PhaseSteal marks a race found while recombining two worker views
	// split by a steal.
	PhaseSteal = "steal"
)

// Race is one detected determinacy race: a set of addresses written by two
// strands that the fork-join tree left unordered. The pair is unordered by
// definition; no "first" or "second" writer is reported.
type Race struct {
	Phase      string
	Collisions accessset.AccessSet
}

// String formats the race the way the console reporter prints it.
func (r Race) String() string {
	var b strings.Builder
	writeRace(&b, r, false)
	return b.String()
}

// Handler consumes detected races. Handlers must not assume any ordering
// between races reported from different phases.
type Handler func(Race)

// Reporter is the diagnostic sink surface consumed by the dispatcher.
type Reporter interface {
	Report(Race)
	// Count returns the number of races reported so far.
	Count() int
}

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// Console writes race reports in the classic text form:
//
//	RACE CONDITION sync
//	  0x1f40  main.go:12
//	  0x1f48
//
// It is safe for concurrent use.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	module string
	count  int
}

// ConsoleOption configures a Console reporter.
type ConsoleOption func(*Console)

// WithModule labels the report stream with the monitored module's path.
func WithModule(path string) ConsoleOption {
	return func(c *Console) { c.module = path }
}

// WithColorMode sets colorization: "always", "never", or "auto" (color only
// when the sink is a terminal).
func WithColorMode(mode string) ConsoleOption {
	return func(c *Console) {
		switch mode {
		case "always":
			c.color = true
		case "never":
			c.color = false
		default:
			c.color = sinkIsTerminal(c.w)
		}
	}
}

// NewConsole returns a reporter writing to w. A nil w means stderr.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	if w == nil {
		w = os.Stderr
	}
	c := &Console{w: w, color: sinkIsTerminal(w)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sinkIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Report prints one race to the sink.
func (c *Console) Report(r Race) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.count == 1 && c.module != "" {
		fmt.Fprintf(c.w, "detrace: monitoring %s\n", c.module)
	}
	var b strings.Builder
	writeRace(&b, r, c.color)
	io.WriteString(c.w, b.String())
}

// Count returns the number of races reported so far.
func (c *Console) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Summary prints the end-of-run race count.
func (c *Console) Summary() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.count {
	case 0:
		fmt.Fprintf(c.w, "detrace: no races detected\n")
	case 1:
		fmt.Fprintf(c.w, "detrace: 1 race detected\n")
	default:
		fmt.Fprintf(c.w, "detrace: %d races detected\n", c.count)
	}
}

func writeRace(b *strings.Builder, r Race, color bool) {
	if color {
		b.WriteString(ansiRed)
	}
	b.WriteString("RACE CONDITION ")
	b.WriteString(r.Phase)
	if color {
		b.WriteString(ansiReset)
	}
	b.WriteByte('\n')
	for _, addr := range r.Collisions.Addresses() {
		fmt.Fprintf(b, "  0x%x", uintptr(addr))
		if loc := r.Collisions[addr]; !loc.IsZero() {
			b.WriteString("  ")
			b.WriteString(loc.String())
		}
		b.WriteByte('\n')
	}
}
