// Package dispatch connects the instrumentation event stream to the
// detection engine.
//
// A Dispatcher owns the per-worker detector contexts, the race reporter,
// and the trace logger. It is an explicit object: callers create one per
// analysis run, hand each worker slot its context, and close the dispatcher
// when the monitored program ends. Worker contexts register their views
// with the reducer registry on construction and are released on every exit
// path, including Close after an aborted run.
package dispatch

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kolkov/detrace/internal/race/buildinfo"
	"github.com/kolkov/detrace/internal/race/config"
	"github.com/kolkov/detrace/internal/race/reducer"
	"github.com/kolkov/detrace/internal/race/report"
)

// Dispatcher routes instrumentation events to per-worker engines and race
// reports to the configured sink. Event delivery itself is not serialized:
// each worker context must only be driven by its own strand, exactly as the
// scheduler guarantees for the program under test.
type Dispatcher struct {
	cfg       config.Config
	rep       report.Reporter
	log       *zap.Logger
	registry  *reducer.Registry
	closeSink func() error

	mu      sync.Mutex
	workers map[int]*Worker
	all     []*Worker
	closed  bool
}

type options struct {
	cfg      *config.Config
	reporter report.Reporter
	logger   *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*options)

// WithConfig supplies an explicit configuration instead of the
// defaults-plus-environment resolution.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = &cfg }
}

// WithReporter replaces the console reporter, taking ownership of sink
// selection away from the configuration.
func WithReporter(rep report.Reporter) Option {
	return func(o *options) { o.reporter = rep }
}

// WithLogger replaces the trace logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.logger = log }
}

// New creates a Dispatcher. With no options the configuration comes from
// the environment, reports go to stderr, and tracing is off.
func New(opts ...Option) (*Dispatcher, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.FromEnv(config.Default())
	if o.cfg != nil {
		cfg = *o.cfg
	}

	d := &Dispatcher{
		cfg:       cfg,
		registry:  reducer.NewRegistry(),
		workers:   make(map[int]*Worker),
		closeSink: func() error { return nil },
	}

	if o.reporter != nil {
		d.rep = o.reporter
	} else {
		w, closeSink, err := report.OpenSink(cfg.Output)
		if err != nil {
			return nil, err
		}
		consoleOpts := []report.ConsoleOption{report.WithColorMode(cfg.Color)}
		if module, err := buildinfo.FindModule("."); err == nil {
			consoleOpts = append(consoleOpts, report.WithModule(module))
		}
		d.rep = report.NewConsole(w, consoleOpts...)
		d.closeSink = closeSink
	}

	switch {
	case o.logger != nil:
		d.log = o.logger
	case cfg.Trace:
		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		log, err := zcfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build trace logger: %w", err)
		}
		d.log = log
	default:
		d.log = zap.NewNop()
	}

	return d, nil
}

// Worker returns the detector context for a worker slot, creating it on
// first use with a fresh single-frame view.
func (d *Dispatcher) Worker(slot int) *Worker {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.workers[slot]; ok {
		return w
	}
	w := newWorker(d, slot, false)
	d.workers[slot] = w
	d.all = append(d.all, w)
	return w
}

// Steal creates the context for a worker that stole a continuation. The new
// context starts from the identity view; the stolen continuation pushes its
// first frame.
func (d *Dispatcher) Steal() *Worker {
	d.mu.Lock()
	defer d.mu.Unlock()
	w := newWorker(d, -len(d.all)-1, true)
	d.all = append(d.all, w)
	return w
}

// Rejoin recombines a thief's view into the victim's when the split strands
// meet again, then releases the thief's registration. Collisions surface as
// races at the steal phase.
func (d *Dispatcher) Rejoin(victim, thief *Worker) {
	reducer.Reduce(victim.stack, thief.stack, d.handleRace)
	thief.release()
	d.log.Debug("rejoin", zap.Int("victim", victim.slot), zap.Int("thief", thief.slot))
}

// Races returns the number of races reported so far.
func (d *Dispatcher) Races() int {
	return d.rep.Count()
}

// Views returns the number of live registered worker views.
func (d *Dispatcher) Views() int {
	return d.registry.Len()
}

// Close releases every worker view, prints the summary, and closes the
// report sink. Close is idempotent.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	workers := d.all
	d.mu.Unlock()

	for _, w := range workers {
		w.release()
	}
	if c, ok := d.rep.(*report.Console); ok && d.cfg.Summary {
		c.Summary()
	}
	_ = d.log.Sync()
	return d.closeSink()
}

func (d *Dispatcher) handleRace(r report.Race) {
	d.rep.Report(r)
	d.log.Debug("race detected",
		zap.String("phase", r.Phase),
		zap.Int("addresses", r.Collisions.Len()))
}
