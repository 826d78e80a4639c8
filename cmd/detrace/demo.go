package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/detrace/internal/race/config"
	"github.com/kolkov/detrace/internal/race/dispatch"
	"github.com/kolkov/detrace/internal/race/replay"
)

var demoFlags struct {
	configFile string
	out        string
	color      string
	trace      bool
	split      bool
	parallel   bool
}

var demoCmd = &cobra.Command{
	Use:   "demo [scenario...]",
	Short: "Replay canned fork-join scenarios through the detector",
	Long: `Replays recorded instrumentation traces of classic fork-join patterns
and reports the races found. With no arguments every scenario runs.

With --split each scenario is additionally replayed once per possible
steal point, splitting the trace across a victim and a thief worker. The
race verdict must come out the same at every split; that is the
detector's schedule-independence guarantee, observable here.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(&demoFlags.configFile, "config", "", "YAML configuration file")
	demoCmd.Flags().StringVar(&demoFlags.out, "out", "", "race report sink path (default stderr)")
	demoCmd.Flags().StringVar(&demoFlags.color, "color", "", "report color mode: auto, always, or never")
	demoCmd.Flags().BoolVar(&demoFlags.trace, "trace", false, "enable the per-event trace log")
	demoCmd.Flags().BoolVar(&demoFlags.split, "split", false, "also replay each steal split of every scenario")
	demoCmd.Flags().BoolVar(&demoFlags.parallel, "parallel", false, "run scenarios concurrently, one detector each")
}

func demoConfig() (config.Config, error) {
	cfg := config.Default()
	if demoFlags.configFile != "" {
		loaded, err := config.Load(demoFlags.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg = config.FromEnv(cfg)
	if demoFlags.out != "" {
		cfg.Output = demoFlags.out
	}
	if demoFlags.color != "" {
		cfg.Color = demoFlags.color
	}
	if demoFlags.trace {
		cfg.Trace = true
	}
	// The per-scenario result lines below replace the summary.
	cfg.Summary = false
	return cfg, nil
}

func selectScenarios(args []string) ([]string, map[string]replay.Trace, error) {
	all := replay.Scenarios()
	if len(args) == 0 {
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, all, nil
	}
	for _, name := range args {
		if _, ok := all[name]; !ok {
			known := make([]string, 0, len(all))
			for n := range all {
				known = append(known, n)
			}
			sort.Strings(known)
			return nil, nil, fmt.Errorf("unknown scenario %q (known: %s)", name, strings.Join(known, ", "))
		}
	}
	return args, all, nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := demoConfig()
	if err != nil {
		return err
	}
	names, all, err := selectScenarios(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report := func(line string) { fmt.Fprintln(out, line) }

	runOne := func(name string) error {
		trace := all[name]

		races, err := replayUnsplit(cfg, trace)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
		report(fmt.Sprintf("%-14s %s", name, raceCount(races)))

		if !demoFlags.split {
			return nil
		}
		for _, at := range replay.StealPoints(trace) {
			split, err := replaySplit(cfg, trace, at)
			if err != nil {
				return fmt.Errorf("scenario %s split at %d: %w", name, at, err)
			}
			report(fmt.Sprintf("%-14s   steal at event %-3d %s", name, at, raceCount(split)))
		}
		return nil
	}

	if demoFlags.parallel {
		var g errgroup.Group
		for _, name := range names {
			name := name
			g.Go(func() error { return runOne(name) })
		}
		return g.Wait()
	}
	for _, name := range names {
		if err := runOne(name); err != nil {
			return err
		}
	}
	return nil
}

func replayUnsplit(cfg config.Config, trace replay.Trace) (int, error) {
	d, err := dispatch.New(dispatch.WithConfig(cfg))
	if err != nil {
		return 0, err
	}
	replay.Run(d.Worker(0), trace)
	races := d.Races()
	return races, d.Close()
}

func replaySplit(cfg config.Config, trace replay.Trace, at int) (int, error) {
	d, err := dispatch.New(dispatch.WithConfig(cfg))
	if err != nil {
		return 0, err
	}
	replay.RunSplit(d, d.Worker(0), trace, at)
	races := d.Races()
	return races, d.Close()
}

func raceCount(n int) string {
	switch n {
	case 0:
		return "no races"
	case 1:
		return "1 race"
	default:
		return fmt.Sprintf("%d races", n)
	}
}
