// Package config resolves the detector's runtime configuration.
//
// The detector has no independent lifecycle and almost nothing to
// configure: where race reports go, whether they are colored, whether the
// per-event trace log is enabled, and whether a summary is printed at
// teardown. Values come from an optional YAML file overlaid by environment
// variables, mirroring how the original tool selected its output with a
// single environment variable.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables honored by FromEnv.
const (
	// EnvOutput selects the race report sink (empty means stderr).
	EnvOutput = "DETRACE_OUT"
	// EnvTrace enables the per-event trace log when set to "1" or "true".
	EnvTrace = "DETRACE_TRACE"
)

// Config holds the detector's runtime settings.
type Config struct {
	// Output is the race report sink path; empty selects stderr.
	Output string `yaml:"output"`
	// Color is "auto", "always", or "never".
	Color string `yaml:"color"`
	// Trace enables per-event debug logging.
	Trace bool `yaml:"trace"`
	// Summary controls the end-of-run race count line.
	Summary bool `yaml:"summary"`
}

// Default returns the stock configuration: stderr sink, auto color, no
// trace, summary on.
func Default() Config {
	return Config{Color: "auto", Summary: true}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays environment variables on cfg and returns the result.
func FromEnv(cfg Config) Config {
	if out, ok := os.LookupEnv(EnvOutput); ok {
		cfg.Output = out
	}
	switch os.Getenv(EnvTrace) {
	case "1", "true":
		cfg.Trace = true
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Color {
	case "", "auto", "always", "never":
		return nil
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always, or never)", c.Color)
	}
}
