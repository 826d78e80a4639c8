// Package main implements the detrace CLI.
//
// The detrace binary is the demonstration and diagnostics surface of the
// determinacy-race detector. The detector itself is a library driven by
// instrumentation events; the CLI replays the canned fork-join scenarios
// through it, both unsplit and split at every possible steal point, so the
// schedule independence of the verdict can be observed directly.
//
// Usage:
//
//	detrace demo                   # replay every canned scenario
//	detrace demo sibling-race      # replay one scenario
//	detrace demo --split           # also replay each steal split
//	detrace version                # print the release version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kolkov/detrace/internal/race/buildinfo"
)

var rootCmd = &cobra.Command{
	Use:   "detrace",
	Short: "Determinacy-race detector for fork-join programs",
	Long: `detrace detects determinacy races in fork-join parallel programs
running on a work-stealing scheduler.

A determinacy race is two writes to the same address on strands that the
program's spawn and sync structure leaves unordered. The detector finds
them from the instrumentation event stream alone; its verdict does not
depend on which workers ran which strands or where steals happened.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the detrace version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "detrace version %s\n", buildinfo.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
