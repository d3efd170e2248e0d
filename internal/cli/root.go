// Package cli implements the coursier command-line interface.
//
// This package provides commands for resolving dependency graphs,
// fetching artifacts into the local cache, and managing the cache
// directory. The CLI is built using cobra and supports verbose logging
// via the charmbracelet/log library.
//
// # Commands
//
//   - resolve: Compute the dependency graph of a set of coordinates
//   - fetch: Resolve and download every artifact, printing the file list
//   - cache: Inspect or clear the artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context.
package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v2.1.0")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// Typically called by the main package with values injected via ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the coursier CLI and returns an error if any command
// fails.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "coursier",
		Short:        "coursier resolves and caches artifact dependencies",
		Long:         `coursier computes transitive dependency graphs for artifact coordinates, reconciles versions, and fetches the resulting files into a local content-addressed cache with checksum verification.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("coursier %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newResolveCmd())
	root.AddCommand(newFetchCmd())
	root.AddCommand(newCacheCmd())

	return root.ExecuteContext(context.Background())
}
