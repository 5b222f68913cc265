// Package cli implements the vecsync command line interface.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
)

// version is the build version, injected by main.
var version = "dev"

// Injected driving services. Commands guard against missing wiring so
// a partially initialised process still reports a usable error.
var (
	syncOrchestrator driving.SyncOrchestrator
	scheduler        driving.Scheduler
	sourceService    driving.SourceService
	queryService     driving.QueryService
)

// preflight holds the startup checks pipeline commands run before
// touching the vector store or embedding service.
var preflight func(ctx context.Context) error

var rootCmd = &cobra.Command{
	Use:   "vecsync",
	Short: "Synchronise documents into a vector store",
	Long: `vecsync keeps a vector store in step with document sources.

It enumerates configured sources (git repositories, local directories,
Google Drive folders), detects changed documents by content hash,
chunks and embeds what changed, and reconciles the vector store so it
exactly mirrors the current source state.`,
	SilenceUsage: true,
}

// Services holds the driving ports the commands call.
type Services struct {
	Orchestrator driving.SyncOrchestrator
	Scheduler    driving.Scheduler
	Sources      driving.SourceService
	Query        driving.QueryService
}

// SetServices wires the driving services into the commands. Called
// once at startup.
func SetServices(s Services) {
	syncOrchestrator = s.Orchestrator
	scheduler = s.Scheduler
	sourceService = s.Sources
	queryService = s.Query
}

// SetVersion records the build version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetPreflight wires the startup checks that run before pipeline
// commands. Commands that only read local state skip them.
func SetPreflight(f func(ctx context.Context) error) {
	preflight = f
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func runPreflight(cmd *cobra.Command, _ []string) error {
	if preflight == nil {
		return nil
	}
	return preflight(cmd.Context())
}
