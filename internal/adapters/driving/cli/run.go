package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run [source-id]",
	Short: "Run one synchronisation pass",
	Long: `Runs a single synchronisation pass and exits.

With a source ID only that source is synchronised; otherwise every
configured source runs once. The exit status is non-zero if any
source failed to enumerate.`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: runPreflight,
	RunE:    runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()

	if len(args) > 0 {
		sourceID := args[0]
		cmd.Printf("Synchronising source %s...\n", sourceID)

		run, err := syncOrchestrator.Sync(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printRun(cmd, run)
		if run.Status == domain.RunFailed {
			return fmt.Errorf("source %s failed: %s", sourceID, run.Error)
		}
		return nil
	}

	cmd.Println("Synchronising all sources...")

	runs, err := syncOrchestrator.SyncAll(ctx)
	for i := range runs {
		printRun(cmd, &runs[i])
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func printRun(cmd *cobra.Command, run *domain.SyncRun) {
	duration := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	cmd.Printf("  %s: %s (embedded %d, unchanged %d, deleted %d, errored %d) in %s\n",
		run.SourceID, run.Status, run.Embedded, run.Unchanged, run.Deleted, run.Errored, duration)
	if run.Error != "" {
		cmd.Printf("      reason: %s\n", run.Error)
	}
}
