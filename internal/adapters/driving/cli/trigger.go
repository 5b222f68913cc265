package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <source-id>",
	Short: "Mark a source for synchronisation",
	Long: `Marks a source pending so a running serve process syncs it on
its next tick.

Unlike run, trigger returns immediately without waiting for the sync
to finish. Use it from webhooks or CI to request a sync ahead of the
poll interval.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func init() {
	rootCmd.AddCommand(triggerCmd)
}

func runTrigger(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	sourceID := args[0]
	if err := syncOrchestrator.Trigger(cmd.Context(), sourceID); err != nil {
		return fmt.Errorf("trigger failed: %w", err)
	}

	cmd.Printf("Source %s marked for synchronisation.\n", sourceID)
	return nil
}
