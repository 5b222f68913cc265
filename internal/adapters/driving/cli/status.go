package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status [source-id]",
	Short: "Show synchronisation status",
	Long: `Shows the sync status of configured sources.

Without arguments every source is listed with its current status and
last completed sync. With a source ID the source is shown in detail
along with its recent run history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVarP(&statusRuns, "runs", "n", 5, "recent runs to show for a single source")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if sourceService == nil || syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	if len(args) > 0 {
		return statusOne(cmd, args[0])
	}
	return statusAll(cmd)
}

func statusAll(cmd *cobra.Command) error {
	sources, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	cmd.Printf("%-20s %-12s %-10s %s\n", "SOURCE", "TYPE", "STATUS", "LAST SYNC")
	for i := range sources {
		src := &sources[i]

		lastSync := "never"
		if status, err := syncOrchestrator.Status(cmd.Context(), src.ID); err == nil && !status.LastSync.IsZero() {
			lastSync = formatAge(status.LastSync)
		}

		cmd.Printf("%-20s %-12s %-10s %s\n", src.ID, src.Type, src.Status, lastSync)
		if src.LastError != "" {
			cmd.Printf("%-20s   error: %s\n", "", src.LastError)
		}
	}
	return nil
}

func statusOne(cmd *cobra.Command, sourceID string) error {
	ctx := cmd.Context()

	src, err := sourceService.Get(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("getting source: %w", err)
	}

	cmd.Printf("Source:   %s (%s)\n", src.ID, src.Type)
	cmd.Printf("Location: %s\n", src.Location)
	cmd.Printf("Status:   %s\n", src.Status)
	if src.LastError != "" {
		cmd.Printf("Error:    %s\n", src.LastError)
	}

	status, err := syncOrchestrator.Status(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("getting status: %w", err)
	}
	if status.Running {
		cmd.Printf("Stage:    %s (%d/%d documents, %d errors)\n",
			status.Stage, status.DocumentsProcessed, status.DocumentsTotal, status.ErrorCount)
	}
	if !status.LastSync.IsZero() {
		cmd.Printf("Last sync: %s\n", formatAge(status.LastSync))
	}

	runs, err := syncOrchestrator.History(ctx, sourceID, statusRuns)
	if err != nil {
		return fmt.Errorf("getting run history: %w", err)
	}
	if len(runs) == 0 {
		return nil
	}

	cmd.Println()
	cmd.Println("Recent runs:")
	for i := range runs {
		printHistoryRun(cmd, &runs[i])
	}
	return nil
}

func printHistoryRun(cmd *cobra.Command, run *domain.SyncRun) {
	duration := run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond)
	cmd.Printf("  %s  %-8s embedded %d, unchanged %d, deleted %d, errored %d (%s)\n",
		run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		run.Status, run.Embedded, run.Unchanged, run.Deleted, run.Errored, duration)
	if run.Error != "" {
		cmd.Printf("      reason: %s\n", run.Error)
	}
}

// formatAge renders a past timestamp as a rounded age like "5m ago".
func formatAge(t time.Time) string {
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
