package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run continuous synchronisation",
	Long: `Starts the scheduler and keeps sources synchronised until
interrupted.

Each source polls on its configured interval. Sources marked pending
by the trigger command are picked up on the next tick, and filesystem
sources also react to change notifications. Stop with SIGINT or
SIGTERM; in-flight runs finish their current document first.`,
	PreRunE: runPreflight,
	RunE:    runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	cmd.Println("Starting continuous synchronisation. Press Ctrl-C to stop.")

	if err := scheduler.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler stopped: %w", err)
	}

	cmd.Println("Stopped.")
	return nil
}
