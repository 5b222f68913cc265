package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage configured sources",
	Long: `Lists and removes document sources.

Sources are defined in the config file; this command inspects their
stored state and removes sources that are no longer wanted.`,
	RunE: runSourcesList,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourcesList,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <source-id>",
	Short: "Remove a source and its synced data",
	Long: `Deletes a source's chunks from the vector store along with its
sync state and cursors.

Dropping a source from the config file alone keeps its synced data;
this command is the explicit cleanup.`,
	Args: cobra.ExactArgs(1),
	RunE: runSourcesRemove,
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, _ []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sources, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources configured.")
		return nil
	}

	cmd.Printf("%-20s %-12s %-10s %s\n", "SOURCE", "TYPE", "STATUS", "LOCATION")
	for i := range sources {
		src := &sources[i]
		cmd.Printf("%-20s %-12s %-10s %s\n", src.ID, src.Type, src.Status, src.Location)
	}
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}

	sourceID := args[0]
	if err := sourceService.Remove(cmd.Context(), sourceID); err != nil {
		return fmt.Errorf("removing source: %w", err)
	}

	cmd.Printf("Source %s removed.\n", sourceID)
	return nil
}
