package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
)

var (
	queryTopK   int
	querySource string
	queryJSON   bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search synced chunks by similarity",
	Long: `Embeds the query text and prints the nearest chunks from the
vector store.

A debugging aid for inspecting what a sync produced; downstream
applications normally query the collection directly.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: runPreflight,
	RunE:    runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "limit", "n", 10, "maximum number of results")
	queryCmd.Flags().StringVar(&querySource, "source", "", "restrict results to one source")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	results, err := queryService.Query(cmd.Context(), args[0], driving.QueryOptions{
		TopK:     queryTopK,
		SourceID: querySource,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func outputQueryJSON(cmd *cobra.Command, results []driving.QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []driving.QueryResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = results[i].Path
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, results[i].Score)
		cmd.Printf("      %s:%s\n", results[i].SourceID, results[i].Path)
		if snippet := querySnippet(results[i].Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

// querySnippet flattens chunk text onto one line and trims it for
// table output.
func querySnippet(content string) string {
	const maxLen = 160

	snippet := strings.Join(strings.Fields(content), " ")
	if len(snippet) > maxLen {
		snippet = snippet[:maxLen] + "..."
	}
	return snippet
}
