package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryResult represents one scored chunk from the API.
type QueryResult struct {
	Content        string  `json:"content"`
	Score          float64 `json:"score"`
	SourceID       string  `json:"source_id"`
	SourceName     string  `json:"source_name"`
	SourceLocation string  `json:"source_location"`
	ChunkFile      string  `json:"chunk_file"`
	ChunkIndex     int     `json:"chunk_index"`
}

// QueryAPIResponse represents the query API response.
type QueryAPIResponse struct {
	Results []QueryResult `json:"results"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var maxResults int

	cmd := &cobra.Command{
		Use:   "query <group_id> <text>",
		Short: "Query a group's active snapshot",
		Long:  "Runs a similarity search over the group's active snapshot and prints the most relevant chunks.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			query := strings.Join(args[1:], " ")
			return runQuery(cmd, args[0], query, maxResults, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&maxResults, "max-results", "n", 10, "Maximum number of results")

	return cmd
}

func runQuery(cmd *cobra.Command, groupID, query string, maxResults int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]interface{}{
		"query":       query,
		"max_results": maxResults,
	}
	resp, err := api.Post(fmt.Sprintf("/groups/%s/query", groupID), req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var out QueryAPIResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return fmt.Errorf("failed to parse results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(out.Results) == 0 {
		fmt.Println("No results")
		return nil
	}

	for i, result := range out.Results {
		fmt.Printf("%d. [%.3f] %s (%s#%d)\n", i+1, result.Score, result.SourceName, result.ChunkFile, result.ChunkIndex)
		fmt.Println(indent(result.Content, "   "))
		fmt.Println()
	}

	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
