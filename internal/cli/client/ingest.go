package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <group_id>",
		Short: "Trigger ingestion of a group",
		Long:  "Creates a new snapshot of the group and starts ingesting its sources in the background. Poll the snapshot to follow per-source progress.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runIngest(cmd *cobra.Command, groupID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/groups/%s/ingest", groupID), nil)
	if err != nil {
		return fmt.Errorf("failed to trigger ingestion: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(resp.Data, &snapshot); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Ingestion started: snapshot %s (%d sources)\n", snapshot.ID, len(snapshot.Sources))
		fmt.Printf("Follow progress with: corpora snapshot get %s\n", snapshot.ID)
	}

	return nil
}
