package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// SnapshotSource represents one frozen source of a snapshot from the API.
type SnapshotSource struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Location      string `json:"location"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Snapshot represents a snapshot from the API.
type Snapshot struct {
	ID        string           `json:"id"`
	GroupID   string           `json:"group_id"`
	Version   int64            `json:"version"`
	Sources   []SnapshotSource `json:"sources"`
	CreatedAt string           `json:"created_at"`
}

// SnapshotCmd creates the snapshot command with its subcommands.
func SnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and activate snapshots",
		Long:  "Get snapshot ingestion state, list a group's snapshots and activate a snapshot for querying.",
	}

	cmd.AddCommand(snapshotGetCmd())
	cmd.AddCommand(snapshotListCmd())
	cmd.AddCommand(snapshotActivateCmd())

	return cmd
}

func snapshotGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <snapshot_id>",
		Short: "Get a snapshot by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSnapshotGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSnapshotGet(cmd *cobra.Command, snapshotID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/snapshots/%s", snapshotID))
	if err != nil {
		return fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(resp.Data, &snapshot); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(snapshot, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printSnapshot(&snapshot)
	return nil
}

func printSnapshot(snapshot *Snapshot) {
	fmt.Printf("ID: %s\n", snapshot.ID)
	fmt.Printf("Group: %s\n", snapshot.GroupID)
	fmt.Printf("Version: %d\n", snapshot.Version)
	fmt.Printf("Created: %s\n", snapshot.CreatedAt)
	fmt.Println("Sources:")
	for _, src := range snapshot.Sources {
		line := fmt.Sprintf("  %s  %s  [%s]", src.ID, src.Name, src.State)
		if src.FailureReason != "" {
			line += "  " + src.FailureReason
		}
		fmt.Println(line)
	}
}

func snapshotListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <group_id>",
		Short: "List a group's snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSnapshotList(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSnapshotList(cmd *cobra.Command, groupID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/groups/%s/snapshots", groupID))
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	var snapshots []Snapshot
	if err := json.Unmarshal(resp.Data, &snapshots); err != nil {
		return fmt.Errorf("failed to parse snapshots: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(snapshots, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(snapshots) == 0 {
		fmt.Println("No snapshots found")
		return nil
	}

	for _, snapshot := range snapshots {
		succeeded := 0
		failed := 0
		for _, src := range snapshot.Sources {
			switch src.State {
			case "succeeded":
				succeeded++
			case "failed":
				failed++
			}
		}
		fmt.Printf("%s  v%d  %d sources (%d succeeded, %d failed)  %s\n",
			snapshot.ID, snapshot.Version, len(snapshot.Sources), succeeded, failed, snapshot.CreatedAt)
	}

	return nil
}

func snapshotActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate <snapshot_id>",
		Short: "Activate a snapshot for querying",
		Long:  "Points the owning group at this snapshot. Queries against the group are served from the active snapshot's vectors.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSnapshotActivate(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSnapshotActivate(cmd *cobra.Command, snapshotID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/snapshots/%s/activate", snapshotID), nil)
	if err != nil {
		return fmt.Errorf("failed to activate snapshot: %w", err)
	}

	var group Group
	if err := json.Unmarshal(resp.Data, &group); err != nil {
		return fmt.Errorf("failed to parse group: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(group, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Group %s now serving snapshot %s\n", group.ID, group.ActiveSnapshot)
	}

	return nil
}
