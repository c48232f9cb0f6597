package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Source represents a data source of a group from the API.
type Source struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

// Group represents a knowledge group from the API.
type Group struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Owner          string   `json:"owner"`
	ActiveSnapshot string   `json:"active_snapshot,omitempty"`
	Sources        []Source `json:"sources"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// GroupListResponse represents a page of groups from the API.
type GroupListResponse struct {
	Items   []Group `json:"items"`
	Cursor  string  `json:"cursor,omitempty"`
	HasMore bool    `json:"has_more"`
}

// GroupCmd creates the group command with its subcommands.
func GroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage knowledge groups",
		Long:  "Create, inspect and list knowledge groups and their data sources.",
	}

	cmd.AddCommand(groupCreateCmd())
	cmd.AddCommand(groupGetCmd())
	cmd.AddCommand(groupListCmd())
	cmd.AddCommand(groupAddSourceCmd())

	return cmd
}

func groupCreateCmd() *cobra.Command {
	var (
		description string
		owner       string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a knowledge group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGroupCreate(cmd, args[0], description, owner, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Group description")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning team or user")

	return cmd
}

func runGroupCreate(cmd *cobra.Command, name, description, owner string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]string{
		"name":        name,
		"description": description,
		"owner":       owner,
	}
	resp, err := api.Post("/groups", req)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	var group Group
	if err := json.Unmarshal(resp.Data, &group); err != nil {
		return fmt.Errorf("failed to parse group: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(group, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Created group %s (%s)\n", group.ID, group.Name)
	}

	return nil
}

func groupGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <group_id>",
		Short: "Get a knowledge group by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGroupGet(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runGroupGet(cmd *cobra.Command, groupID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/groups/%s", groupID))
	if err != nil {
		return fmt.Errorf("failed to get group: %w", err)
	}

	var group Group
	if err := json.Unmarshal(resp.Data, &group); err != nil {
		return fmt.Errorf("failed to parse group: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(group, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printGroup(&group)
	return nil
}

func printGroup(group *Group) {
	fmt.Printf("ID: %s\n", group.ID)
	fmt.Printf("Name: %s\n", group.Name)
	if group.Description != "" {
		fmt.Printf("Description: %s\n", group.Description)
	}
	if group.Owner != "" {
		fmt.Printf("Owner: %s\n", group.Owner)
	}
	if group.ActiveSnapshot != "" {
		fmt.Printf("Active snapshot: %s\n", group.ActiveSnapshot)
	} else {
		fmt.Println("Active snapshot: (none)")
	}
	fmt.Printf("Created: %s\n", group.CreatedAt)
	fmt.Printf("Updated: %s\n", group.UpdatedAt)

	if len(group.Sources) == 0 {
		fmt.Println("Sources: (none)")
		return
	}
	fmt.Println("Sources:")
	for _, src := range group.Sources {
		fmt.Printf("  %s  %s  (%s)  %s\n", src.ID, src.Name, src.Type, src.Location)
	}
}

func groupListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGroupList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runGroupList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	path := "/groups"
	sep := "?"
	if limit > 0 {
		path += fmt.Sprintf("%slimit=%d", sep, limit)
		sep = "&"
	}
	if cursor != "" {
		path += fmt.Sprintf("%scursor=%s", sep, cursor)
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	var page GroupListResponse
	if err := json.Unmarshal(resp.Data, &page); err != nil {
		return fmt.Errorf("failed to parse groups: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(page, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(page.Items) == 0 {
		fmt.Println("No groups found")
		return nil
	}

	for _, group := range page.Items {
		fmt.Printf("%s  %s  (%d sources)\n", group.ID, group.Name, len(group.Sources))
	}
	if page.HasMore {
		fmt.Printf("\nMore results available, use --cursor %s\n", page.Cursor)
	}

	return nil
}

func groupAddSourceCmd() *cobra.Command {
	var (
		name       string
		sourceType string
		location   string
	)

	cmd := &cobra.Command{
		Use:   "add-source <group_id>",
		Short: "Add a data source to a group",
		Long:  "Registers a new data source on an existing group. The source takes effect on the next ingested snapshot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGroupAddSource(cmd, args[0], name, sourceType, location, outputJSON)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Source name, unique within the group (required)")
	cmd.Flags().StringVarP(&sourceType, "type", "t", "", "Source type (required)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Source location, e.g. s3://bucket/prefix (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

func runGroupAddSource(cmd *cobra.Command, groupID, name, sourceType, location string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := map[string]string{
		"name":     name,
		"type":     sourceType,
		"location": location,
	}
	resp, err := api.Post(fmt.Sprintf("/groups/%s/sources", groupID), req)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	var src Source
	if err := json.Unmarshal(resp.Data, &src); err != nil {
		return fmt.Errorf("failed to parse source: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(src, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Added source %s (%s) to group %s\n", src.ID, src.Name, groupID)
	}

	return nil
}
