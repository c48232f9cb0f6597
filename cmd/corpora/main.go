package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/corpora/internal/cli"
	"github.com/veldt-labs/corpora/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "corpora",
		Short: "Corpora CLI - versioned knowledge groups and similarity search",
		Long: `Corpora CLI provides commands to manage knowledge groups, trigger
ingestion and query active snapshots.

Environment variables:
  CORPORA_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.GroupCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.SnapshotCmd())
	rootCmd.AddCommand(client.QueryCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
