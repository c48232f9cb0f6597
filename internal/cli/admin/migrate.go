package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/corpora/internal/config"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending database migrations and exit. The serve command does this on startup unless --no-migrate is set.",
		RunE:  runMigrate,
	}

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	return runMigrations(cfg.DatabaseURL)
}
