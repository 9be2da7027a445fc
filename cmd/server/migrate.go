package main

import (
	"context"
	"fmt"

	"board2048/internal/config"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create the players, games and scores tables if they do not exist.
Running it again is harmless.

Examples:
  board2048 migrate
  DB_DRIVER=postgres-gorm board2048 migrate`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), config.LoadStorage)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if err := a.db.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	a.logger.Info("database schema is up to date", "driver", a.cfg.Database.Driver)
	return nil
}
