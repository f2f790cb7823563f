package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/trogers1052/quant-sim/internal/database"
)

func migrateCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.New(cfg.Database.ConnectionString())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.Migrate(migrationsPath); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Println("Migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsPath, "migrations", "db/migrations", "Path to database migrations")
	return cmd
}
