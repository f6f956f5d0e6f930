package main

import (
	"database/sql"
	"fmt"

	"github.com/25S2-PRT681-Group-D/server/internal"
	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/spf13/cobra"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueries(func(db *sql.DB, _ *repository.Queries) error {
				if err := internal.RunMigrations(db); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueries(func(db *sql.DB, _ *repository.Queries) error {
				if err := internal.MigrateDown(cmd.Context(), db); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
				return nil
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the applied state of every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueries(func(db *sql.DB, _ *repository.Queries) error {
				return internal.MigrationStatus(cmd.Context(), db)
			})
		},
	})

	return migrateCmd
}
