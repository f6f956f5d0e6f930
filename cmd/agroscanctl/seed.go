package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/25S2-PRT681-Group-D/server/internal/repository"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
	"github.com/spf13/cobra"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demonstration data",
	}

	seedCmd.AddCommand(&cobra.Command{
		Use:   "base",
		Short: "Create the demo users, inspections and analyses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueries(func(db *sql.DB, queries *repository.Queries) error {
				result, err := service.NewSeeder(db, queries, ctx.logger()).SeedBase(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Entity", "Created"},
					[][]string{
						{"Users", strconv.Itoa(result.Users)},
						{"Inspections", strconv.Itoa(result.Inspections)},
						{"Analyses", strconv.Itoa(result.Analyses)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	})

	var userID int64
	var count int
	analyticsCmd := &cobra.Command{
		Use:   "analytics",
		Short: "Create random analysed inspections for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("--user-id must be a positive integer")
			}
			return ctx.withQueries(func(db *sql.DB, queries *repository.Queries) error {
				created, err := service.NewSeeder(db, queries, ctx.logger()).SeedAnalytics(cmd.Context(), userID, count)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d inspections for user %d\n", created, userID)
				return nil
			})
		},
	}
	analyticsCmd.Flags().Int64Var(&userID, "user-id", 0, "Owner of the generated inspections")
	analyticsCmd.Flags().IntVar(&count, "count", service.DefaultAnalyticsCount, "Number of inspections to create")
	seedCmd.AddCommand(analyticsCmd)

	return seedCmd
}
