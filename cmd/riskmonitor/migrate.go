package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/riskmonitor/internal/db"
)

// newMigrateCmd creates the migrate command
func newMigrateCmd(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL snapshot table migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := db.New(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close()

			migrator := db.NewMigrator(database.Pool())

			if status {
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("status check failed: %w", err)
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tDESCRIPTION\tAPPLIED")
				for _, s := range statuses {
					fmt.Fprintf(w, "%d\t%s\t%t\n", s.Version, s.Description, s.Applied)
				}
				return w.Flush()
			}

			applied, err := migrator.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", applied)
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "Show migration status instead of migrating")

	return cmd
}
