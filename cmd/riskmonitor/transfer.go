package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
	"github.com/ajitpratap0/riskmonitor/internal/persistence"
)

// newExportCmd creates the export command
func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the persisted monitoring log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			b, err := openBackends(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			store := monitoring.NewMemoryLogStore()
			if err := persistence.NewSnapshotter(store, b.persister).Restore(ctx); err != nil {
				return err
			}
			data, err := store.Export()
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("failed to write export: %w", err)
			}

			snap := store.Snapshot()
			log.Info().
				Str("output", output).
				Int("signals", len(snap.Signals)).
				Int("actions", len(snap.Actions)).
				Int("insights", len(snap.LearningInsights)).
				Msg("Monitoring log exported")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

// newImportCmd creates the import command
func newImportCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the persisted monitoring log with an export",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := readInput(input, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read import: %w", err)
			}

			// Import validates the whole payload before anything is persisted
			store := monitoring.NewMemoryLogStore()
			if err := store.Import(data); err != nil {
				if errors.Is(err, monitoring.ErrInvalidLog) {
					return fmt.Errorf("refusing import: %w", err)
				}
				return err
			}

			b, err := openBackends(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			return persistence.NewSnapshotter(store, b.persister).Save(ctx)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Exported log file, or - for stdin")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
