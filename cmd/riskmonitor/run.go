package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/riskmonitor/internal/validation"
)

// newRunCmd creates the run command
func newRunCmd(a *app) *cobra.Command {
	var input string
	var apply bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one monitoring cycle over a market snapshot",
		Long: `Run one monitoring cycle over a market snapshot file (YAML or JSON) and print
the result as JSON. The monitoring log is restored from and saved to the
configured persistence backends.
Example: riskmonitor run --input snapshot.yaml --apply`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := readInput(input, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read snapshot: %w", err)
			}
			in, err := decodeSnapshot(data, cycleDefaults(a.cfg))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("apply") {
				in.Apply = apply
			}
			if err := validation.ValidateCycleInput(in); err != nil {
				return fmt.Errorf("invalid snapshot: %w", err)
			}

			b, err := openBackends(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := newPipeline(ctx, a.cfg, b)
			if err != nil {
				return err
			}
			defer p.Close()

			result, err := p.monitor.RunCycle(ctx, in)
			if err != nil {
				return fmt.Errorf("monitoring cycle failed: %w", err)
			}

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Snapshot file, or - for stdin")
	cmd.Flags().BoolVar(&apply, "apply", false, "Apply the determined actions to the trades")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// newLearnCmd creates the learn command
func newLearnCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn from closed trades",
		Long: `Evaluate the logged actions (or the actions in the input) against closed
trades, record the resulting insights and print them as JSON.
Example: riskmonitor learn --input outcomes.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := readInput(input, cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read outcomes: %w", err)
			}
			o, err := decodeOutcomes(data)
			if err != nil {
				return err
			}
			if err := validation.ValidateOutcomes(o.Trades, o.Actions); err != nil {
				return fmt.Errorf("invalid outcomes: %w", err)
			}

			b, err := openBackends(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			p, err := newPipeline(ctx, a.cfg, b)
			if err != nil {
				return err
			}
			defer p.Close()

			insights, err := p.monitor.Learn(ctx, o.Trades, o.Actions)
			if err != nil {
				return fmt.Errorf("learning failed: %w", err)
			}

			return writeJSON(cmd.OutOrStdout(), insights)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Outcomes file, or - for stdin")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
