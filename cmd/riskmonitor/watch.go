package main

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/riskmonitor/internal/events"
)

// newWatchCmd creates the watch command
func newWatchCmd(a *app) *cobra.Command {
	var kinds []string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print monitoring events published on NATS",
		Long: `Subscribe to the events published by a running server and print each one as a
JSON line until interrupted.
Example: riskmonitor watch --kind signal --kind action`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			publisher, err := events.Connect(events.Config{
				URL:           a.cfg.NATS.URL,
				SubjectPrefix: a.cfg.NATS.SubjectPrefix,
				Name:          a.cfg.App.Name + "-watch",
			})
			if err != nil {
				return err
			}
			defer func() { _ = publisher.Close() }()

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			emit := func(e events.Event) {
				mu.Lock()
				defer mu.Unlock()
				if err := writeJSONLine(out, e); err != nil {
					cmd.PrintErrln(err)
				}
			}

			subs := make([]*nats.Subscription, 0, len(kinds))
			for _, kind := range kinds {
				sub, err := publisher.Subscribe(kind, emit)
				if err != nil {
					return err
				}
				subs = append(subs, sub)
			}
			defer func() {
				for _, sub := range subs {
					_ = sub.Unsubscribe()
				}
			}()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind",
		[]string{events.KindCycle, events.KindSignal, events.KindAction, events.KindInsight},
		fmt.Sprintf("Event kinds to watch (%s, %s, %s, %s, %s)", events.KindCycle, events.KindSignal, events.KindAction, events.KindInsight, events.KindHeartbeat))

	return cmd
}
