package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"chromaflow/internal/items"
	"chromaflow/internal/query"
	"chromaflow/internal/storeaccess"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a summary line whenever the stored items change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withSession(signalCtx, func(session storeaccess.Session) error {
				return watchChanges(signalCtx, session, func(list []items.Item) {
					fmt.Fprintln(cmd.OutOrStdout(), summaryLine(time.Now(), list))
				})
			})
		},
	}
}

// watchChanges forwards snapshots to emit until ctx ends.
func watchChanges(ctx context.Context, session storeaccess.Session, emit func([]items.Item)) error {
	snapshots := make(chan []items.Item, 1)
	stop := session.Bridge.Subscribe(ctx, func(list []items.Item) {
		select {
		case snapshots <- list:
		case <-ctx.Done():
		}
	})
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case list := <-snapshots:
			emit(list)
		}
	}
}

func summaryLine(now time.Time, list []items.Item) string {
	stats := query.Stats(list)
	return fmt.Sprintf("%s  %d items  received %d  blasting %d  painting %d  packing %d  awaiting %d  shipped %d",
		now.Format("15:04:05"), stats.Total,
		stats.Received, stats.Blasting, stats.Painting, stats.Packing, stats.Waiting, stats.Shipped)
}
