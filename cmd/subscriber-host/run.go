package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/get-eventually/go-eventstore-http/internal/config"
	"github.com/get-eventually/go-eventstore-http/internal/host"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Subscribes to the configured streams and polls them until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withHost(ctx, func(cfg *config.Config, file *config.File, h *host.Host, logger *zap.Logger) error {
			subscriptions, err := cfg.AllSubscriptions(file)
			if err != nil {
				return fmt.Errorf("subscriber-host.run: %w", err)
			}

			if len(subscriptions) == 0 {
				return fmt.Errorf("subscriber-host.run: no subscriptions configured")
			}

			group, ctx := errgroup.WithContext(ctx)

			group.Go(func() error {
				return h.Subscribe(ctx, subscriptions)
			})

			group.Go(func() error {
				h.ReportStats(ctx, cfg.StatsInterval)
				return nil
			})

			group.Go(func() error {
				<-ctx.Done()
				logger.Info("shutting down subscriber host")

				return nil
			})

			logger.Info("subscriber host started", zap.Int("subscriptions", len(subscriptions)))

			if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
