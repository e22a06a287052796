package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/get-eventually/go-eventstore-http/extension/zaplogger"
	"github.com/get-eventually/go-eventstore-http/internal/config"
	"github.com/get-eventually/go-eventstore-http/internal/host"
)

var rootCmd = &cobra.Command{
	Use:   "subscriber-host",
	Short: "Polls event streams from a remote event store and dispatches them to in-process handlers",
	Long: `subscriber-host polls event streams from a remote event store exposing them
as Atom feeds over HTTP, and dispatches every event read to the handlers
declared in the configuration file.

The configuration is read from the environment variables prefixed with ` + config.Prefix + `_.`,
	SilenceUsage: true,
}

// Execute runs the root command, exiting the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withHost parses the configuration, builds the subscriber host and runs fn with it.
func withHost(ctx context.Context, fn func(*config.Config, *config.File, *host.Host, *zap.Logger) error) error {
	cfg, err := config.Parse()
	if err != nil {
		return fmt.Errorf("subscriber-host: failed to parse config, %w", err)
	}

	file, err := cfg.LoadFile()
	if err != nil {
		return fmt.Errorf("subscriber-host: failed to load config file, %w", err)
	}

	l, err := zaplogger.New(cfg.Development)
	if err != nil {
		return fmt.Errorf("subscriber-host: failed to initialize logger, %w", err)
	}

	//nolint:errcheck // No need for this error to come up if it happens.
	defer l.Sync()

	logger := l.Zap()

	h, err := host.New(ctx, cfg, file, l)
	if err != nil {
		return fmt.Errorf("subscriber-host: failed to build host, %w", err)
	}

	defer func() {
		if err := h.Close(); err != nil {
			logger.Error("failed to close host", zap.Error(err))
		}
	}()

	return fn(cfg, file, h, logger)
}
