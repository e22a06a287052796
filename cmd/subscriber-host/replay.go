package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/get-eventually/go-eventstore-http/internal/config"
	"github.com/get-eventually/go-eventstore-http/internal/host"
)

var replaySubscriber string

var replayCmd = &cobra.Command{
	Use:   "replay STREAM NUMBER",
	Short: "Dispatches a single event of a stream to its handlers, without touching checkpoints",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream := args[0]

		number, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("subscriber-host.replay: invalid event number '%s', %w", args[1], err)
		}

		return withHost(cmd.Context(), func(_ *config.Config, _ *config.File, h *host.Host, _ *zap.Logger) error {
			result, err := h.Engine.AdHocInvoke(cmd.Context(), stream, number, replaySubscriber)
			if err != nil {
				return fmt.Errorf("subscriber-host.replay: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d handler(s) invoked\n", result.Code, result.Handlers)

			for name, err := range result.Errors {
				fmt.Fprintf(out, "  %s: %v\n", name, err)
			}

			return nil
		})
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySubscriber, "subscriber", "", "subscriber id the handlers are resolved for")
	rootCmd.AddCommand(replayCmd)
}
