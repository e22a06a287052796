package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/get-eventually/go-eventstore-http/internal/config"
	"github.com/get-eventually/go-eventstore-http/internal/host"
	"github.com/get-eventually/go-eventstore-http/subscription/checkpoint"
)

var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "Lists the checkpoints stored by the configured backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withHost(cmd.Context(), func(cfg *config.Config, _ *config.File, h *host.Host, _ *zap.Logger) error {
			lister, ok := h.Checkpointer.(checkpoint.Lister)
			if !ok {
				return fmt.Errorf("subscriber-host.positions: backend '%s' cannot list checkpoints", cfg.Checkpoint.Backend)
			}

			positions, err := lister.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("subscriber-host.positions: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STREAM\tSUBSCRIBER\tPOSITION")

			for _, p := range positions {
				fmt.Fprintf(w, "%s\t%s\t%d\n", p.Stream, p.SubscriberID, p.Position)
			}

			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(positionsCmd)
}
