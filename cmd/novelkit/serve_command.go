package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"novelkit/internal/logging"
	"novelkit/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the editor API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return ctx.withRuntime(logger, func(rt *runtime) error {
				srv := server.New(cfg, rt.store, rt.cache, rt.repairer, rt.exporter, rt.projects, rt.registry, logger)
				if err := srv.Start(signalCtx); err != nil {
					return err
				}
				defer srv.Stop()

				fmt.Fprintf(cmd.OutOrStdout(), "novelkit server listening on %s\n", srv.Addr())
				<-signalCtx.Done()
				logger.Info("novelkit server shutting down")
				return nil
			})
		},
	}
}
