package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"trustdir/internal/orchestrator"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load all tokens and keep them fresh until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			tokens, err := buildTokens(cfg, logger)
			if err != nil {
				return err
			}

			orch, err := orchestrator.New(orchestrator.Config{
				Tokens:     tokens,
				RescanCron: cfg.RescanCron,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := orch.Start(ctx); err != nil {
				_ = orch.Stop()
				return err
			}
			logger.Info("serving", "tokens", len(tokens), "rescanCron", cfg.RescanCron)

			<-ctx.Done()
			logger.Info("shutting down")
			return orch.Stop()
		},
	}
}
