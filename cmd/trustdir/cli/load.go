package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trustdir/internal/orchestrator"
)

func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Load all tokens once and report what changed",
		Long:  "Scan every configured trust directory once, print a per-token summary, and persist warm-start state when a state directory is configured.",
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
				Tokens: tokens,
				Logger: logger,
			})
			if err != nil {
				return err
			}

			if err := orch.Start(cmd.Context()); err != nil {
				_ = orch.Stop()
				return err
			}
			for _, slot := range orch.Slots() {
				tok, _ := orch.Token(slot)
				fmt.Printf("slot %d (%s): %d objects from %s\n",
					slot, tok.Label(), tok.Index().Size(), tok.Path())
			}
			return orch.Stop()
		},
	}
}
