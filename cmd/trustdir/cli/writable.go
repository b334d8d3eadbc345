package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWritableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "writable",
		Short: "Report whether each token's trust path accepts writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			tokens, err := buildTokens(cfg, logger)
			if err != nil {
				return err
			}

			for _, tok := range tokens {
				fmt.Printf("slot %d (%s): path=%s writable=%v\n",
					tok.Slot(), tok.Label(), tok.Path(), tok.IsWritable())
			}
			return nil
		},
	}
}
