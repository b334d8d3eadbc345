package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trustdir/internal/attrs"
	"trustdir/internal/token"
)

func newObjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "objects",
		Short: "Load tokens and list their objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			slotFlag, _ := cmd.Flags().GetUint64("slot")
			class, _ := cmd.Flags().GetString("class")

			tokens, err := buildTokens(cfg, logger)
			if err != nil {
				return err
			}

			var filter attrs.Attrs
			if class != "" {
				filter = attrs.Attrs{{Key: attrs.KeyClass, Value: class}}
			}

			matched := false
			for _, tok := range tokens {
				if cmd.Flags().Changed("slot") && tok.Slot() != slotFlag {
					continue
				}
				matched = true
				tok.Load()
				printObjects(tok, filter)
				_ = tok.Close()
			}
			if !matched {
				return fmt.Errorf("no token with slot %d", slotFlag)
			}
			return nil
		},
	}

	cmd.Flags().Uint64("slot", 0, "only list objects of this token slot")
	cmd.Flags().String("class", "", "only list objects of this class")
	return cmd
}

func printObjects(tok *token.Token, filter attrs.Attrs) {
	ix := tok.Index()
	handles := ix.Select(filter)
	fmt.Printf("slot %d (%s): %d objects\n", tok.Slot(), tok.Label(), len(handles))

	for _, h := range handles {
		object, err := ix.Get(h)
		if err != nil {
			continue
		}
		parts := make([]string, 0, len(object))
		for _, at := range object {
			parts = append(parts, at.Format())
		}
		fmt.Printf("  %s\n", strings.Join(parts, " "))
	}
}
