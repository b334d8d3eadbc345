// Package cli implements the trustdir command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"trustdir/internal/config"
	"trustdir/internal/logging"
	"trustdir/internal/token"
)

// New returns the root trustdir command with all subcommands wired in.
func New(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "trustdir",
		Short:        "Trust store token service",
		Long:         "Serve configured trust directories as queryable in-memory token stores.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("config", "c", "trustdir.json", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, or error")
	root.PersistentFlags().String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newServeCmd(),
		newLoadCmd(),
		newObjectsCmd(),
		newWritableCmd(),
		newVersionCmd(version),
	)

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// loggerFromCmd builds the base logger from the root persistent flags.
// This is the only place a logger is constructed; everything downstream
// receives it by injection.
func loggerFromCmd(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}
	return slog.New(handler), nil
}

// setup loads the config file and builds the base logger.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	logger, err := loggerFromCmd(cmd)
	if err != nil {
		return nil, nil, err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// buildTokens constructs a token per config entry. Warm-start state
// paths are derived from the config's state directory.
func buildTokens(cfg *config.Config, logger *slog.Logger) ([]*token.Token, error) {
	tokens := make([]*token.Token, 0, len(cfg.Tokens))
	for _, tc := range cfg.Tokens {
		tok, err := token.New(token.Config{
			Slot:      tc.Slot,
			Path:      tc.Path,
			Label:     tc.Label,
			StatePath: cfg.StatePath(tc.Slot),
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("token %q: %w", tc.Label, err)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
