// Command trustdir serves configured trust store tokens.
//
// Logging:
//   - Base logger is created in the cli package from the root flags
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"os"

	"trustdir/cmd/trustdir/cli"
)

var version = "dev"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		os.Exit(1)
	}
}
