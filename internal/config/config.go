// Package config loads the daemon configuration.
//
// Config describes the desired system shape: which tokens exist and
// how often they are rescanned. It is declarative and loaded once at
// startup; there is no live reloading of the config file itself (the
// tokens reload their trust directories, not their own config).
//
// Validation here covers structure only (unique slots, well-formed
// cron). Filesystem semantics (whether paths exist, are readable,
// etc.) are the tokens' business: a missing trust directory is a
// normal runtime condition, not a config error.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// TokenConfig describes one trust store token.
type TokenConfig struct {
	// Slot is the token's numeric identity. Must be unique.
	Slot uint64 `json:"slot"`

	// Path is the trust directory (or single anchor file) to load.
	Path string `json:"path"`

	// Label is the human-readable token name.
	Label string `json:"label"`
}

// Config describes the desired system shape.
type Config struct {
	// Tokens lists the trust stores to serve.
	Tokens []TokenConfig `json:"tokens"`

	// RescanCron schedules periodic rescans of all tokens. Standard
	// 5-field or second-granularity 6-field cron syntax. Empty
	// disables periodic rescans.
	RescanCron string `json:"rescanCron,omitempty"`

	// StateDir, when set, enables warm-start state files, one per
	// token, under this directory.
	StateDir string `json:"stateDir,omitempty"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural config invariants.
func (c *Config) Validate() error {
	if len(c.Tokens) == 0 {
		return fmt.Errorf("config defines no tokens")
	}

	seen := make(map[uint64]bool)
	for i, tc := range c.Tokens {
		if tc.Path == "" {
			return fmt.Errorf("token %d: path must not be empty", i)
		}
		if tc.Label == "" {
			return fmt.Errorf("token %d: label must not be empty", i)
		}
		if seen[tc.Slot] {
			return fmt.Errorf("token %d: duplicate slot %d", i, tc.Slot)
		}
		seen[tc.Slot] = true
	}

	if c.RescanCron != "" {
		if err := validateCron(c.RescanCron); err != nil {
			return fmt.Errorf("rescanCron: %w", err)
		}
	}
	return nil
}

// StatePath returns the warm-start state file for a slot, or empty
// when no state directory is configured.
func (c *Config) StatePath(slot uint64) string {
	if c.StateDir == "" {
		return ""
	}
	return filepath.Join(c.StateDir, fmt.Sprintf("token-%d.state", slot))
}

// validateCron checks a cron expression against the same parser the
// scheduler will eventually use. Standard 5-field or second-level
// 6-field expressions are accepted.
func validateCron(expr string) error {
	cr := gocron.NewDefaultCron(true)
	if err := cr.IsValid(expr, time.UTC, time.Now()); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
