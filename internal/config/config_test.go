package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"trustdir/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `{
		"tokens": [
			{"slot": 1, "path": "/etc/trust", "label": "System Trust"},
			{"slot": 2, "path": "/usr/share/trust", "label": "Default Trust"}
		],
		"rescanCron": "*/5 * * * *",
		"stateDir": "/var/lib/trustdir"
	}`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Tokens) != 2 {
		t.Errorf("got %d tokens, want 2", len(cfg.Tokens))
	}
	if cfg.Tokens[0].Label != "System Trust" {
		t.Errorf("got label %q", cfg.Tokens[0].Label)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing config file should be an error")
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := config.Load(path); err == nil {
		t.Error("malformed config should be an error")
	}
}

func TestValidateNoTokens(t *testing.T) {
	cfg := &config.Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("config without tokens should be rejected")
	}
}

func TestValidateDuplicateSlots(t *testing.T) {
	cfg := &config.Config{Tokens: []config.TokenConfig{
		{Slot: 1, Path: "/a", Label: "a"},
		{Slot: 1, Path: "/b", Label: "b"},
	}}
	if err := cfg.Validate(); err == nil {
		t.Error("duplicate slots should be rejected")
	}
}

func TestValidateEmptyFields(t *testing.T) {
	cfg := &config.Config{Tokens: []config.TokenConfig{{Slot: 1, Label: "a"}}}
	if err := cfg.Validate(); err == nil {
		t.Error("empty path should be rejected")
	}

	cfg = &config.Config{Tokens: []config.TokenConfig{{Slot: 1, Path: "/a"}}}
	if err := cfg.Validate(); err == nil {
		t.Error("empty label should be rejected")
	}
}

func TestValidateBadCron(t *testing.T) {
	cfg := &config.Config{
		Tokens:     []config.TokenConfig{{Slot: 1, Path: "/a", Label: "a"}},
		RescanCron: "not a cron",
	}
	if err := cfg.Validate(); err == nil {
		t.Error("bad cron expression should be rejected")
	}
}

func TestStatePath(t *testing.T) {
	cfg := &config.Config{StateDir: "/var/lib/trustdir"}
	want := filepath.Join("/var/lib/trustdir", "token-7.state")
	if got := cfg.StatePath(7); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	cfg = &config.Config{}
	if got := cfg.StatePath(7); got != "" {
		t.Errorf("got %q, want empty without a state dir", got)
	}
}
