package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
)

func TestDiscard(t *testing.T) {
	logger := Discard()
	if logger == nil {
		t.Fatal("Discard() returned nil")
	}

	// Should not panic when logging.
	logger.Info("test message")
	logger.Debug("debug message")

	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Error("discard logger should report all levels disabled")
	}
}

func TestDefault(t *testing.T) {
	t.Run("nil returns discard", func(t *testing.T) {
		logger := Default(nil)
		if logger == nil {
			t.Fatal("Default(nil) returned nil")
		}
		// Verify it's a discard logger by checking Enabled returns false.
		if logger.Enabled(context.Background(), slog.LevelInfo) {
			t.Error("Default(nil) should return a discard logger")
		}
	})

	t.Run("non-nil returns same logger", func(t *testing.T) {
		var buf bytes.Buffer
		original := slog.New(slog.NewTextHandler(&buf, nil))
		result := Default(original)
		if result != original {
			t.Error("Default should return the same logger when non-nil")
		}
	})
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.name)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("unknown level name should be an error")
	}
}
