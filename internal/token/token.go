// Package token implements the reconciliation core of the trust store.
//
// A Token mirrors one on-disk trust directory into an in-memory object
// index. Loading stats the configured roots, diffs them against the
// last-observed stat snapshots, parses changed files, and republishes
// each file's objects atomically by origin. Deleted or unparseable
// files lose their objects; readers of the index never observe a torn
// update for any one origin.
//
// Concurrency model:
//   - No internal locking, threading, or async I/O
//   - Every entry point (Load, Reload, IsWritable, Close) requires the
//     caller to hold an exclusive lock for this token for the duration
//     of the call; see orchestrator for the standard arrangement
package token

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"trustdir/internal/attrs"
	"trustdir/internal/builder"
	"trustdir/internal/index"
	"trustdir/internal/logging"
	"trustdir/internal/parser"
)

// Token is one logical trust store rooted at a directory (or a single
// anchor file). It owns its index, builder, parser, and stat cache.
type Token struct {
	parser  parser.Parser
	index   *index.Index
	builder *builder.Builder
	loaded  *fileStates

	roots roots
	label string
	slot  uint64

	statePath string

	checkedWritable bool
	isWritable      bool

	logger *slog.Logger
}

// Config configures a Token.
type Config struct {
	// Slot is the token's opaque numeric identity.
	Slot uint64

	// Path is the root directory (or single anchor file) to load from.
	// The anchors and blacklist subpaths are derived from it.
	Path string

	// Label is the human-readable token name.
	Label string

	// StatePath, when set, names a file where stat snapshots are
	// persisted across restarts. Purely an optimization: a missing or
	// stale state file only costs a reparse.
	StatePath string

	// Parser overrides the default PEM parser. Used by tests.
	Parser parser.Parser

	// Logger for structured logging. If nil, logging is disabled.
	Logger *slog.Logger
}

// New creates a Token and injects the builtin trust-anchor-roots
// object into its index.
func New(cfg Config) (*Token, error) {
	if cfg.Path == "" {
		return nil, errors.New("token path must not be empty")
	}
	if cfg.Label == "" {
		return nil, errors.New("token label must not be empty")
	}

	logger := logging.Default(cfg.Logger).With("component", "token", "label", cfg.Label)

	b := builder.New(builder.Config{Logger: cfg.Logger})
	ix := index.New(index.Config{
		Build:   b.Build,
		Changed: b.Changed,
		Logger:  cfg.Logger,
	})

	p := cfg.Parser
	if p == nil {
		p = parser.NewPEM(parser.PEMConfig{Cache: b.Cache(), Logger: cfg.Logger})
	}

	t := &Token{
		parser:  p,
		index:   ix,
		builder: b,
		loaded:  newFileStates(),
		roots: roots{
			path:      cfg.Path,
			anchors:   filepath.Join(cfg.Path, "anchors"),
			blacklist: filepath.Join(cfg.Path, "blacklist"),
		},
		label:     cfg.Label,
		slot:      cfg.Slot,
		statePath: cfg.StatePath,
		logger:    logger,
	}

	if err := t.loadBuiltinObjects(); err != nil {
		return nil, err
	}
	t.restoreState()

	t.logger.Debug("token created", "path", cfg.Path, "slot", cfg.Slot)
	return t, nil
}

// loadBuiltinObjects injects the synthetic root-list marker. It is not
// tied to any origin file and is never removed by reconciliation.
func (t *Token) loadBuiltinObjects() error {
	t.index.Batch()
	defer t.index.Finish()

	_, err := t.index.Take(attrs.Attrs{
		{Key: attrs.KeyClass, Value: attrs.ClassBuiltinRootList},
		{Key: attrs.KeyToken, Value: true},
		{Key: attrs.KeyPrivate, Value: false},
		{Key: attrs.KeyModifiable, Value: false},
		{Key: attrs.KeyLabel, Value: "Trust Anchor Roots"},
	})
	if err != nil {
		return fmt.Errorf("builtin objects: %w", err)
	}
	return nil
}

// Load scans the token's three roots in fixed order and reconciles the
// index with what is on disk. It returns the number of files whose
// objects changed.
func (t *Token) Load() int {
	total := 0
	total += t.loadPath(t.roots.path)
	total += t.loadPath(t.roots.anchors)
	total += t.loadPath(t.roots.blacklist)
	return total
}

// Reload re-ingests the single file an existing object was loaded
// from, identified by its origin attribute. Objects without an origin
// are not file-backed; Reload is a no-op for them. This refreshes one
// origin without a full directory rescan.
func (t *Token) Reload(object attrs.Attrs) int {
	origin, ok := object.String(attrs.KeyOrigin)
	if !ok {
		return 0
	}

	info, err := os.Stat(origin)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.goneFile(origin)
		} else {
			t.logger.Warn("cannot access trust file", "path", origin, "error", err)
		}
		return 0
	}

	return t.loadFile(origin, stateOf(info))
}

// IsWritable reports whether the token's storage root is expected to
// accept writes. The probe runs once; the result is memoized for the
// token's lifetime even if filesystem state changes afterwards.
func (t *Token) IsWritable() bool {
	if !t.checkedWritable {
		t.isWritable = checkWritableDirectory(t.logger, t.roots.path)
		t.checkedWritable = true
	}
	return t.isWritable
}

// Label returns the token's human-readable name.
func (t *Token) Label() string {
	return t.label
}

// Path returns the token's root path.
func (t *Token) Path() string {
	return t.roots.path
}

// Slot returns the token's slot identity.
func (t *Token) Slot() uint64 {
	return t.slot
}

// Index returns the token's object index. External callers use it
// read-only; mutations stay inside this package.
func (t *Token) Index() *index.Index {
	return t.index
}

// Close persists the stat snapshots when a state path is configured.
// Safe to call on a nil token.
func (t *Token) Close() error {
	if t == nil {
		return nil
	}
	return t.saveState()
}
