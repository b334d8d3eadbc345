// Package builder applies trust policy to objects entering the index.
//
// The builder supplies the index's build and changed callbacks and
// owns the parse cache shared with the parser. Building an object
// fills in token-object defaults and derives the policy category from
// the trusted/distrusted markers the parser attached.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"trustdir/internal/attrs"
	"trustdir/internal/index"
	"trustdir/internal/logging"
)

// ErrMissingClass is returned for objects without a class attribute.
var ErrMissingClass = errors.New("object has no class")

// ErrClassChange is returned when an update tries to change an
// object's class.
var ErrClassChange = errors.New("object class cannot change")

// Builder validates and expands objects and observes index changes.
type Builder struct {
	cache   *Cache
	changes uint64
	logger  *slog.Logger
}

// Config configures a Builder.
type Config struct {
	// Logger for structured logging. If nil, logging is disabled.
	Logger *slog.Logger
}

// New creates a Builder with an empty parse cache.
func New(cfg Config) *Builder {
	return &Builder{
		cache:  NewCache(),
		logger: logging.Default(cfg.Logger).With("component", "builder"),
	}
}

// Cache returns the parse cache shared with the parser.
func (b *Builder) Cache() *Cache {
	return b.cache
}

// Build is the index build callback. It validates the incoming object,
// applies token-object defaults, and derives the policy category.
func (b *Builder) Build(existing, incoming attrs.Attrs) (attrs.Attrs, error) {
	class, ok := incoming.String(attrs.KeyClass)
	if !ok {
		return nil, ErrMissingClass
	}
	if existing != nil {
		if prev, ok := existing.String(attrs.KeyClass); ok && prev != class {
			return nil, fmt.Errorf("%w: %s -> %s", ErrClassChange, prev, class)
		}
	}

	built := incoming.Dup()
	if !built.Has(attrs.KeyToken) {
		built = built.With(attrs.Attr{Key: attrs.KeyToken, Value: true})
	}
	if !built.Has(attrs.KeyPrivate) {
		built = built.With(attrs.Attr{Key: attrs.KeyPrivate, Value: false})
	}
	if !built.Has(attrs.KeyCategory) {
		built = built.With(attrs.Attr{Key: attrs.KeyCategory, Value: categoryFor(built)})
	}
	return built, nil
}

// Changed is the index changed callback. Policy state derived from the
// object set is recomputed here; for now that is just a change counter
// and a debug trace.
func (b *Builder) Changed(op index.Op, h index.Handle, object attrs.Attrs) {
	b.changes++
	if b.logger.Enabled(context.Background(), slog.LevelDebug) {
		label, _ := object.String(attrs.KeyLabel)
		b.logger.Debug("object changed", "op", op.String(), "handle", h.String(), "label", label)
	}
}

// Changes returns the number of change notifications observed.
func (b *Builder) Changes() uint64 {
	return b.changes
}

// categoryFor derives the policy category from trust markers.
func categoryFor(object attrs.Attrs) string {
	if v, _ := object.Bool(attrs.KeyDistrusted); v {
		return attrs.CategoryDistrusted
	}
	if v, _ := object.Bool(attrs.KeyTrusted); v {
		return attrs.CategoryAnchor
	}
	return attrs.CategoryOther
}
