// Package index provides the in-memory trust object store.
//
// The index holds fully-built attribute sequences keyed by opaque
// handles. Mutations go through a build callback (policy expansion and
// validation) and produce change notifications through a changed
// callback. Bracketing mutations with Batch/Finish defers the
// notifications so readers of downstream state observe either the old
// complete object set or the new one, never an interleaving.
//
// Concurrency model:
//   - The index performs no locking of its own
//   - Callers must serialize all access externally, matching the
//     single-writer discipline of the owning token
package index

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"trustdir/internal/attrs"
	"trustdir/internal/logging"
)

// Handle identifies one object in the index.
type Handle uuid.UUID

// NewHandle returns a fresh time-ordered handle.
func NewHandle() Handle {
	return Handle(uuid.Must(uuid.NewV7()))
}

// String renders the handle in canonical UUID form.
func (h Handle) String() string {
	return uuid.UUID(h).String()
}

// Op describes a change notification.
type Op int

const (
	Added Op = iota
	Changed
	Removed
)

func (o Op) String() string {
	switch o {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// BuildFunc validates and expands an object on its way into the index.
// existing is nil for newly created objects. The returned sequence is
// what gets stored.
type BuildFunc func(existing, incoming attrs.Attrs) (attrs.Attrs, error)

// ChangedFunc is notified after each mutation, or after Finish when
// the mutation happened inside a Batch/Finish bracket.
type ChangedFunc func(op Op, h Handle, object attrs.Attrs)

// ErrNotFound is returned when a handle has no object.
var ErrNotFound = errors.New("object not found")

type change struct {
	op     Op
	handle Handle
	object attrs.Attrs
}

// Index is the object store. Not safe for concurrent use; the owning
// token serializes all access.
type Index struct {
	objects map[Handle]attrs.Attrs
	build   BuildFunc
	changed ChangedFunc

	batching bool
	pending  []change

	logger *slog.Logger
}

// Config configures an Index.
type Config struct {
	// Build validates and expands incoming objects. If nil, objects
	// are stored as given.
	Build BuildFunc

	// Changed receives change notifications. If nil, changes are not
	// reported.
	Changed ChangedFunc

	// Logger for structured logging. If nil, logging is disabled.
	Logger *slog.Logger
}

// New creates an empty Index.
func New(cfg Config) *Index {
	return &Index{
		objects: make(map[Handle]attrs.Attrs),
		build:   cfg.Build,
		changed: cfg.Changed,
		logger:  logging.Default(cfg.Logger).With("component", "index"),
	}
}

// Batch begins a notification bracket. Change notifications are
// deferred until Finish. Brackets do not nest.
func (ix *Index) Batch() {
	if ix.batching {
		ix.logger.Warn("batch already open")
		return
	}
	ix.batching = true
}

// Finish closes the notification bracket and flushes deferred
// notifications in mutation order.
func (ix *Index) Finish() {
	if !ix.batching {
		ix.logger.Warn("finish without open batch")
		return
	}
	ix.batching = false
	pending := ix.pending
	ix.pending = nil
	for _, c := range pending {
		ix.notify(c.op, c.handle, c.object)
	}
}

func (ix *Index) notify(op Op, h Handle, object attrs.Attrs) {
	if ix.batching {
		ix.pending = append(ix.pending, change{op: op, handle: h, object: object})
		return
	}
	if ix.changed != nil {
		ix.changed(op, h, object)
	}
}

// Take inserts a new object, passing it through the build callback.
// The index takes ownership of the sequence.
func (ix *Index) Take(object attrs.Attrs) (Handle, error) {
	built := object
	if ix.build != nil {
		var err error
		built, err = ix.build(nil, object)
		if err != nil {
			return Handle{}, fmt.Errorf("build object: %w", err)
		}
	}
	h := NewHandle()
	ix.objects[h] = built
	ix.notify(Added, h, built)
	return h, nil
}

// Get returns the object for a handle. The returned sequence is a
// copy; mutating it does not affect the index.
func (ix *Index) Get(h Handle) (attrs.Attrs, error) {
	obj, ok := ix.objects[h]
	if !ok {
		return nil, ErrNotFound
	}
	return obj.Dup(), nil
}

// Select returns the handles of all objects matching the filter. An
// empty filter selects everything.
func (ix *Index) Select(filter attrs.Attrs) []Handle {
	var out []Handle
	for h, obj := range ix.objects {
		if attrs.Match(obj, filter) {
			out = append(out, h)
		}
	}
	return out
}

// Size returns the number of objects in the index.
func (ix *Index) Size() int {
	return len(ix.objects)
}

// Remove deletes the object for a handle.
func (ix *Index) Remove(h Handle) error {
	obj, ok := ix.objects[h]
	if !ok {
		return ErrNotFound
	}
	delete(ix.objects, h)
	ix.notify(Removed, h, obj)
	return nil
}

// ReplaceAll atomically replaces every object matching the filter with
// the replacement set. Existing objects that are attribute-identical
// to a replacement are left in place so unchanged objects do not
// churn; classHint names the attribute whose value pairs existing and
// replacement objects for that comparison. A nil replacement set
// removes everything at the filter.
func (ix *Index) ReplaceAll(filter attrs.Attrs, classHint attrs.Key, replacements []attrs.Attrs) error {
	remaining := make([]attrs.Attrs, 0, len(replacements))
	remaining = append(remaining, replacements...)

	for _, h := range ix.Select(filter) {
		existing := ix.objects[h]
		kept := false
		for i, repl := range remaining {
			if !sameHint(existing, repl, classHint) {
				continue
			}
			if attrs.Equal(existing, repl) {
				remaining = append(remaining[:i], remaining[i+1:]...)
				kept = true
				break
			}
		}
		if !kept {
			delete(ix.objects, h)
			ix.notify(Removed, h, existing)
		}
	}

	for _, repl := range remaining {
		if _, err := ix.Take(repl); err != nil {
			return err
		}
	}
	return nil
}

// sameHint reports whether two objects carry equal values for the
// pairing attribute. An empty hint pairs any two objects.
func sameHint(a, b attrs.Attrs, hint attrs.Key) bool {
	if hint == "" {
		return true
	}
	av, aok := a.Find(hint)
	bv, bok := b.Find(hint)
	if !aok || !bok {
		return aok == bok
	}
	return attrs.Match(attrs.Attrs{av}, attrs.Attrs{bv})
}
