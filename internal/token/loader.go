package token

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"trustdir/internal/attrs"
	"trustdir/internal/parser"
)

// originFilter matches every index object loaded from the given path.
func originFilter(path string) attrs.Attrs {
	return attrs.Attrs{{Key: attrs.KeyOrigin, Value: path}}
}

// goneFile drops everything attributed to a path: all index objects at
// that origin and the path's stat snapshot. Shared by the deleted,
// unrecognized, unparseable, and became-a-directory cases.
func (t *Token) goneFile(path string) {
	t.index.Batch()
	err := t.index.ReplaceAll(originFilter(path), attrs.KeyClass, nil)
	t.index.Finish()
	if err != nil {
		t.logger.Warn("couldn't drop objects for file", "path", path, "error", err)
	}
	t.loaded.remove(path)
}

// loadFile ingests one regular file. Returns 1 when the index changed
// for this path, 0 otherwise.
func (t *Token) loadFile(path string, state fileState) int {
	// Unchanged since last time; nothing to do.
	if prev, ok := t.loaded.get(path); ok && prev.equal(state) {
		return 0
	}

	policy := classify(path, false, t.roots)

	data, err := os.ReadFile(path)
	if err != nil {
		t.logger.Warn("couldn't read file", "path", path, "error", err)
		t.goneFile(path)
		return 0
	}

	objects, err := t.parser.Parse(path, data, policy)
	switch {
	case errors.Is(err, parser.ErrUnrecognized):
		t.logger.Debug("skipped", "path", path)
		t.goneFile(path)
		return 0
	case err != nil:
		t.logger.Warn("failed to parse file", "path", path, "error", err)
		t.goneFile(path)
		return 0
	}
	t.logger.Debug("loaded", "path", path, "policy", policy.String(), "objects", len(objects))

	// Stamp provenance on every parsed object. File-sourced objects
	// are never modifiable through the public API.
	stamped := make([]attrs.Attrs, len(objects))
	for i, obj := range objects {
		stamped[i] = obj.With(
			attrs.Attr{Key: attrs.KeyOrigin, Value: path},
			attrs.Attr{Key: attrs.KeyModifiable, Value: false},
		)
	}

	t.index.Batch()
	err = t.index.ReplaceAll(originFilter(path), attrs.KeyClass, stamped)
	t.index.Finish()
	if err != nil {
		// Cache deliberately not updated; the next scan retries.
		t.logger.Warn("couldn't load file into objects", "path", path, "error", err)
		return 0
	}

	t.loaded.set(path, state)
	return 1
}

// loadIfFile stats a path and ingests it when it is a regular file.
// Anything else (missing, unreadable, a directory) is treated as gone.
func (t *Token) loadIfFile(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.logger.Warn("couldn't stat path", "path", path, "error", err)
		}
		t.goneFile(path)
		return 0
	}

	if !info.IsDir() {
		return t.loadFile(path, stateOf(info))
	}

	// Perhaps the file became a directory; stop tracking it as a file.
	t.goneFile(path)
	return 0
}

// loadDirectory lists a directory, ingests every entry, and reconciles
// deletions: any path left in present was tracked under this directory
// but no longer listed.
func (t *Token) loadDirectory(dir string, present map[string]struct{}) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.logger.Warn("couldn't list directory", "dir", dir, "error", err)
		t.loaded.remove(dir)
		return 0
	}

	total := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		total += t.loadIfFile(path)
		delete(present, path)
	}

	// All other files that were present are not here now.
	for path := range present {
		t.goneFile(path)
	}

	return total
}

// loadPath scans one of the token's roots.
//
// For directories the stat snapshot of the directory itself gates the
// listing: when it is unchanged, only previously tracked files are
// re-checked individually, because file content can change without
// touching the parent directory's mtime. The re-check branch never
// lists the directory, so it only ever sees paths already tracked;
// tracked files that went missing still reconcile through their own
// stat failing.
func (t *Token) loadPath(path string) int {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			t.logger.Warn("cannot access trust path", "path", path, "error", err)
		}
		t.goneFile(path)
		return 0
	}

	if !info.IsDir() {
		return t.loadFile(path, stateOf(info))
	}

	state := stateOf(info)

	// All the files we know about under this root.
	present := make(map[string]struct{})
	for _, tracked := range t.loaded.prefixed(path) {
		present[tracked] = struct{}{}
	}

	total := 0
	if prev, ok := t.loaded.get(path); !ok || !prev.equal(state) {
		total = t.loadDirectory(path, present)
	} else {
		// Directory didn't change, but maybe files did.
		for tracked := range present {
			total += t.loadIfFile(tracked)
		}
	}

	t.loaded.set(path, state)
	return total
}
