package token

import (
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"trustdir/internal/attrs"
)

// stateSnapshot is the on-disk warm-start state: the stat cache plus
// the file-backed objects it vouches for. Both travel together; a stat
// entry without its objects would suppress ingestion into an empty
// index. Restoring is best effort and every entry is re-validated
// against live stat data on the next Load, so a stale or corrupt
// snapshot only costs a reparse.
type stateSnapshot struct {
	Files   map[string]fileState        `msgpack:"files"`
	Objects map[string][][]snapshotAttr `msgpack:"objects"`
}

// snapshotAttr carries one attribute through the codec. Values are
// restricted to the attrs value kinds (bool, uint64, string, []byte),
// which round-trip through msgpack unchanged.
type snapshotAttr struct {
	Key   string `msgpack:"k"`
	Value any    `msgpack:"v"`
}

// restoreState loads the stat cache and republishes the snapshotted
// objects per origin. Best effort; any failure starts fresh.
func (t *Token) restoreState() {
	if t.statePath == "" {
		return
	}

	data, err := os.ReadFile(filepath.Clean(t.statePath))
	if err != nil {
		if !os.IsNotExist(err) {
			t.logger.Warn("couldn't read state file, starting fresh", "path", t.statePath, "error", err)
		}
		return
	}

	var snap stateSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		t.logger.Warn("corrupt state file, starting fresh", "path", t.statePath, "error", err)
		return
	}

	t.loaded.replace(snap.Files)

	for origin, encoded := range snap.Objects {
		objects := make([]attrs.Attrs, len(encoded))
		for i, enc := range encoded {
			objects[i] = decodeAttrs(enc)
		}
		t.index.Batch()
		err := t.index.ReplaceAll(originFilter(origin), attrs.KeyClass, objects)
		t.index.Finish()
		if err != nil {
			t.logger.Warn("couldn't restore objects, will reparse", "origin", origin, "error", err)
			t.loaded.remove(origin)
		}
	}

	t.logger.Debug("state restored", "path", t.statePath, "entries", t.loaded.len())
}

// saveState atomically writes the warm-start state to the configured
// state file. No-op when no state path is configured.
func (t *Token) saveState() error {
	if t.statePath == "" {
		return nil
	}

	snap := stateSnapshot{
		Files:   t.loaded.entries(),
		Objects: make(map[string][][]snapshotAttr),
	}

	// Group file-backed objects by origin. Objects without an origin
	// (the builtin root list) are re-injected at construction instead.
	for _, h := range t.index.Select(nil) {
		obj, err := t.index.Get(h)
		if err != nil {
			continue
		}
		origin, ok := obj.String(attrs.KeyOrigin)
		if !ok {
			continue
		}
		snap.Objects[origin] = append(snap.Objects[origin], encodeAttrs(obj))
	}

	if err := os.MkdirAll(filepath.Dir(t.statePath), 0o750); err != nil {
		return err
	}

	data, err := msgpack.Marshal(snap)
	if err != nil {
		return err
	}

	tmp := t.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, t.statePath)
}

func encodeAttrs(obj attrs.Attrs) []snapshotAttr {
	out := make([]snapshotAttr, len(obj))
	for i, at := range obj {
		out[i] = snapshotAttr{Key: string(at.Key), Value: at.Value}
	}
	return out
}

func decodeAttrs(encoded []snapshotAttr) attrs.Attrs {
	out := make(attrs.Attrs, len(encoded))
	for i, enc := range encoded {
		out[i] = attrs.Attr{Key: attrs.Key(enc.Key), Value: normalizeValue(enc.Value)}
	}
	return out
}

// normalizeValue maps decoded msgpack values back onto the attrs value
// kinds. Integers come back signed from the codec.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int64:
		return uint64(n)
	case int8:
		return uint64(n)
	case int16:
		return uint64(n)
	case int32:
		return uint64(n)
	case int:
		return uint64(n)
	case uint64:
		return n
	default:
		return v
	}
}
