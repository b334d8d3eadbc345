package token

import (
	"io/fs"
	"os"
	"time"
)

// fileState is the stat snapshot recorded for a loaded path. A path is
// considered unchanged iff mode, mtime, and size are all identical to
// the recorded snapshot; there is no content hashing and no OS-level
// change notification.
type fileState struct {
	Mode    fs.FileMode `msgpack:"mode"`
	ModTime time.Time   `msgpack:"mtime"`
	Size    int64       `msgpack:"size"`
}

// stateOf captures the snapshot for a stat result.
func stateOf(info os.FileInfo) fileState {
	return fileState{
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
}

func (s fileState) equal(o fileState) bool {
	return s.Mode == o.Mode && s.Size == o.Size && s.ModTime.Equal(o.ModTime)
}

// fileStates maps loaded paths to their last-observed snapshots. It is
// owned exclusively by the token; access is serialized by the token's
// own concurrency contract.
type fileStates struct {
	m map[string]fileState
}

func newFileStates() *fileStates {
	return &fileStates{m: make(map[string]fileState)}
}

func (c *fileStates) get(path string) (fileState, bool) {
	s, ok := c.m[path]
	return s, ok
}

func (c *fileStates) set(path string, s fileState) {
	c.m[path] = s
}

func (c *fileStates) remove(path string) {
	delete(c.m, path)
}

func (c *fileStates) len() int {
	return len(c.m)
}

// prefixed returns every tracked path that is a strict descendant of
// root. The root itself is not included.
func (c *fileStates) prefixed(root string) []string {
	var out []string
	for path := range c.m {
		if isDescendant(path, root) {
			out = append(out, path)
		}
	}
	return out
}

// entries returns a copy of all tracked snapshots.
func (c *fileStates) entries() map[string]fileState {
	out := make(map[string]fileState, len(c.m))
	for path, s := range c.m {
		out[path] = s
	}
	return out
}

// replace swaps in a full snapshot map, e.g. from a restored state
// file. Nil entries reset to empty.
func (c *fileStates) replace(entries map[string]fileState) {
	c.m = make(map[string]fileState, len(entries))
	for path, s := range entries {
		c.m[path] = s
	}
}
