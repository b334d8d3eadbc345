package token

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// accessWritable is the W_OK flag for access(2).
const accessWritable = 0x2

// checkWritableDirectory reports whether path is (or could be created
// as) a writable directory. When path does not exist the walk moves to
// its parent, iteratively, until a decisive answer or the filesystem
// root. Permission denial anywhere is decisive.
//
// The answer is inherently racy; filesystem state can change between
// this check and a later write. Callers treat it as a hint.
func checkWritableDirectory(logger *slog.Logger, path string) bool {
	for p := path; ; {
		err := syscall.Access(p, accessWritable)
		if err == nil {
			info, err := os.Stat(p)
			return err == nil && info.IsDir()
		}

		switch {
		case errors.Is(err, syscall.EACCES):
			return false
		case errors.Is(err, syscall.ENOENT):
			parent := filepath.Dir(p)
			if parent == p {
				return false
			}
			p = parent
		default:
			logger.Warn("couldn't access path", "path", p, "error", err)
			return false
		}
	}
}
