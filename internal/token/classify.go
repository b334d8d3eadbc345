package token

import (
	"os"
	"strings"

	"trustdir/internal/parser"
)

// roots holds the token's configured load roots.
type roots struct {
	path      string
	anchors   string
	blacklist string
}

// classify decides which load policy applies to a path. First match
// wins: under anchors, under blacklist, or the root path itself when
// the token is configured as a single anchor file. Everything else
// loads plain.
func classify(path string, isDir bool, r roots) parser.Policy {
	switch {
	case isDescendant(path, r.anchors):
		return parser.PolicyAnchor
	case isDescendant(path, r.blacklist):
		return parser.PolicyBlacklist
	case path == r.path && !isDir:
		return parser.PolicyAnchor
	default:
		return parser.PolicyPlain
	}
}

// isDescendant reports whether path lies strictly under dir. Paths are
// compared lexically; the loader only builds cleaned absolute paths.
func isDescendant(path, dir string) bool {
	if dir == "" {
		return false
	}
	return strings.HasPrefix(path, dir+string(os.PathSeparator))
}
