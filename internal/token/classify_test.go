package token

import (
	"path/filepath"
	"testing"

	"trustdir/internal/parser"
)

func testRoots() roots {
	base := filepath.Join("/", "var", "trust")
	return roots{
		path:      base,
		anchors:   filepath.Join(base, "anchors"),
		blacklist: filepath.Join(base, "blacklist"),
	}
}

func TestClassifyAnchorsSubdir(t *testing.T) {
	r := testRoots()
	got := classify(filepath.Join(r.anchors, "ca1.pem"), false, r)
	if got != parser.PolicyAnchor {
		t.Errorf("got %v, want anchor", got)
	}
}

func TestClassifyBlacklistSubdir(t *testing.T) {
	r := testRoots()
	got := classify(filepath.Join(r.blacklist, "bad.pem"), false, r)
	if got != parser.PolicyBlacklist {
		t.Errorf("got %v, want blacklist", got)
	}
}

func TestClassifyPlainFileUnderRoot(t *testing.T) {
	r := testRoots()
	got := classify(filepath.Join(r.path, "misc.pem"), false, r)
	if got != parser.PolicyPlain {
		t.Errorf("got %v, want plain", got)
	}
}

func TestClassifySingleFileTokenIsAnchor(t *testing.T) {
	r := testRoots()
	if got := classify(r.path, false, r); got != parser.PolicyAnchor {
		t.Errorf("single-file root: got %v, want anchor", got)
	}
	// The root as a directory is not an anchor file.
	if got := classify(r.path, true, r); got != parser.PolicyPlain {
		t.Errorf("directory root: got %v, want plain", got)
	}
}

func TestClassifySiblingWithSimilarPrefix(t *testing.T) {
	r := testRoots()
	// "anchors-old" shares the string prefix but is not under anchors/.
	got := classify(filepath.Join(r.path, "anchors-old", "ca.pem"), false, r)
	if got != parser.PolicyPlain {
		t.Errorf("got %v, want plain", got)
	}
}

func TestIsDescendant(t *testing.T) {
	dir := filepath.Join("/", "a", "b")
	if !isDescendant(filepath.Join(dir, "c"), dir) {
		t.Error("direct child should be a descendant")
	}
	if isDescendant(dir, dir) {
		t.Error("a path is not its own descendant")
	}
	if isDescendant(filepath.Join("/", "a", "bc"), dir) {
		t.Error("similar prefix should not count as descendant")
	}
}
