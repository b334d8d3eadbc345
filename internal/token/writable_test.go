package token

import (
	"os"
	"path/filepath"
	"testing"

	"trustdir/internal/logging"
)

func TestWritableExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	if !checkWritableDirectory(logging.Discard(), dir) {
		t.Error("temp dir should be writable")
	}
}

func TestWritableMissingPathWalksToParent(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does", "not", "exist")
	if !checkWritableDirectory(logging.Discard(), missing) {
		t.Error("missing path under a writable dir should be writable")
	}
}

func TestWritableRegularFileIsNot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if checkWritableDirectory(logging.Discard(), file) {
		t.Error("a regular file is not a writable directory")
	}
}

func TestWritableMissingPathUnderFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Walks up from the missing path to the file, which is accessible
	// but not a directory.
	missing := filepath.Join(file, "sub")
	if checkWritableDirectory(logging.Discard(), missing) {
		t.Error("path under a regular file should not be writable")
	}
}
