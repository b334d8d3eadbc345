// Package parser turns trust file content into attribute sets.
//
// The token does not care about file formats; it hands the parser raw
// bytes plus the load policy derived from the file's location and gets
// back zero or more objects. ErrUnrecognized is the expected outcome
// for stray files and is not an error condition for the caller.
package parser

import (
	"errors"

	"trustdir/internal/attrs"
)

// Policy is the load policy derived from a file's location within the
// token's directory layout.
type Policy int

const (
	// PolicyPlain loads objects with no implied trust.
	PolicyPlain Policy = iota

	// PolicyAnchor loads objects as trust anchors.
	PolicyAnchor

	// PolicyBlacklist loads objects as distrusted.
	PolicyBlacklist
)

func (p Policy) String() string {
	switch p {
	case PolicyAnchor:
		return "anchor"
	case PolicyBlacklist:
		return "blacklist"
	default:
		return "plain"
	}
}

// ErrUnrecognized reports that the content is not in any format the
// parser understands. Callers treat this as "nothing to load here".
var ErrUnrecognized = errors.New("unrecognized file format")

// Parser extracts objects from file content.
//
// On success it returns the parsed objects in content order, carrying
// class and content attributes plus any policy markers implied by the
// given policy. It returns ErrUnrecognized for content in no known
// format, and any other error for content in a known format that is
// malformed.
type Parser interface {
	Parse(path string, data []byte, policy Policy) ([]attrs.Attrs, error)
}
