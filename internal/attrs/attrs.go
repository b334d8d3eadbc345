// Package attrs models trust objects as attribute sequences.
//
// An object is an ordered sequence of attributes with unique keys.
// Attribute values are one of: bool, uint64, string, or []byte.
// Sequences are built once and treated as immutable afterwards;
// With returns a new sequence rather than mutating in place.
package attrs

import (
	"bytes"
	"fmt"
)

// Key identifies an attribute within an object.
type Key string

const (
	// KeyClass is the object class (see the Class* constants).
	KeyClass Key = "class"

	// KeyToken marks objects that belong to the token rather than a session.
	KeyToken Key = "token"

	// KeyPrivate marks objects not visible without authentication.
	KeyPrivate Key = "private"

	// KeyModifiable marks objects that may be changed through the public
	// API. Always false for file-sourced objects.
	KeyModifiable Key = "modifiable"

	// KeyLabel is a human-readable object name.
	KeyLabel Key = "label"

	// KeyValue holds the raw object content (e.g. DER bytes).
	KeyValue Key = "value"

	// KeyOrigin is the absolute path of the file an object was loaded
	// from. Objects not backed by a file carry no origin.
	KeyOrigin Key = "origin"

	// KeyTrusted marks objects loaded under the anchor policy.
	KeyTrusted Key = "trusted"

	// KeyDistrusted marks objects loaded under the blacklist policy.
	KeyDistrusted Key = "distrusted"

	// KeyCategory is the policy category assigned by the builder.
	KeyCategory Key = "category"
)

// Class values for KeyClass.
const (
	ClassCertificate     = "certificate"
	ClassBuiltinRootList = "nss-builtin-root-list"
)

// Category values for KeyCategory.
const (
	CategoryAnchor     = "trust-anchor"
	CategoryDistrusted = "distrusted"
	CategoryOther      = "other-entry"
)

// Attr is a single key/value pair.
type Attr struct {
	Key   Key
	Value any
}

// Attrs is an ordered attribute sequence with unique keys.
type Attrs []Attr

// Find returns the attribute with the given key.
func (a Attrs) Find(key Key) (Attr, bool) {
	for _, at := range a {
		if at.Key == key {
			return at, true
		}
	}
	return Attr{}, false
}

// Has reports whether the sequence contains the given key.
func (a Attrs) Has(key Key) bool {
	_, ok := a.Find(key)
	return ok
}

// Bool returns the value of a bool attribute. The second return is
// false when the key is absent or holds a different value kind.
func (a Attrs) Bool(key Key) (bool, bool) {
	at, ok := a.Find(key)
	if !ok {
		return false, false
	}
	v, ok := at.Value.(bool)
	return v, ok
}

// String returns the value of a string attribute.
func (a Attrs) String(key Key) (string, bool) {
	at, ok := a.Find(key)
	if !ok {
		return "", false
	}
	v, ok := at.Value.(string)
	return v, ok
}

// Bytes returns the value of a []byte attribute.
func (a Attrs) Bytes(key Key) ([]byte, bool) {
	at, ok := a.Find(key)
	if !ok {
		return nil, false
	}
	v, ok := at.Value.([]byte)
	return v, ok
}

// Uint returns the value of a uint64 attribute.
func (a Attrs) Uint(key Key) (uint64, bool) {
	at, ok := a.Find(key)
	if !ok {
		return 0, false
	}
	v, ok := at.Value.(uint64)
	return v, ok
}

// With returns a new sequence where each extra attribute overrides any
// existing attribute with the same key, or is appended otherwise. The
// receiver is not modified.
func (a Attrs) With(extra ...Attr) Attrs {
	out := a.Dup()
	for _, e := range extra {
		replaced := false
		for i := range out {
			if out[i].Key == e.Key {
				out[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return out
}

// Dup returns a copy of the sequence. Byte values are copied so the
// duplicate shares no mutable state with the original.
func (a Attrs) Dup() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	copy(out, a)
	for i, at := range out {
		if b, ok := at.Value.([]byte); ok {
			out[i].Value = bytes.Clone(b)
		}
	}
	return out
}

// Equal reports whether two sequences contain the same attributes,
// regardless of order. Keys are unique within a sequence, so a
// per-key comparison suffices.
func Equal(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for _, at := range a {
		bt, ok := b.Find(at.Key)
		if !ok || !valueEqual(at.Value, bt.Value) {
			return false
		}
	}
	return true
}

// Match reports whether every attribute in filter is present in a with
// an equal value. An empty filter matches everything.
func Match(a, filter Attrs) bool {
	for _, f := range filter {
		at, ok := a.Find(f.Key)
		if !ok || !valueEqual(at.Value, f.Value) {
			return false
		}
	}
	return true
}

func valueEqual(x, y any) bool {
	xb, xok := x.([]byte)
	yb, yok := y.([]byte)
	if xok || yok {
		return xok && yok && bytes.Equal(xb, yb)
	}
	return x == y
}

// Format renders an attribute for logs and CLI output. Byte values are
// summarized by length rather than dumped.
func (at Attr) Format() string {
	if b, ok := at.Value.([]byte); ok {
		return fmt.Sprintf("%s=<%d bytes>", at.Key, len(b))
	}
	return fmt.Sprintf("%s=%v", at.Key, at.Value)
}
