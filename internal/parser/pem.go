package parser

import (
	"bytes"
	"encoding/pem"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"trustdir/internal/attrs"
	"trustdir/internal/builder"
	"trustdir/internal/logging"
)

const pemCertificateType = "CERTIFICATE"

// derSequenceTag is the leading byte of any DER-encoded certificate.
const derSequenceTag = 0x30

// PEM recognizes PEM certificate envelopes and bare DER content. It
// extracts the encoded bytes as object values without interpreting
// them; certificate semantics are left to consumers of the index.
//
// Parse results are memoized in the shared cache by content digest, so
// re-ingesting identical content (same file touched, or the same CA
// bundle in two roots) skips the envelope scan.
type PEM struct {
	cache  *builder.Cache
	logger *slog.Logger
}

// PEMConfig configures a PEM parser.
type PEMConfig struct {
	// Cache is the shared parse cache, normally the builder's. If nil,
	// results are not memoized.
	Cache *builder.Cache

	// Logger for structured logging. If nil, logging is disabled.
	Logger *slog.Logger
}

// NewPEM creates a PEM parser.
func NewPEM(cfg PEMConfig) *PEM {
	return &PEM{
		cache:  cfg.Cache,
		logger: logging.Default(cfg.Logger).With("component", "parser"),
	}
}

// Parse implements Parser.
func (p *PEM) Parse(path string, data []byte, policy Policy) ([]attrs.Attrs, error) {
	objects, err := p.extract(path, data)
	if err != nil {
		return nil, err
	}
	return stampPolicy(objects, policy), nil
}

// extract returns the policy-neutral objects for the given content,
// consulting the cache first.
func (p *PEM) extract(path string, data []byte) ([]attrs.Attrs, error) {
	var digest builder.Digest
	if p.cache != nil {
		digest = builder.DigestOf(data)
		if objects, ok := p.cache.Get(digest); ok {
			return objects, nil
		}
	}

	var objects []attrs.Attrs
	switch {
	case bytes.Contains(data, []byte("-----BEGIN ")):
		var err error
		objects, err = parsePEMBlocks(path, data)
		if err != nil {
			return nil, err
		}
	case len(data) > 0 && data[0] == derSequenceTag:
		objects = []attrs.Attrs{certificateObject(path, bytes.Clone(data))}
	default:
		return nil, ErrUnrecognized
	}

	if p.cache != nil {
		p.cache.Put(digest, objects)
	}
	return objects, nil
}

// parsePEMBlocks decodes all certificate envelopes in the content.
// Non-certificate envelopes are skipped. Content that advertises PEM
// but decodes to nothing is malformed, not unrecognized.
func parsePEMBlocks(path string, data []byte) ([]attrs.Attrs, error) {
	var objects []attrs.Attrs
	decoded := false

	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		decoded = true
		if block.Type != pemCertificateType {
			continue
		}
		objects = append(objects, certificateObject(path, block.Bytes))
	}

	if !decoded {
		return nil, fmt.Errorf("no decodable envelope in %s", filepath.Base(path))
	}
	if len(objects) == 0 {
		// Valid envelopes, just none we load objects from.
		return nil, ErrUnrecognized
	}
	return objects, nil
}

// certificateObject builds the policy-neutral object for one
// certificate blob.
func certificateObject(path string, der []byte) attrs.Attrs {
	base := filepath.Base(path)
	label := strings.TrimSuffix(base, filepath.Ext(base))
	return attrs.Attrs{
		{Key: attrs.KeyClass, Value: attrs.ClassCertificate},
		{Key: attrs.KeyLabel, Value: label},
		{Key: attrs.KeyValue, Value: der},
	}
}

// stampPolicy applies the load policy markers to each object.
func stampPolicy(objects []attrs.Attrs, policy Policy) []attrs.Attrs {
	if policy == PolicyPlain {
		return objects
	}
	out := make([]attrs.Attrs, len(objects))
	for i, obj := range objects {
		switch policy {
		case PolicyAnchor:
			out[i] = obj.With(attrs.Attr{Key: attrs.KeyTrusted, Value: true})
		case PolicyBlacklist:
			out[i] = obj.With(attrs.Attr{Key: attrs.KeyDistrusted, Value: true})
		}
	}
	return out
}
