package parser_test

import (
	"encoding/pem"
	"errors"
	"testing"

	"trustdir/internal/attrs"
	"trustdir/internal/builder"
	"trustdir/internal/parser"
)

func pemCert(t *testing.T, der []byte) []byte {
	t.Helper()
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func TestParsePEMCertificate(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})
	der := []byte{0x30, 0x82, 0x01, 0x02}

	objects, err := p.Parse("/certs/ca1.pem", pemCert(t, der), parser.PolicyPlain)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(objects) != 1 {
		t.Fatalf("got %d objects, want 1", len(objects))
	}

	obj := objects[0]
	if v, _ := obj.String(attrs.KeyClass); v != attrs.ClassCertificate {
		t.Errorf("got class %q", v)
	}
	if v, _ := obj.String(attrs.KeyLabel); v != "ca1" {
		t.Errorf("got label %q, want ca1", v)
	}
	if v, _ := obj.Bytes(attrs.KeyValue); len(v) != len(der) {
		t.Errorf("got %d value bytes, want %d", len(v), len(der))
	}
}

func TestParseMultipleBlocks(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})
	data := append(pemCert(t, []byte{0x30, 0x01}), pemCert(t, []byte{0x30, 0x02})...)

	objects, err := p.Parse("/certs/bundle.pem", data, parser.PolicyPlain)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(objects) != 2 {
		t.Errorf("got %d objects, want 2", len(objects))
	}
}

func TestParseBareDER(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})
	der := []byte{0x30, 0x82, 0x01, 0x02}

	objects, err := p.Parse("/certs/ca1.crt", der, parser.PolicyPlain)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(objects) != 1 {
		t.Fatalf("got %d objects, want 1", len(objects))
	}
}

func TestParseUnrecognized(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})

	_, err := p.Parse("/certs/readme.txt", []byte("not a certificate\n"), parser.PolicyPlain)
	if !errors.Is(err, parser.ErrUnrecognized) {
		t.Errorf("got %v, want ErrUnrecognized", err)
	}
}

func TestParseNonCertificateEnvelope(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})
	data := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{1, 2, 3}})

	_, err := p.Parse("/certs/key.pem", data, parser.PolicyPlain)
	if !errors.Is(err, parser.ErrUnrecognized) {
		t.Errorf("got %v, want ErrUnrecognized", err)
	}
}

func TestParseMalformedPEM(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})
	data := []byte("-----BEGIN CERTIFICATE-----\nnot base64 at all!!!!\n")

	_, err := p.Parse("/certs/broken.pem", data, parser.PolicyPlain)
	if err == nil {
		t.Fatal("expected error for malformed envelope")
	}
	if errors.Is(err, parser.ErrUnrecognized) {
		t.Error("malformed PEM should be a parse failure, not unrecognized")
	}
}

func TestPolicyMarkers(t *testing.T) {
	p := parser.NewPEM(parser.PEMConfig{})
	data := pemCert(t, []byte{0x30, 0x01})

	anchors, err := p.Parse("/certs/ca.pem", data, parser.PolicyAnchor)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := anchors[0].Bool(attrs.KeyTrusted); !v {
		t.Error("anchor policy should set trusted")
	}

	blacklisted, err := p.Parse("/certs/ca.pem", data, parser.PolicyBlacklist)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := blacklisted[0].Bool(attrs.KeyDistrusted); !v {
		t.Error("blacklist policy should set distrusted")
	}

	plain, err := p.Parse("/certs/ca.pem", data, parser.PolicyPlain)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if plain[0].Has(attrs.KeyTrusted) || plain[0].Has(attrs.KeyDistrusted) {
		t.Error("plain policy should set no trust markers")
	}
}

func TestCacheMemoizes(t *testing.T) {
	cache := builder.NewCache()
	p := parser.NewPEM(parser.PEMConfig{Cache: cache})
	data := pemCert(t, []byte{0x30, 0x01})

	if _, err := p.Parse("/certs/ca.pem", data, parser.PolicyPlain); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("got %d cache entries, want 1", cache.Len())
	}

	// Second parse of identical content under a different policy still
	// yields policy markers, proving markers are applied per call.
	objects, err := p.Parse("/other/ca.pem", data, parser.PolicyAnchor)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v, _ := objects[0].Bool(attrs.KeyTrusted); !v {
		t.Error("cached result should still receive per-call policy markers")
	}
	if cache.Len() != 1 {
		t.Errorf("got %d cache entries after reuse, want 1", cache.Len())
	}
}
