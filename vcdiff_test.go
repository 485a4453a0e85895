package vcdiff

import (
	"bytes"
	"errors"
	"testing"
)

// TestEncodeRejectsInvalidConfig covers the Encode entry point's
// delegation to StreamConfig.Validate.
func TestEncodeRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.Level = 42

	_, err := Encode([]byte("source"), []byte("target"), cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

// TestDecodeEmptyDelta covers rejecting a delta too short to even
// contain a file header.
func TestDecodeEmptyDelta(t *testing.T) {
	_, err := Decode([]byte("hello world"), nil)
	if err == nil {
		t.Fatal("expected an error decoding an empty delta")
	}
}

// TestDecodeTruncatedMidWindow covers the NeedInput-with-no-more-bytes
// case documented on Decode: a delta that ends partway through a
// window must be reported as ErrInvalidWindow, not silently truncated
// output.
func TestDecodeTruncatedMidWindow(t *testing.T) {
	delta, err := Encode([]byte("a modestly long source string"), []byte("a modestly long TARGET string"), DefaultStreamConfig())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	truncated := delta[:len(delta)-2]

	_, err = Decode([]byte("a modestly long source string"), truncated)
	if err == nil {
		t.Fatal("expected an error decoding a truncated delta")
	}
}

// TestParseDeltaStructure covers the structural (non-executing) parse
// path used by the CLI's header/headers/parse/analyze subcommands.
func TestParseDeltaStructure(t *testing.T) {
	source := []byte("the quick brown fox jumps over the lazy dog")
	target := []byte("the quick brown fox leaps over the lazy dog, twice")

	delta, err := Encode(source, target, DefaultStreamConfig())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parsed, err := ParseDelta(delta)
	if err != nil {
		t.Fatalf("ParseDelta: %v", err)
	}
	if parsed.Header.Magic != VCDIFFMagic {
		t.Errorf("unexpected magic: %v", parsed.Header.Magic)
	}
	if parsed.Header.Version != VCDIFFVersion {
		t.Errorf("unexpected version: %v", parsed.Header.Version)
	}
	if len(parsed.Windows) == 0 {
		t.Error("expected at least one window")
	}
	if len(parsed.Instructions) == 0 {
		t.Error("expected at least one instruction")
	}

	var total uint64
	for _, inst := range parsed.Instructions {
		total += inst.Size
	}
	if total != uint64(len(target)) {
		t.Errorf("instruction sizes sum to %d, want %d (target length)", total, len(target))
	}
}

// TestParseDeltaRejectsTooShort covers the MinimumFileSize guard.
func TestParseDeltaRejectsTooShort(t *testing.T) {
	_, err := ParseDelta([]byte{0xd6, 0xc3})
	if err == nil {
		t.Fatal("expected an error for an undersized delta")
	}
}

// TestNewEncoderRejectsInvalidConfig covers the Encoder constructor's
// own validation, independent of the Encode convenience wrapper.
func TestNewEncoderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.DuplicateWindowSize = cfg.WindowSize + 1

	_, err := NewEncoder(cfg, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

// TestNewDecoderRejectsInvalidConfig mirrors TestNewEncoderRejectsInvalidConfig
// for the Decoder constructor.
func TestNewDecoderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.WindowSize = HardMaxWindow + 1

	_, err := NewDecoder(cfg, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

// TestEncodeDecodeNilSource covers a nil SourceReader (no source file
// at all), not just an empty one, through the full package API.
func TestEncodeDecodeNilSource(t *testing.T) {
	target := []byte("no source document, just this target")

	delta, err := Encode(nil, target, DefaultStreamConfig())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(nil, delta)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Fatalf("mismatch: got %q want %q", got, target)
	}
}
