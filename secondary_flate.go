package vcdiff

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// SecFlateID is the wire ID for the zlib/deflate secondary compressor
// (SPEC_FULL.md §2.2, secondary ID 0x01).
const SecFlateID = 0x01

// flateSecondary wraps klauspost/compress/flate, grounded on grafana-k6's
// direct dependency on the module.
type flateSecondary struct {
	level int
}

func init() {
	RegisterSecondary(&flateSecondary{level: flate.DefaultCompression})
}

func (f *flateSecondary) ID() byte { return SecFlateID }

func (f *flateSecondary) Compress(section []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, f.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(section); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *flateSecondary) Decompress(section []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(section))
	defer r.Close()
	return io.ReadAll(r)
}

// Worthwhile rejects sections too small for deflate's framing overhead
// to pay for itself, and sections that already look high-entropy
// (byte-value spread close to uniform), without running a trial
// compression.
func (f *flateSecondary) Worthwhile(section []byte) bool {
	if len(section) < 64 {
		return false
	}
	return !looksIncompressible(section)
}

// looksIncompressible samples a byte-frequency histogram; a near-flat
// distribution across all 256 values is a cheap proxy for entropy
// already being high (e.g. previously-compressed or encrypted data).
func looksIncompressible(section []byte) bool {
	var hist [256]int
	n := len(section)
	if n > 4096 {
		n = 4096
	}
	for i := 0; i < n; i++ {
		hist[section[i]]++
	}
	distinct := 0
	for _, c := range hist {
		if c > 0 {
			distinct++
		}
	}
	return distinct > n*9/10
}
