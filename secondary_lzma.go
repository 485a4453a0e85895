package vcdiff

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// SecLZMAID is the wire ID for the LZMA secondary compressor
// (SPEC_FULL.md §2.2, secondary ID 0x03). Not present in the retrieved
// example pack; named per the out-of-pack convention because it is the
// standard pure-Go LZMA implementation and its Reader/Writer already
// match the Secondary capability shape.
const SecLZMAID = 0x03

type lzmaSecondary struct {
	config lzma.WriterConfig
}

func init() {
	RegisterSecondary(&lzmaSecondary{})
}

func (l *lzmaSecondary) ID() byte { return SecLZMAID }

func (l *lzmaSecondary) Compress(section []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := l.config.NewWriter(&buf)
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

func (l *lzmaSecondary) Decompress(section []byte) ([]byte, error) {
	r, err := lzma.NewReader(bytes.NewReader(section))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

// Worthwhile restricts LZMA to larger sections: its dictionary and
// range-coder state carry enough fixed overhead that small INST/ADDR
// sections rarely come out ahead, matching the instruction from spec.md
// §4.J to use a cheap heuristic rather than a trial run.
func (l *lzmaSecondary) Worthwhile(section []byte) bool {
	if len(section) < 256 {
		return false
	}
	return !looksIncompressible(section)
}
