package vcdiff

import (
	"github.com/klauspost/compress/huff0"
)

// SecHuffmanID is the wire ID for the canonical-Huffman secondary
// compressor (SPEC_FULL.md §2.2, secondary ID 0x02).
const SecHuffmanID = 0x02

// huffmanSecondary wraps klauspost/compress/huff0, the standalone
// canonical-Huffman coder the same module's zstd implementation builds
// on. Huffman coding is single-block and stateless per call, which
// matches the per-section (not per-stream) dispatch contract in
// spec.md §4.J.
type huffmanSecondary struct {
	scratch *huff0.Scratch
}

func init() {
	RegisterSecondary(&huffmanSecondary{})
}

func (h *huffmanSecondary) ID() byte { return SecHuffmanID }

func (h *huffmanSecondary) Compress(section []byte) ([]byte, error) {
	if len(section) == 0 {
		return section, nil
	}
	out, _, err := huff0.Compress1X(section, h.scratch)
	if err != nil {
		// huff0 returns ErrIncompressible/ErrUseRLE/ErrTooBig for
		// inputs it declines to encode; callers fall back to storing
		// the section raw rather than treating this as fatal.
		return nil, err
	}
	return out, nil
}

func (h *huffmanSecondary) Decompress(section []byte) ([]byte, error) {
	if len(section) == 0 {
		return section, nil
	}
	s, remain, err := huff0.ReadTable(section, h.scratch)
	if err != nil {
		return nil, err
	}
	return s.Decompress1X(remain)
}

// Worthwhile skips Huffman coding on very small sections, where the
// table overhead dominates, and on sections huff0 itself is likely to
// reject as incompressible.
func (h *huffmanSecondary) Worthwhile(section []byte) bool {
	if len(section) < 32 {
		return false
	}
	return !looksIncompressible(section)
}
