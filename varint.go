package vcdiff

import (
	"bytes"
	"fmt"
	"io"
	"math/bits"
)

// ReadVarint reads a variable-length integer as defined in RFC 3284
// Section 2: each byte contributes 7 bits, most-significant group
// first, with the high bit set on every byte but the last. A value
// fits in at most VarintMaxBytes bytes for a full 64-bit field; a
// longer encoding, or one whose accumulated value overflows 64 bits,
// is a VarintOverflow.
func ReadVarint(reader *bytes.Reader) (uint64, error) {
	var result uint64
	startLen := reader.Len()

	for i := 0; i < VarintMaxBytes; i++ {
		b, err := reader.ReadByte()
		if err != nil {
			if err == io.EOF {
				bytesRead := startLen - reader.Len()
				return 0, fmt.Errorf("unexpected EOF while reading varint at offset %d: expected continuation or termination byte: %w", bytesRead, ErrVarintOverflow)
			}
			return 0, err
		}

		group := uint64(b & VarintValueMask)
		if result>>(64-VarintShiftIncrement) != 0 {
			return 0, fmt.Errorf("varint at offset %d overflows 64 bits: %w", startLen-reader.Len(), ErrVarintOverflow)
		}
		result = (result << VarintShiftIncrement) | group

		if b&VarintContinuationBit == 0 {
			return result, nil
		}
	}

	startOffset := startLen - reader.Len() - VarintMaxBytes
	return 0, fmt.Errorf("invalid varint at offset %d: exceeds maximum %d-byte encoding (continuation bit never cleared): %w",
		startOffset, VarintMaxBytes, ErrVarintOverflow)
}

// AppendVarint appends the RFC 3284 base-128 encoding of v to dst and
// returns the extended slice. It is the encode-side counterpart of
// ReadVarint, needed by the encoder (component A, spec.md §4.A).
func AppendVarint(dst []byte, v uint64) []byte {
	n := VarintLen(v)

	start := len(dst)
	for i := 0; i < n; i++ {
		dst = append(dst, 0)
	}
	for i := n - 1; i >= 0; i-- {
		group := byte(v & VarintValueMask)
		v >>= VarintShiftIncrement
		if i != n-1 {
			group |= VarintContinuationBit
		}
		dst[start+i] = group
	}
	return dst
}

// VarintLen returns the number of bytes AppendVarint would emit for v,
// used by the IOPT cost model (spec.md §4.H).
func VarintLen(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + VarintShiftIncrement - 1) / VarintShiftIncrement
}
