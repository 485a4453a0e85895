package vcdiff

// Rolling checksums for the match engine (spec.md §4.D). Two distinct
// checksums are used because they serve different candidate pools:
// the large checksum indexes the source (for COPYs against the
// source window) and the small checksum indexes recent target bytes
// (for self-referential COPYs within the target, e.g. the repeated
// "abcdefgh" scenario in spec.md §8).

// largeHashMultiplier distributes typical binary content reasonably
// well across a 64-bit field; chosen as an odd constant so it has no
// common factor with the table sizes (powers of two) in hashtable.go.
const largeHashMultiplier uint64 = 1099511628211 // FNV-prime-shaped odd constant

// RollingHash computes a polynomial rolling checksum over a sliding
// window of exactly `look` bytes (spec.md: large_look >= 9).
type RollingHash struct {
	look   int
	hash   uint64
	topPow uint64 // multiplier^(look-1), precomputed for the drop term
}

// NewRollingHash constructs a rolling hash for a window of `look` bytes.
func NewRollingHash(look int) *RollingHash {
	rh := &RollingHash{look: look}
	rh.topPow = 1
	for i := 0; i < look-1; i++ {
		rh.topPow *= largeHashMultiplier
	}
	return rh
}

// Reset recomputes the hash from scratch for the `look`-byte window
// starting at data[0:look].
func (rh *RollingHash) Reset(data []byte) uint64 {
	var h uint64
	for i := 0; i < rh.look && i < len(data); i++ {
		h = h*largeHashMultiplier + uint64(data[i])
	}
	rh.hash = h
	return h
}

// Roll advances the window by one byte: old leaves, new enters.
// h' = (h - old*k^(L-1))*k + new
func (rh *RollingHash) Roll(old, new byte) uint64 {
	rh.hash = (rh.hash-uint64(old)*rh.topPow)*largeHashMultiplier + uint64(new)
	return rh.hash
}

// Sum returns the current hash value without advancing.
func (rh *RollingHash) Sum() uint64 { return rh.hash }

// smallHashLCG is the fixed multiplier for the 4-byte small checksum,
// chosen (as in open-vcdiff's own small hasher) purely to mix bits,
// not for cryptographic distribution.
const smallHashLCG uint32 = 0x9E3779B1 // golden-ratio derived odd constant

// SmallChecksum computes the fixed 4-byte small checksum used to index
// target self-matches (spec.md §4.D).
func SmallChecksum(b0, b1, b2, b3 byte) uint32 {
	v := uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16 | uint32(b3)<<24
	return v * smallHashLCG
}

// SmallRolling incrementally maintains the small checksum over a
// 4-byte window by dropping the outgoing byte and mixing in the
// incoming one, avoiding a full 4-byte recompute per step.
type SmallRolling struct {
	b0, b1, b2, b3 byte
}

// NewSmallRolling seeds the window from the first 4 bytes.
func NewSmallRolling(data []byte) *SmallRolling {
	sr := &SmallRolling{}
	if len(data) >= 4 {
		sr.b0, sr.b1, sr.b2, sr.b3 = data[0], data[1], data[2], data[3]
	}
	return sr
}

// Sum returns the checksum of the current 4-byte window.
func (sr *SmallRolling) Sum() uint32 {
	return SmallChecksum(sr.b0, sr.b1, sr.b2, sr.b3)
}

// Advance drops b0 and appends `next`, shifting the window forward by
// one byte.
func (sr *SmallRolling) Advance(next byte) uint32 {
	sr.b0, sr.b1, sr.b2, sr.b3 = sr.b1, sr.b2, sr.b3, next
	return sr.Sum()
}
