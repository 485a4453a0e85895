package vcdiff

import (
	"bytes"
	"fmt"
)

// Address cache mode space (RFC 3284 §5.3): mode 0 is SELF, mode 1 is
// HERE, modes [2, 2+nearSize) are NEAR slots, and the remainder are
// SAME slots.
const (
	SelfMode = 0
	HereMode = 1
)

// AddressCache manages address encoding/decoding for COPY instructions
type AddressCache struct {
	nearSize      int
	sameSize      int
	near          []uint64
	nextNearSlot  int
	same          []uint64
	addressStream *bytes.Reader
	addressBuf    []byte // encode-side accumulator
}

// NewAddressCache creates a new address cache with the specified sizes
func NewAddressCache(nearSize, sameSize int) *AddressCache {
	return &AddressCache{
		nearSize: nearSize,
		sameSize: sameSize,
		near:     make([]uint64, nearSize),
		same:     make([]uint64, sameSize*256),
	}
}

// Reset zeroes the NEAR and SAME caches for a new window (spec.md §3,
// "Address cache ... Reset at the start of every window") and, for
// decode, installs the address section to read from.
func (ac *AddressCache) Reset(addresses []byte) {
	ac.nextNearSlot = 0

	for i := range ac.near {
		ac.near[i] = 0
	}
	for i := range ac.same {
		ac.same[i] = 0
	}

	ac.addressStream = bytes.NewReader(addresses)
	ac.addressBuf = ac.addressBuf[:0]
}

// DecodeAddress decodes an address using the specified mode
func (ac *AddressCache) DecodeAddress(here uint64, mode byte) (uint64, error) {
	var addr uint64
	var err error

	if int(mode) > 1+ac.nearSize+ac.sameSize {
		return 0, fmt.Errorf("invalid address cache mode %d: valid modes are 0-%d: %w", mode, 1+ac.nearSize+ac.sameSize, ErrInvalidWindow)
	}

	switch mode {
	case SelfMode:
		addr, err = ReadVarint(ac.addressStream)
		if err != nil {
			return 0, fmt.Errorf("error reading address for SELF mode: %v", err)
		}

	case HereMode:
		offset, err := ReadVarint(ac.addressStream)
		if err != nil {
			return 0, fmt.Errorf("error reading offset for HERE mode: %v", err)
		}
		if offset > here {
			return 0, fmt.Errorf("HERE mode offset %d exceeds current position %d: %w", offset, here, ErrInvalidWindow)
		}
		addr = here - offset

	default:
		if int(mode-2) < ac.nearSize {
			cacheIndex := mode - 2
			offset, err := ReadVarint(ac.addressStream)
			if err != nil {
				return 0, fmt.Errorf("error reading offset for near cache mode %d: %v", mode, err)
			}
			addr = ac.near[cacheIndex] + offset
		} else {
			m := int(mode) - (2 + ac.nearSize)
			if m >= ac.sameSize {
				return 0, fmt.Errorf("same cache mode %d exceeds available slots (max %d): %w", mode, 2+ac.nearSize+ac.sameSize-1, ErrInvalidWindow)
			}
			b, err := ac.addressStream.ReadByte()
			if err != nil {
				return 0, err
			}
			addr = ac.same[m*256+int(b)]
		}
	}

	ac.Update(addr)
	return addr, nil
}

// Update updates the address cache with a new address. Per spec.md
// §4.B, it is always called with the *copy source address*, never the
// output position.
func (ac *AddressCache) Update(address uint64) {
	if ac.nearSize > 0 {
		ac.near[ac.nextNearSlot] = address
		ac.nextNearSlot = (ac.nextNearSlot + 1) % ac.nearSize
	}

	if ac.sameSize > 0 {
		ac.same[address%(uint64(ac.sameSize)*256)] = address
	}
}

// EncodeAddress picks the cheapest mode for addr given the cache state
// and the current "here" position, appends the mode's encoded bytes to
// the address section, updates the cache, and returns the chosen mode.
// Tie-break order is SAME < NEAR < HERE < SELF (spec.md §4.B, §9):
// among equal-length candidates the constant-width SAME mode wins,
// then NEAR, then HERE, with SELF (always a raw varint) as the
// fallback.
func (ac *AddressCache) EncodeAddress(addr, here uint64) byte {
	bestMode := byte(SelfMode)
	bestLen := VarintLen(addr)

	// SAME: single byte if a slot already holds addr exactly.
	if ac.sameSize > 0 {
		for j := 0; j < ac.sameSize; j++ {
			slot := j*256 + int(addr%256)
			if ac.same[slot] == addr {
				bestMode = byte(2 + ac.nearSize + j)
				bestLen = 1
				break
			}
		}
	}

	// NEAR: varint(addr-near[i]) when addr >= near[i], if cheaper than
	// the best found so far or as cheap as SELF.
	if bestLen > 1 {
		for i := 0; i < ac.nearSize; i++ {
			if addr < ac.near[i] {
				continue
			}
			offLen := VarintLen(addr - ac.near[i])
			if offLen < bestLen || (offLen == bestLen && bestMode == SelfMode) {
				bestLen = offLen
				bestMode = byte(2 + i)
			}
		}
	}

	// HERE: varint(here-addr) when addr <= here.
	if addr <= here {
		hereLen := VarintLen(here - addr)
		if hereLen < bestLen || (hereLen == bestLen && bestMode == SelfMode) {
			bestLen = hereLen
			bestMode = HereMode
		}
	}

	ac.appendEncodedAddress(bestMode, addr, here)
	ac.Update(addr)
	return bestMode
}

func (ac *AddressCache) appendEncodedAddress(mode byte, addr, here uint64) {
	switch mode {
	case SelfMode:
		ac.addressBuf = AppendVarint(ac.addressBuf, addr)
	case HereMode:
		ac.addressBuf = AppendVarint(ac.addressBuf, here-addr)
	default:
		if int(mode-2) < ac.nearSize {
			ac.addressBuf = AppendVarint(ac.addressBuf, addr-ac.near[mode-2])
		} else {
			ac.addressBuf = append(ac.addressBuf, byte(addr%256))
		}
	}
}

// Bytes returns the accumulated encode-side address section.
func (ac *AddressCache) Bytes() []byte { return ac.addressBuf }

// EncodedLen returns the number of bytes EncodeAddress would append for
// addr without mutating cache state or committing to a mode; used by
// the IOPT cost model (spec.md §4.H).
func (ac *AddressCache) EncodedLen(addr, here uint64) int {
	bestLen := VarintLen(addr)

	if ac.sameSize > 0 {
		for j := 0; j < ac.sameSize; j++ {
			if ac.same[j*256+int(addr%256)] == addr {
				return 1
			}
		}
	}
	for i := 0; i < ac.nearSize; i++ {
		if addr < ac.near[i] {
			continue
		}
		if l := VarintLen(addr - ac.near[i]); l < bestLen {
			bestLen = l
		}
	}
	if addr <= here {
		if l := VarintLen(here - addr); l < bestLen {
			bestLen = l
		}
	}
	return bestLen
}
