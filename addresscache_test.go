package vcdiff

import "testing"

func TestAddressCacheEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		addrs []uint64
		here  []uint64
	}{
		{
			name:  "ascending addresses",
			addrs: []uint64{0, 1, 2, 3, 10, 20, 30},
			here:  []uint64{0, 5, 10, 15, 20, 30, 40},
		},
		{
			name:  "repeated address triggers SAME mode",
			addrs: []uint64{5, 100, 5, 5, 100},
			here:  []uint64{10, 200, 300, 400, 500},
		},
		{
			name:  "backward jumps favor HERE mode",
			addrs: []uint64{1000, 999, 998, 997},
			here:  []uint64{1000, 1000, 1000, 1000},
		},
		{
			name:  "addr equal to here",
			addrs: []uint64{50},
			here:  []uint64{50},
		},
		{
			name:  "zero address",
			addrs: []uint64{0, 0, 0},
			here:  []uint64{0, 1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := NewAddressCache(NearCacheSize, SameCacheSize)
			enc.Reset(nil)
			modes := make([]byte, len(tt.addrs))
			for i, addr := range tt.addrs {
				modes[i] = enc.EncodeAddress(addr, tt.here[i])
			}

			dec := NewAddressCache(NearCacheSize, SameCacheSize)
			dec.Reset(enc.Bytes())
			for i, want := range tt.addrs {
				got, err := dec.DecodeAddress(tt.here[i], modes[i])
				if err != nil {
					t.Fatalf("step %d: DecodeAddress: %v", i, err)
				}
				if got != want {
					t.Errorf("step %d: got addr %d, want %d (mode %d)", i, got, want, modes[i])
				}
			}
		})
	}
}

func TestAddressCacheTieBreakOrder(t *testing.T) {
	// SAME < NEAR < HERE < SELF when encoded lengths tie.
	ac := NewAddressCache(NearCacheSize, SameCacheSize)
	ac.Reset(nil)

	// Prime a NEAR slot and a SAME slot with the same address so both
	// could serve the next encode of that same address equally well;
	// SAME must win.
	ac.EncodeAddress(42, 42) // near[0] = 42, same[...] = 42

	mode := ac.EncodeAddress(42, 42)
	if int(mode) < 2+NearCacheSize {
		t.Errorf("expected a SAME mode (>= %d), got mode %d", 2+NearCacheSize, mode)
	}
}

func TestAddressCacheRejectsInvalidMode(t *testing.T) {
	ac := NewAddressCache(NearCacheSize, SameCacheSize)
	ac.Reset([]byte{0x01})

	maxMode := byte(1 + NearCacheSize + SameCacheSize)
	_, err := ac.DecodeAddress(100, maxMode+1)
	if err == nil {
		t.Fatal("expected an error for an out-of-range mode")
	}
}

func TestAddressCacheHereModeRejectsOffsetPastPosition(t *testing.T) {
	ac := NewAddressCache(NearCacheSize, SameCacheSize)
	ac.Reset(AppendVarint(nil, 1000)) // offset far larger than "here"

	_, err := ac.DecodeAddress(5, HereMode)
	if err == nil {
		t.Fatal("expected an error when HERE offset exceeds current position")
	}
}

func TestAddressCacheEncodedLenMatchesEncodeAddress(t *testing.T) {
	ac := NewAddressCache(NearCacheSize, SameCacheSize)
	ac.Reset(nil)

	cases := []struct {
		addr, here uint64
	}{
		{0, 0}, {5, 10}, {1000, 2000}, {2000, 1000}, {42, 42},
	}
	for _, c := range cases {
		before := len(ac.Bytes())
		predicted := ac.EncodedLen(c.addr, c.here)
		ac.EncodeAddress(c.addr, c.here)
		actual := len(ac.Bytes()) - before
		if predicted != actual {
			t.Errorf("addr=%d here=%d: EncodedLen predicted %d, EncodeAddress wrote %d", c.addr, c.here, predicted, actual)
		}
	}
}

func TestAddressCacheResetClearsState(t *testing.T) {
	ac := NewAddressCache(NearCacheSize, SameCacheSize)
	ac.Reset(nil)
	ac.EncodeAddress(777, 777)

	ac.Reset(nil)
	// After reset, near/same slots are zeroed, so encoding the same
	// address again should not resolve to a cheaper cached mode than a
	// fresh cache would produce.
	fresh := NewAddressCache(NearCacheSize, SameCacheSize)
	fresh.Reset(nil)

	gotMode := ac.EncodeAddress(777, 777)
	wantMode := fresh.EncodeAddress(777, 777)
	if gotMode != wantMode {
		t.Errorf("reset did not restore fresh-cache behavior: got mode %d, want %d", gotMode, wantMode)
	}
}
