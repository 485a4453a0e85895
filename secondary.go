package vcdiff

import (
	"fmt"
	"sync"
)

// Secondary is the per-section compression capability (spec.md §4.J).
// Concrete bindings live in secondary_*.go.
type Secondary interface {
	ID() byte
	Compress(section []byte) ([]byte, error)
	Decompress(section []byte) ([]byte, error)
	// Worthwhile is a cheap heuristic — never a full trial compression
	// — estimating whether compressing section is likely to pay off.
	Worthwhile(section []byte) bool
}

// secondaryRegistry maps a wire ID to its binding, used by the decoder
// to resolve the secondary recorded in the file header.
var secondaryRegistry = map[byte]Secondary{}

// RegisterSecondary makes a Secondary binding available for decode-side
// lookup by ID. Bindings register themselves from an init() in their
// own file.
func RegisterSecondary(s Secondary) {
	secondaryRegistry[s.ID()] = s
}

// LookupSecondary resolves a wire secondary ID, or ErrUnsupported if no
// binding is registered for it (spec.md §7, "unknown secondary ID is a
// fatal Unsupported").
func LookupSecondary(id byte) (Secondary, error) {
	if id == 0 {
		return nil, nil
	}
	s, ok := secondaryRegistry[id]
	if !ok {
		return nil, fmt.Errorf("unknown secondary compressor id 0x%02x: %w", id, ErrUnsupported)
	}
	return s, nil
}

// secondaryNone is the passthrough binding for ID 0x00; it is never
// registered (ID 0 means "no VCD_SECONDARY bit"), but StreamConfig
// callers may reference it explicitly to mean "no secondary".
type secondaryNone struct{}

func (secondaryNone) ID() byte                           { return 0 }
func (secondaryNone) Compress(b []byte) ([]byte, error)   { return b, nil }
func (secondaryNone) Decompress(b []byte) ([]byte, error) { return b, nil }
func (secondaryNone) Worthwhile(b []byte) bool            { return false }

// NoSecondary is the shared no-op binding.
var NoSecondary Secondary = secondaryNone{}

// dispatchSections runs a per-section transform (compress or
// decompress) concurrently across DATA/INST/ADDR, matching §5's
// "optional parallelism ... dispatches DATA/INST/ADDR secondary
// compression across at most 3 goroutines and joins with a
// sync.WaitGroup before framing". Used by both the encoder and the
// decoder; the transform itself is supplied by the caller.
func dispatchSections(data, inst, addr []byte, transform func(i int, b []byte) ([]byte, error)) (outData, outInst, outAddr []byte, err error) {
	in := [3][]byte{data, inst, addr}
	var outs [3][]byte
	var errs [3]error

	var wg sync.WaitGroup
	wg.Add(3)
	for i := range in {
		i := i
		go func() {
			defer wg.Done()
			outs[i], errs[i] = transform(i, in[i])
		}()
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, nil, nil, e
		}
	}
	return outs[0], outs[1], outs[2], nil
}
