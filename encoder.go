package vcdiff

import (
	"bytes"

	"github.com/sirupsen/logrus"
)

// Encoder is the streaming encode state machine (spec.md §4.K):
// StreamInit → WindowStart → Matching → IoptDraining → WindowEmit →
// StreamEnd. Like Decoder, it operates on buffered input and yields
// instead of blocking; the convenience Encode() function in vcdiff.go
// drives it synchronously for the common in-memory case.
type Encoder struct {
	cfg     StreamConfig
	source  SourceReader
	cache   *SourceCache
	addr    *AddressCache
	matcher *Matcher
	large   *LargeHashTable // persistent source-match table, reused every window (see NewMatchTables)
	small   *SmallHashTable // persistent target-self-match table, reused every window
	iopt    *IOPT
	sec     Secondary

	state      encoderState
	in         bytes.Buffer
	eof        bool
	out        bytes.Buffer
	srcOff     uint64 // start of the most recently chosen source window
	srcEnd     uint64 // end of the most recently chosen source window
	srcWritten bool
	headerSent bool
	done       bool
}

type encoderState int

const (
	encStateInit encoderState = iota
	encStateWindow
	encStateEnd
)

// NewEncoder constructs an encoder. source may be nil for a sourceless
// (self-referential only) stream.
func NewEncoder(cfg StreamConfig, source SourceReader) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	profile := ProfileForLevel(cfg.Level)
	e := &Encoder{
		cfg:     cfg,
		source:  source,
		addr:    NewAddressCache(NearCacheSize, SameCacheSize),
		matcher: NewMatcher(profile, cfg),
		sec:     cfg.Secondary,
	}
	e.large, e.small = NewMatchTables(profile, cfg)
	e.iopt = NewIOPT(cfg.IoptCapacity, e.addr)
	if source != nil {
		e.cache = NewSourceCache(source)
	}
	return e, nil
}

// Write feeds more target bytes to encode.
func (e *Encoder) Write(p []byte) {
	e.in.Write(p)
}

// CloseInput signals EOF: no more target bytes will be written.
func (e *Encoder) CloseInput() {
	e.eof = true
}

// EncodeYield mirrors DecodeYield for the encode side.
type EncodeYield int

const (
	EncodeNeedInput EncodeYield = iota
	EncodeHaveOutput
	EncodeDone
)

// Step advances the encoder as far as currently buffered input allows.
func (e *Encoder) Step() (EncodeYield, error) {
	if !e.headerSent {
		var secID byte
		if e.sec != nil {
			secID = e.sec.ID()
		}
		if err := WriteFileHeader(&e.out, secID, e.cfg.AppHeader); err != nil {
			return EncodeDone, err
		}
		e.headerSent = true
		logrus.WithField("secondary", secID).Debug("vcdiff: emitted file header")
		return EncodeHaveOutput, nil
	}

	if e.state == encStateEnd {
		return EncodeDone, nil
	}

	windowSize := e.cfg.WindowSize
	if e.in.Len() < windowSize && !e.eof {
		return EncodeNeedInput, nil
	}
	if e.in.Len() == 0 && e.eof {
		e.state = encStateEnd
		return EncodeDone, nil
	}

	n := e.in.Len()
	if n > windowSize {
		n = windowSize
	}
	target := make([]byte, n)
	copy(target, e.in.Bytes()[:n])
	e.in.Next(n)

	if err := e.encodeWindow(target); err != nil {
		return EncodeDone, err
	}

	if e.in.Len() == 0 && e.eof {
		e.state = encStateEnd
	}
	return EncodeHaveOutput, nil
}

// Take drains and returns whatever encoded bytes are buffered.
func (e *Encoder) Take() []byte {
	out := make([]byte, e.out.Len())
	copy(out, e.out.Bytes())
	e.out.Reset()
	return out
}

// encodeWindow runs one window through match-finding, IOPT, code-table
// packing and address encoding, then frames and appends it to e.out.
func (e *Encoder) encodeWindow(target []byte) error {
	var sourceWindow []byte
	hasSource := false
	if e.source != nil && e.cache != nil {
		sourceWindow = e.selectSourceWindow(target)
		hasSource = len(sourceWindow) > 0
	}

	e.addr.Reset(nil)
	e.iopt.Reset(0)

	candidates := e.matcher.Find(sourceWindow, target, e.large, e.small)
	var resolved []Candidate
	for _, c := range candidates {
		e.iopt.Push(c)
		if e.iopt.Full() {
			// spec.md §4.K: Matching -> IoptDraining on IOPT capacity.
			// Flush the eldest committed prefix (everything strictly
			// before this candidate) so the queue never grows past
			// IoptCapacity mid-window.
			resolved = append(resolved, e.iopt.FlushBefore(c.TargetPos)...)
		}
	}
	resolved = append(resolved, e.iopt.Flush(target, len(target))...)

	data, inst := encodeInstructions(resolved, target, uint64(len(sourceWindow)), e.addr)

	var checksum uint32
	hasChecksum := e.cfg.Checksum != ChecksumDisabled
	if hasChecksum {
		checksum = ComputeChecksum(1, target)
	}

	plan := WindowPlan{
		HasSource:   hasSource,
		SourceSize:  uint64(len(sourceWindow)),
		SourceOff:   e.srcOff,
		TargetLen:   uint64(len(target)),
		Data:        data,
		Inst:        inst,
		Addr:        e.addr.Bytes(),
		HasChecksum: hasChecksum,
		Checksum:    checksum,
	}

	logrus.WithFields(logrus.Fields{
		"target_len":    len(target),
		"source_len":    len(sourceWindow),
		"instructions":  len(resolved),
		"inst_bytes":    len(inst),
		"data_bytes":    len(data),
	}).Debug("vcdiff: emitting window")

	return EncodeWindow(&e.out, plan, e.sec)
}

// selectSourceWindow picks [src_off, src_off+W_s) for this target
// window: a block of up to SourceWindowSize bytes starting at offset 0
// for the first window, and afterwards at the previous source window's
// end moved back by SrcOverlapMin
// (spec.md §4.K, "never overlaps the previous source window by less
// than src_overlap_min"). A full match-driven sliding search is left
// to the driver for advanced use; this policy is the straightforward
// one a single-pass streaming encoder can apply without look-ahead.
func (e *Encoder) selectSourceWindow(target []byte) []byte {
	srcLen := e.source.Len()
	if srcLen <= 0 {
		return nil
	}
	want := int64(e.cfg.SourceWindowSize)
	if want <= 0 {
		want = int64(len(target))
	}

	var off int64
	if e.srcWritten {
		off = int64(e.srcEnd) - int64(e.cfg.SrcOverlapMin)
		if off < 0 {
			off = 0
		}
	}
	if off >= srcLen {
		off = srcLen - 1
	}
	if off < 0 {
		off = 0
	}
	if off+want > srcLen {
		want = srcLen - off
	}
	if want <= 0 {
		return nil
	}

	bs := int64(e.cache.BlockSize())
	out := make([]byte, 0, want)
	for o := off; o < off+want; {
		blockNum := o / bs
		data, suspended, err := e.cache.GetBlock(blockNum)
		if err != nil || suspended || data == nil {
			break
		}
		blockStart := blockNum * bs
		relStart := o - blockStart
		relEnd := int64(len(data))
		if blockStart+relEnd > off+want {
			relEnd = off + want - blockStart
		}
		if relStart >= relEnd {
			break
		}
		out = append(out, data[relStart:relEnd]...)
		o = blockStart + relEnd
	}

	e.srcOff = uint64(off)
	e.srcEnd = uint64(off) + uint64(len(out))
	e.srcWritten = true
	return out
}

// encodeInstructions packs resolved Candidates into the DATA and INST
// sections via the default code table (spec.md §4.C). A COPY's address
// mode is only known once EncodeAddress has actually run against the
// live cache state, so double-opcode packing for an ADD immediately
// followed by a COPY looks up EncodeDouble with the real mode, not a
// guess — trying every mode ahead of the real encode would risk
// emitting a double opcode for a mode the cache didn't actually choose.
func encodeInstructions(resolved []Candidate, target []byte, sourceLen uint64, addr *AddressCache) (data, inst []byte) {
	ct := DefaultCodeTable
	i := 0
	for i < len(resolved) {
		c := resolved[i]

		if c.Type == Add && c.Len >= 1 && c.Len <= 4 && i+1 < len(resolved) && resolved[i+1].Type == Copy {
			n := resolved[i+1]
			here := uint64(n.TargetPos) + sourceLen
			mode := addr.EncodeAddress(n.Addr, here)

			if code, ok := ct.EncodeDouble(Add, c.Len, 0, Copy, n.Len, mode); ok {
				inst = append(inst, code)
				data = appendInstructionData(data, c, target)
				i += 2
				continue
			}

			// No double opcode for this exact (size, mode) pair in
			// the default table; the address is already committed, so
			// emit both as singles using the mode already chosen.
			codeA, sizeInCodeA, _ := ct.EncodeSingle(Add, c.Len, 0)
			inst = append(inst, codeA)
			if !sizeInCodeA {
				inst = AppendVarint(inst, uint64(c.Len))
			}
			data = appendInstructionData(data, c, target)

			codeB, sizeInCodeB, _ := ct.EncodeSingle(Copy, n.Len, mode)
			inst = append(inst, codeB)
			if !sizeInCodeB {
				inst = AppendVarint(inst, uint64(n.Len))
			}
			i += 2
			continue
		}

		if c.Type == Copy {
			here := uint64(c.TargetPos) + sourceLen
			mode := addr.EncodeAddress(c.Addr, here)
			code, sizeInCode, _ := ct.EncodeSingle(Copy, c.Len, mode)
			inst = append(inst, code)
			if !sizeInCode {
				inst = AppendVarint(inst, uint64(c.Len))
			}
			i++
			continue
		}

		code, sizeInCode, _ := ct.EncodeSingle(c.Type, c.Len, 0)
		inst = append(inst, code)
		if !sizeInCode {
			inst = AppendVarint(inst, uint64(c.Len))
		}
		data = appendInstructionData(data, c, target)
		i++
	}
	return data, inst
}

func appendInstructionData(data []byte, c Candidate, target []byte) []byte {
	switch c.Type {
	case Add:
		return append(data, target[c.TargetPos:c.End()]...)
	case Run:
		return append(data, c.Byte)
	default:
		return data
	}
}

