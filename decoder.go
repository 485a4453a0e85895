package vcdiff

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Decoder is the resumable decode state machine (spec.md §4.L):
// FileHead → WinHead → WinBody → WinVerify → FileEnd. Unlike the
// teacher's original all-at-once ParseDelta/decodeWindow pair, Step
// consumes whatever bytes are currently buffered and yields instead of
// blocking, so a driver can feed it incrementally.
type Decoder struct {
	cfg    StreamConfig
	source SourceReader
	cache  *SourceCache
	addr   *AddressCache
	sec    Secondary

	state    decoderState
	buf      bytes.Buffer
	header   Header
	gotSec   bool
	output   bytes.Buffer
	done     bool
	checksum bool
}

type decoderState int

const (
	decStateFileHead decoderState = iota
	decStateWinHead
	decStateWinBody
	decStateFileEnd
)

// DecodeYield reports why Step returned without finishing the stream.
type DecodeYield int

const (
	YieldNone DecodeYield = iota
	YieldNeedInput
	YieldHaveOutput
	YieldNeedSourceBlock
	YieldDone
)

// NewDecoder constructs a decoder over an optional source (nil for a
// sourceless stream; every window must then omit VCD_SOURCE).
func NewDecoder(cfg StreamConfig, source SourceReader) (*Decoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Decoder{
		cfg:    cfg,
		source: source,
		addr:   NewAddressCache(NearCacheSize, SameCacheSize),
		state:  decStateFileHead,
	}
	if source != nil {
		d.cache = NewSourceCache(source)
	}
	return d, nil
}

// Write feeds more delta bytes into the decoder's input buffer.
func (d *Decoder) Write(p []byte) {
	d.buf.Write(p)
}

// Step advances the state machine as far as it can with currently
// buffered input, returning a yield signal. YieldHaveOutput means
// Take() has reconstructed bytes ready; call Step again afterward.
func (d *Decoder) Step() (DecodeYield, error) {
	switch d.state {
	case decStateFileHead:
		if d.buf.Len() < MinimumFileSize {
			return YieldNeedInput, nil
		}
		reader := bytes.NewReader(d.buf.Bytes())
		header, err := ReadFileHeader(reader)
		if err != nil {
			return YieldNone, wrapDriver(err, "decoding file header")
		}
		d.buf.Next(len(d.buf.Bytes()) - reader.Len())
		d.header = header

		if header.Indicator&VCDSecondary != 0 {
			sec, err := LookupSecondary(header.SecID)
			if err != nil {
				return YieldNone, err
			}
			d.sec = sec
		}
		logrus.WithFields(logrus.Fields{
			"secondary":  header.SecID,
			"app_header": len(header.AppHeader),
		}).Debug("vcdiff: decoded file header")

		d.state = decStateWinHead
		return d.Step()

	case decStateWinHead, decStateWinBody:
		if d.buf.Len() == 0 {
			d.state = decStateFileEnd
			return d.Step()
		}
		reader := bytes.NewReader(d.buf.Bytes())
		win, err := DecodeWindow(reader, d.sec)
		if err == io.EOF {
			d.state = decStateFileEnd
			return d.Step()
		}
		if err != nil {
			// An oversized window or an unsupported feature is final no
			// matter how many bytes follow. Any other parse error is
			// treated as a window not yet fully buffered.
			if errors.Is(err, ErrWindowTooLarge) || errors.Is(err, ErrUnsupported) {
				return YieldNone, wrapDriver(err, "decoding window header")
			}
			return YieldNeedInput, nil
		}
		d.buf.Next(len(d.buf.Bytes()) - reader.Len())

		target, err := d.decodeWindow(win)
		if err != nil {
			return YieldNone, wrapDriver(err, "decoding window")
		}
		d.output.Write(target)
		return YieldHaveOutput, nil

	case decStateFileEnd:
		d.done = true
		return YieldDone, nil
	}
	return YieldNone, fmt.Errorf("decoder in unknown state %d", d.state)
}

// Take drains and returns whatever reconstructed output is buffered.
func (d *Decoder) Take() []byte {
	out := make([]byte, d.output.Len())
	copy(out, d.output.Bytes())
	d.output.Reset()
	return out
}

// decodeWindow executes one window's instructions against the source
// and the accumulating target, following spec.md §4.L exactly:
// self-overlapping COPY is byte-by-byte (RLE semantics), never a bulk
// memmove.
func (d *Decoder) decodeWindow(window *Window) ([]byte, error) {
	d.addr.Reset(window.AddressSection)

	target := make([]byte, 0, window.TargetWindowLength)

	var sourceSegment []byte
	if window.WinIndicator&VCDSource != 0 {
		if d.cache == nil {
			return nil, fmt.Errorf("window declares VCD_SOURCE but no source was configured: %w", ErrInvalidWindow)
		}
		seg, err := d.readSourceSegment(window.SourceSegmentPosition, window.SourceSegmentSize)
		if err != nil {
			return nil, err
		}
		sourceSegment = seg
	}
	sourceLength := uint64(len(sourceSegment))

	instructions, err := parseInstructions(window.InstructionSection, window.DataSection)
	if err != nil {
		return nil, err
	}

	for _, inst := range instructions {
		switch inst.Type {
		case NoOp:
			continue

		case Add:
			if uint64(len(inst.Data)) != inst.Size {
				return nil, ErrInvalidFormat
			}
			target = append(target, inst.Data...)

		case Copy:
			here := uint64(len(target)) + sourceLength
			addr, err := d.addr.DecodeAddress(here, inst.Mode)
			if err != nil {
				return nil, err
			}
			if addr < sourceLength {
				end := addr + inst.Size
				if end > sourceLength {
					return nil, errOutOfBounds("COPY", addr, inst.Size, sourceLength)
				}
				target = append(target, sourceSegment[addr:end]...)
			} else {
				targetAddr := addr - sourceLength
				if targetAddr >= uint64(len(target)) {
					return nil, fmt.Errorf("COPY instruction address %d references target position %d but target only has %d bytes: %w",
						addr, targetAddr, len(target), ErrInvalidWindow)
				}
				for i := uint64(0); i < inst.Size; i++ {
					pos := targetAddr + i
					if pos >= uint64(len(target)) {
						return nil, fmt.Errorf("COPY instruction would read beyond target bounds: position %d, target size %d: %w",
							pos, len(target), ErrInvalidWindow)
					}
					target = append(target, target[pos])
				}
			}

		case Run:
			if len(inst.Data) != 1 {
				return nil, ErrInvalidFormat
			}
			runByte := inst.Data[0]
			for i := uint64(0); i < inst.Size; i++ {
				target = append(target, runByte)
			}

		default:
			return nil, ErrInvalidFormat
		}
	}

	if window.HasChecksum {
		computed := ComputeChecksum(1, target)
		if computed != window.Checksum && d.cfg.Checksum == ChecksumEnabled {
			return nil, fmt.Errorf("checksum validation failed: expected 0x%08x, got 0x%08x: %w", window.Checksum, computed, ErrChecksumMismatch)
		}
	}

	return target, nil
}

// readSourceSegment materializes the [pos, pos+size) slice of the
// source, pulling whatever blocks the cache needs. Returns Io if a
// block the cache reports unavailable is never supplied (a purely
// synchronous driver, the common case, never sees this).
func (d *Decoder) readSourceSegment(pos, size uint64) ([]byte, error) {
	bs := int64(d.cache.BlockSize())
	out := make([]byte, 0, size)
	start := int64(pos)
	end := start + int64(size)

	for off := start; off < end; {
		blockNum := off / bs
		data, suspended, err := d.cache.GetBlock(blockNum)
		if err != nil {
			return nil, fmt.Errorf("fetching source block %d: %w", blockNum, ErrIo)
		}
		if suspended {
			return nil, fmt.Errorf("source block %d not available from a synchronous reader: %w", blockNum, ErrIo)
		}
		blockStart := blockNum * bs
		relStart := off - blockStart
		relEnd := int64(len(data))
		if blockStart+relEnd > end {
			relEnd = end - blockStart
		}
		if relStart >= int64(len(data)) {
			return nil, fmt.Errorf("source segment [%d,%d) extends past end of source: %w", start, end, ErrInvalidWindow)
		}
		out = append(out, data[relStart:relEnd]...)
		off = blockStart + relEnd
	}
	return out, nil
}

// parseInstructions decodes the instruction stream against the data
// section, leaving COPY addresses undecoded (decoded lazily during
// execution since address decoding must happen in instruction order
// interleaved with cache updates).
func parseInstructions(instructionData []byte, dataSection []byte) ([]RuntimeInstruction, error) {
	stream := bytes.NewReader(instructionData)
	var instructions []RuntimeInstruction
	dataIndex := 0
	offset := 0

	for {
		code, err := stream.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading instruction code at offset %d: %v: %w", offset, err, ErrInvalidWindow)
		}

		for slot := 0; slot < 2; slot++ {
			instr := DefaultCodeTable.Get(code, slot)
			if instr.Type == NoOp {
				continue
			}

			size := uint64(instr.Size)
			if size == 0 {
				size, err = ReadVarint(stream)
				if err != nil {
					return nil, fmt.Errorf("error reading size for %s instruction at offset %d: %v", instr.Type, offset, err)
				}
			}

			runtimeInst := RuntimeInstruction{Type: instr.Type, Size: size, Mode: instr.Mode}

			switch instr.Type {
			case Add:
				if dataIndex+int(size) > len(dataSection) {
					return nil, errDataOverrun("ADD", offset, int(size), len(dataSection)-dataIndex)
				}
				runtimeInst.Data = append([]byte(nil), dataSection[dataIndex:dataIndex+int(size)]...)
				dataIndex += int(size)

			case Run:
				if dataIndex >= len(dataSection) {
					return nil, fmt.Errorf("RUN instruction at offset %d requires 1 byte but no data available: %w", offset, ErrInvalidWindow)
				}
				runtimeInst.Data = []byte{dataSection[dataIndex]}
				dataIndex++

			case Copy:
				runtimeInst.Mode = instr.Mode
			}

			instructions = append(instructions, runtimeInst)
		}
		offset++
	}

	return instructions, nil
}

// ResolveAddresses walks instructions in order and fills in the Addr
// field of every Copy instruction, decoding the address section against
// a fresh AddressCache the same way decodeWindow does. Used by
// ParseDelta, which inspects a window's instructions without executing
// them against any actual source/target bytes.
func ResolveAddresses(instructions []RuntimeInstruction, addressSection []byte, sourceLength uint64) ([]RuntimeInstruction, error) {
	addr := NewAddressCache(NearCacheSize, SameCacheSize)
	addr.Reset(addressSection)

	out := make([]RuntimeInstruction, len(instructions))
	var targetLen uint64
	for i, inst := range instructions {
		out[i] = inst
		if inst.Type == Copy {
			here := targetLen + sourceLength
			a, err := addr.DecodeAddress(here, inst.Mode)
			if err != nil {
				return nil, err
			}
			out[i].Addr = a
		}
		targetLen += inst.Size
	}
	return out, nil
}
