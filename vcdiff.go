// Package vcdiff implements an RFC 3284 (VCDIFF) delta compression
// engine: match-finding, instruction optimization, the VCDIFF wire
// codec, and streaming encode/decode state machines.
package vcdiff

import (
	"bytes"
	"errors"
	"io"
)

// Encode produces a VCDIFF delta reconstructing target given source,
// using cfg (zero value is invalid; see DefaultStreamConfig). This is
// the synchronous convenience wrapper around Encoder for the common
// case where both source and target are fully in memory.
func Encode(source, target []byte, cfg StreamConfig) ([]byte, error) {
	var reader SourceReader
	if len(source) > 0 {
		bs := cfg.BlockSize
		if bs <= 0 {
			bs = DefaultBlockSize
		}
		reader = NewSliceSourceReader(source, bs)
	}

	enc, err := NewEncoder(cfg, reader)
	if err != nil {
		return nil, err
	}

	enc.Write(target)
	enc.CloseInput()

	var out bytes.Buffer
	for {
		yield, err := enc.Step()
		if err != nil {
			return nil, err
		}
		out.Write(enc.Take())
		if yield == EncodeDone {
			break
		}
	}
	return out.Bytes(), nil
}

// Decode reconstructs the target bytes described by delta given
// source. This is the synchronous convenience wrapper around Decoder
// for the common case where both source and delta are fully in
// memory; decoding never suspends on NeedSourceBlock when source is a
// plain []byte.
func Decode(source []byte, delta []byte) ([]byte, error) {
	var reader SourceReader
	if len(source) > 0 {
		reader = NewSliceSourceReader(source, DefaultBlockSize)
	}

	dec, err := NewDecoder(DefaultStreamConfig(), reader)
	if err != nil {
		return nil, err
	}

	dec.Write(delta)

	var out bytes.Buffer
	for {
		yield, err := dec.Step()
		if err != nil {
			return nil, err
		}
		out.Write(dec.Take())
		if yield == YieldDone {
			break
		}
		if yield == YieldNeedInput {
			// All delta bytes were already supplied; a NeedInput here
			// means the stream is truncated mid-window.
			return nil, ErrInvalidWindow
		}
	}
	return out.Bytes(), nil
}

// ParseDelta parses a VCDIFF delta into its structured form (header,
// windows, flattened instruction list) without reconstructing target
// bytes. Used by the CLI's header/headers/parse/analyze subcommands,
// and by tests that assert on wire-level structure rather than output.
func ParseDelta(delta []byte) (*ParsedDelta, error) {
	if len(delta) < MinimumFileSize {
		return nil, ErrInvalidFormat
	}

	parsed := &ParsedDelta{}
	reader := bytes.NewReader(delta)

	header, err := ReadFileHeader(reader)
	if err != nil {
		return nil, err
	}
	parsed.Header = header

	var sec Secondary
	if header.Indicator&VCDSecondary != 0 {
		sec, err = LookupSecondary(header.SecID)
		if err != nil {
			return nil, err
		}
	}

	for {
		window, err := DecodeWindow(reader, sec)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		parsed.Windows = append(parsed.Windows, *window)

		instructions, err := parseInstructions(window.InstructionSection, window.DataSection)
		if err != nil {
			return nil, err
		}
		instructions, err = ResolveAddresses(instructions, window.AddressSection, window.SourceSegmentSize)
		if err != nil {
			return nil, err
		}
		parsed.Instructions = append(parsed.Instructions, instructions...)
	}

	return parsed, nil
}
