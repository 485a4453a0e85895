package vcdiff

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderEmitsFileHeaderFirst(t *testing.T) {
	enc, err := NewEncoder(DefaultStreamConfig(), nil)
	require.NoError(t, err)

	yield, err := enc.Step()
	require.NoError(t, err)
	assert.Equal(t, EncodeHaveOutput, yield)

	header := enc.Take()
	require.Len(t, header, MinimumFileSize)
	assert.Equal(t, VCDIFFMagic[:], header[0:3])
	assert.Equal(t, byte(VCDIFFVersion), header[3])
}

func TestEncoderNeedsInputUntilWindowSizeOrEOF(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.WindowSize = 1024
	cfg.DuplicateWindowSize = cfg.WindowSize
	enc, err := NewEncoder(cfg, nil)
	require.NoError(t, err)

	_, err = enc.Step() // header
	require.NoError(t, err)
	enc.Take()

	enc.Write([]byte("only a few bytes, far short of the window size"))
	yield, err := enc.Step()
	require.NoError(t, err)
	assert.Equal(t, EncodeNeedInput, yield, "encoder must wait for a full window or EOF before emitting")

	enc.CloseInput()
	yield, err = enc.Step()
	require.NoError(t, err)
	assert.Equal(t, EncodeHaveOutput, yield, "EOF with partial data should force a final window")
}

func TestEncoderMultiWindowStreamDecodesCorrectly(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.WindowSize = 256
	cfg.DuplicateWindowSize = cfg.WindowSize

	target := bytes.Repeat([]byte("window content repeated across several windows. "), 30)

	enc, err := NewEncoder(cfg, nil)
	require.NoError(t, err)
	enc.Write(target)
	enc.CloseInput()

	var delta bytes.Buffer
	windowCount := 0
	for {
		yield, err := enc.Step()
		require.NoError(t, err)
		delta.Write(enc.Take())
		if yield == EncodeHaveOutput {
			windowCount++
		}
		if yield == EncodeDone {
			break
		}
	}
	assert.Greater(t, windowCount, 1, "expected more than one window for a target several times the window size")

	got, err := Decode(nil, delta.Bytes())
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestEncoderSourceWindowAdvancesAcrossWindows(t *testing.T) {
	cfg := DefaultStreamConfig()
	cfg.WindowSize = 64
	cfg.DuplicateWindowSize = cfg.WindowSize
	cfg.SourceWindowSize = 64
	cfg.SrcOverlapMin = 4

	source := bytes.Repeat([]byte("0123456789"), 50) // 500 bytes
	enc, err := NewEncoder(cfg, NewSliceSourceReader(source, DefaultBlockSize))
	require.NoError(t, err)

	enc.Write(bytes.Repeat([]byte("0123456789"), 50))
	enc.CloseInput()

	var seenOffsets []uint64
	for {
		yield, err := enc.Step()
		require.NoError(t, err)
		enc.Take()
		if enc.srcWritten {
			seenOffsets = append(seenOffsets, enc.srcOff)
		}
		if yield == EncodeDone {
			break
		}
	}

	require.NotEmpty(t, seenOffsets)
	for i := 1; i < len(seenOffsets); i++ {
		assert.GreaterOrEqual(t, seenOffsets[i], seenOffsets[i-1], "source window offset should not regress across windows")
	}
}

func TestEncodeInstructionsPacksAddCopyDoubleOpcode(t *testing.T) {
	target := []byte("Xabcd") // 'X' is the ADD byte, "abcd" is the COPY payload
	addr := NewAddressCache(NearCacheSize, SameCacheSize)
	addr.Reset(nil)

	resolved := []Candidate{
		{TargetPos: 0, Type: Add, Len: 1},
		{TargetPos: 1, Type: Copy, Len: 4, Addr: 2}, // addr != 0 so a zeroed SAME cache can't claim it; NEAR slot 0 (0) ties SELF and wins
	}

	data, inst := encodeInstructions(resolved, target, 4, addr)
	require.Len(t, inst, 1, "ADD size 1 + COPY size 4 mode 2 should pack into a single double opcode")
	assert.Equal(t, byte(187), inst[0])
	assert.Equal(t, []byte("X"), data)
}
