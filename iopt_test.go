package vcdiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIOPT(capacity int) *IOPT {
	return NewIOPT(capacity, NewAddressCache(NearCacheSize, SameCacheSize))
}

func TestIOPTFlushFillsGapsWithAdd(t *testing.T) {
	o := newTestIOPT(0)
	o.Push(Candidate{TargetPos: 10, Type: Copy, Len: 5, Addr: 0})

	out := o.Flush(nil, 20)

	require.Len(t, out, 3)
	assert.Equal(t, Add, out[0].Type)
	assert.Equal(t, 0, out[0].TargetPos)
	assert.Equal(t, 10, out[0].Len)

	assert.Equal(t, Copy, out[1].Type)
	assert.Equal(t, 10, out[1].TargetPos)
	assert.Equal(t, 5, out[1].Len)

	assert.Equal(t, Add, out[2].Type)
	assert.Equal(t, 15, out[2].TargetPos)
	assert.Equal(t, 5, out[2].Len)
}

func TestIOPTPushDropsFullyDominatedCandidate(t *testing.T) {
	o := newTestIOPT(0)
	// A long, cheap COPY covering [0,20).
	o.Push(Candidate{TargetPos: 0, Type: Copy, Len: 20, Addr: 1000})
	// A short ADD fully inside it is strictly worse per byte and should
	// be dropped.
	o.Push(Candidate{TargetPos: 5, Type: Add, Len: 2})

	out := o.Flush(nil, 20)
	require.Len(t, out, 1)
	assert.Equal(t, Copy, out[0].Type)
	assert.Equal(t, 20, out[0].Len)
}

func TestIOPTPushTrimsPartialOverlap(t *testing.T) {
	o := newTestIOPT(0)
	o.Push(Candidate{TargetPos: 0, Type: Copy, Len: 10, Addr: 0})
	// Overlaps [5,15): cheaper per byte (1-byte run vs multi-byte copy
	// addressing) should win the contested range.
	o.Push(Candidate{TargetPos: 5, Type: Run, Len: 10, Byte: 'x'})

	out := o.Flush(nil, 15)
	var total int
	for _, c := range out {
		total += c.Len
	}
	assert.Equal(t, 15, total, "resolved instructions must cover the whole window with no gaps or double coverage")
}

func TestIOPTFullRespectsCapacity(t *testing.T) {
	o := newTestIOPT(2)
	assert.False(t, o.Full())
	o.Push(Candidate{TargetPos: 0, Type: Add, Len: 1})
	o.Push(Candidate{TargetPos: 1, Type: Add, Len: 1})
	assert.True(t, o.Full())
}

func TestIOPTResetClearsPending(t *testing.T) {
	o := newTestIOPT(0)
	o.Push(Candidate{TargetPos: 0, Type: Add, Len: 5})
	o.Reset(100)
	assert.Equal(t, 0, o.Len())
	assert.Equal(t, 100, o.windowLo)
}

func TestIOPTPushIgnoresEmptyOrPreFlushedCandidate(t *testing.T) {
	o := newTestIOPT(0)
	o.Flush(nil, 10) // advances windowLo to 10
	o.Push(Candidate{TargetPos: 0, Type: Add, Len: 5})
	assert.Equal(t, 0, o.Len(), "candidate entirely before windowLo must be ignored")

	o.Push(Candidate{TargetPos: 5, Type: Add, Len: 0})
	assert.Equal(t, 0, o.Len(), "zero-length candidate must be ignored")
}

func TestIOPTFlushBeforeFlushesResolvedPrefixOnly(t *testing.T) {
	o := newTestIOPT(0)
	o.Push(Candidate{TargetPos: 0, Type: Add, Len: 5})
	o.Push(Candidate{TargetPos: 5, Type: Copy, Len: 5, Addr: 0})
	// Straddles the boundary we'll flush at (12): starts before it,
	// ends after it, so it must stay pending rather than being split.
	o.Push(Candidate{TargetPos: 10, Type: Add, Len: 6})

	out := o.FlushBefore(12)
	var total int
	for _, c := range out {
		total += c.Len
	}
	assert.Equal(t, 12, total, "flushed prefix must cover exactly [0,12), gap-filling the undecided tail with an Add")
	assert.Equal(t, 12, o.windowLo)
	assert.Equal(t, 1, o.Len(), "the straddling candidate must remain pending")

	rest := o.Flush(nil, 16)
	var restTotal int
	for _, c := range rest {
		restTotal += c.Len
	}
	assert.Equal(t, 4, restTotal, "remaining flush must cover exactly [12,16), front-trimmed by Flush")
}

func TestTrimCandidateFrontAdjustsCopyAddr(t *testing.T) {
	c := Candidate{TargetPos: 10, Type: Copy, Len: 10, Addr: 100}
	trimmed := trimCandidateFront(c, 4)
	assert.Equal(t, 14, trimmed.TargetPos)
	assert.Equal(t, 6, trimmed.Len)
	assert.Equal(t, uint64(104), trimmed.Addr)
}

func TestTrimCandidateEnd(t *testing.T) {
	c := Candidate{TargetPos: 10, Type: Add, Len: 10}
	trimmed := trimCandidateEnd(c, 15)
	assert.Equal(t, 5, trimmed.Len)
}
