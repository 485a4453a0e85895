package vcdiff

import "container/list"

// SourceReader is supplied by the driver (spec.md §6, "Source
// reader"). GetBlock returns ErrSourceBlockUnavailable when the block
// cannot be furnished synchronously; the encoder state machine then
// yields NeedSourceBlock to its caller.
type SourceReader interface {
	GetBlock(n int64) ([]byte, error)
	BlockSize() int
	// Len reports the total source length if known; -1 if unknown.
	Len() int64
}

// ErrSourceBlockUnavailable signals a cache miss on a reader that
// cannot serve the block synchronously.
var ErrSourceBlockUnavailable = errWrap("source block not available synchronously")

func errWrap(msg string) error { return &simpleErr{msg} }

type simpleErr struct{ msg string }

func (e *simpleErr) Error() string { return e.msg }

// sliceSourceReader adapts an in-memory []byte to SourceReader; this
// is what both Encode/Decode convenience wrappers and most tests use,
// since it always serves synchronously (spec.md §4.F, "if the reader
// is synchronous, the cache pulls").
type sliceSourceReader struct {
	data      []byte
	blockSize int
}

// NewSliceSourceReader wraps an in-memory source for synchronous block
// fetches.
func NewSliceSourceReader(data []byte, blockSize int) SourceReader {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &sliceSourceReader{data: data, blockSize: blockSize}
}

func (s *sliceSourceReader) GetBlock(n int64) ([]byte, error) {
	start := n * int64(s.blockSize)
	if start >= int64(len(s.data)) {
		return nil, nil
	}
	end := start + int64(s.blockSize)
	if end > int64(len(s.data)) {
		end = int64(len(s.data))
	}
	return s.data[start:end], nil
}

func (s *sliceSourceReader) BlockSize() int { return s.blockSize }
func (s *sliceSourceReader) Len() int64     { return int64(len(s.data)) }

// cacheSlot is one of MaxLRU fixed buffers carved out of a single
// preallocated arena (spec.md §4.F, "no per-block allocation").
type cacheSlot struct {
	block int64
	n     int // bytes actually populated (may be < blockSize at EOF)
}

// SourceCache is an LRU cache over source blocks, backed by one
// preallocated arena partitioned into MaxLRU slots (spec.md §3, §4.F).
type SourceCache struct {
	reader    SourceReader
	blockSize int
	arena     []byte
	slots     []cacheSlot
	order     *list.List // list.Element.Value is slot index, front = most recent
	index     map[int64]*list.Element
}

// NewSourceCache constructs a cache over reader with MaxLRU resident
// blocks of reader.BlockSize() bytes each.
func NewSourceCache(reader SourceReader) *SourceCache {
	bs := reader.BlockSize()
	if bs <= 0 {
		bs = DefaultBlockSize
	}
	return &SourceCache{
		reader:    reader,
		blockSize: bs,
		arena:     make([]byte, bs*MaxLRU),
		slots:     make([]cacheSlot, MaxLRU),
		order:     list.New(),
		index:     make(map[int64]*list.Element),
	}
}

// GetBlock returns the bytes of source block n, pulling and caching it
// on a miss. It returns (nil, nil, false) when the underlying reader
// cannot serve the block synchronously — the caller (the encoder or
// decoder state machine) must then yield NeedSourceBlock(n) to its
// driver and retry after Supply is called.
func (c *SourceCache) GetBlock(n int64) (data []byte, suspended bool, err error) {
	if elem, ok := c.index[n]; ok {
		c.order.MoveToFront(elem)
		slotIdx := elem.Value.(int)
		s := c.slots[slotIdx]
		return c.arena[slotIdx*c.blockSize : slotIdx*c.blockSize+s.n], false, nil
	}

	raw, err := c.reader.GetBlock(n)
	if err != nil {
		if err == ErrSourceBlockUnavailable {
			return nil, true, nil
		}
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil // past EOF
	}

	slotIdx := c.evictSlot()
	copy(c.arena[slotIdx*c.blockSize:], raw)
	c.slots[slotIdx] = cacheSlot{block: n, n: len(raw)}
	elem := c.order.PushFront(slotIdx)
	c.index[n] = elem

	return c.arena[slotIdx*c.blockSize : slotIdx*c.blockSize+len(raw)], false, nil
}

// Supply installs a block fetched asynchronously by the driver after a
// NeedSourceBlock yield, so the next GetBlock(n) call succeeds.
func (c *SourceCache) Supply(n int64, data []byte) {
	if elem, ok := c.index[n]; ok {
		c.order.MoveToFront(elem)
		slotIdx := elem.Value.(int)
		copy(c.arena[slotIdx*c.blockSize:], data)
		c.slots[slotIdx] = cacheSlot{block: n, n: len(data)}
		return
	}
	slotIdx := c.evictSlot()
	copy(c.arena[slotIdx*c.blockSize:], data)
	c.slots[slotIdx] = cacheSlot{block: n, n: len(data)}
	elem := c.order.PushFront(slotIdx)
	c.index[n] = elem
}

// evictSlot returns a free slot index, evicting the LRU entry if the
// cache is full.
func (c *SourceCache) evictSlot() int {
	if c.order.Len() < MaxLRU {
		return c.order.Len()
	}
	back := c.order.Back()
	slotIdx := back.Value.(int)
	evictedBlock := c.slots[slotIdx].block
	delete(c.index, evictedBlock)
	c.order.Remove(back)
	return slotIdx
}

// BlockSize reports the cache's block granularity.
func (c *SourceCache) BlockSize() int { return c.blockSize }
