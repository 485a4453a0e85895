package vcdiff

import "sort"

// IOPT is the instruction optimizer (spec.md §4.H): a bounded queue of
// pending candidate instructions, positioned by absolute target
// offset, kept free of overlaps by resolving every insertion against
// whatever is already pending before it is accepted.
type IOPT struct {
	capacity int
	pending  []Candidate
	addrs    *AddressCache
	windowLo int // absolute target position already flushed
}

// NewIOPT constructs an IOPT queue. capacity == 0 means unbounded;
// addrs supplies the cost model (EncodedLen) used to compare Copy
// candidates during overlap resolution (spec.md §4.H).
func NewIOPT(capacity int, addrs *AddressCache) *IOPT {
	return &IOPT{capacity: capacity, addrs: addrs}
}

// cost estimates the wire cost of a candidate in bytes: the size
// varint plus, for Copy, the cheapest address encoding at its target
// position (spec.md §4.H, "cost estimate").
func (o *IOPT) cost(c Candidate) int {
	c1 := VarintLen(uint64(c.Len))
	switch c.Type {
	case Copy:
		here := uint64(c.TargetPos)
		return c1 + o.addrs.EncodedLen(c.Addr, here)
	case Run:
		return c1 + 1
	default: // Add
		return c1 + c.Len
	}
}

// Push inserts a new candidate, resolving overlaps against whatever is
// already pending (spec.md §4.H):
//   - entirely dominated and not cheaper: dropped.
//   - strictly dominates an existing entry (covers it and is cheaper
//     per covered byte): the dominated entries are erased.
//   - partial overlap: both are trimmed at the overlap boundary, the
//     cheaper contribution kept on each side.
func (o *IOPT) Push(c Candidate) {
	if c.Len <= 0 || c.End() <= o.windowLo {
		return
	}
	if c.TargetPos < o.windowLo {
		trim := o.windowLo - c.TargetPos
		c = trimCandidateFront(c, trim)
		if c.Len <= 0 {
			return
		}
	}

	newCost := o.cost(c)
	newDensity := float64(newCost) / float64(c.Len)

	kept := o.pending[:0]
	accepted := true

	for _, p := range o.pending {
		if p.End() <= c.TargetPos || p.TargetPos >= c.End() {
			kept = append(kept, p)
			continue
		}

		pCost := o.cost(p)
		pDensity := float64(pCost) / float64(p.Len)

		switch {
		case c.TargetPos <= p.TargetPos && c.End() >= p.End():
			// c fully covers p.
			if newDensity <= pDensity {
				continue // p dropped, c dominates
			}
			kept = append(kept, p)
			accepted = false

		case p.TargetPos <= c.TargetPos && p.End() >= c.End():
			// p fully covers c.
			if pDensity <= newDensity {
				kept = append(kept, p)
				accepted = false
				continue
			}
			continue // c dominates, p dropped

		default:
			// Partial overlap: keep whichever is cheaper per byte on
			// the contested range, trim the other to its exclusive
			// remainder.
			if newDensity <= pDensity {
				if p.TargetPos < c.TargetPos {
					trimmed := trimCandidateEnd(p, c.TargetPos)
					if trimmed.Len > 0 {
						kept = append(kept, trimmed)
					}
				} else {
					trimmed := trimCandidateFront(p, c.End()-p.TargetPos)
					if trimmed.Len > 0 {
						kept = append(kept, trimmed)
					}
				}
			} else {
				kept = append(kept, p)
				if c.TargetPos < p.TargetPos {
					c = trimCandidateEnd(c, p.TargetPos)
				} else {
					c = trimCandidateFront(c, p.End()-c.TargetPos)
				}
				if c.Len <= 0 {
					accepted = false
				}
			}
		}
	}

	o.pending = kept
	if accepted && c.Len > 0 {
		o.pending = append(o.pending, c)
	}
}

func trimCandidateFront(c Candidate, n int) Candidate {
	if n <= 0 {
		return c
	}
	if n >= c.Len {
		c.Len = 0
		return c
	}
	c.TargetPos += n
	c.Len -= n
	if c.Type == Copy {
		c.Addr += uint64(n)
	}
	return c
}

func trimCandidateEnd(c Candidate, newEnd int) Candidate {
	n := newEnd - c.TargetPos
	if n < 0 {
		n = 0
	}
	if n > c.Len {
		n = c.Len
	}
	c.Len = n
	return c
}

// Flush walks the queue in position order, synthesizes Add{len} for
// every gap between consecutive committed instructions (and a final
// gap up to windowEnd), and returns the resolved sequence. The queue
// is reset for the next window.
func (o *IOPT) Flush(target []byte, windowEnd int) []Candidate {
	sort.Slice(o.pending, func(i, j int) bool {
		return o.pending[i].TargetPos < o.pending[j].TargetPos
	})

	var out []Candidate
	cursor := o.windowLo

	for _, c := range o.pending {
		if c.TargetPos > cursor {
			out = append(out, Candidate{
				TargetPos: cursor,
				Type:      Add,
				Len:       c.TargetPos - cursor,
			})
		}
		if c.TargetPos < cursor {
			c = trimCandidateFront(c, cursor-c.TargetPos)
			if c.Len <= 0 {
				continue
			}
		}
		out = append(out, c)
		cursor = c.End()
	}
	if cursor < windowEnd {
		out = append(out, Candidate{
			TargetPos: cursor,
			Type:      Add,
			Len:       windowEnd - cursor,
		})
	}

	o.pending = nil
	o.windowLo = windowEnd
	return out
}

// FlushBefore flushes and returns every pending instruction (plus Add
// gap-fillers) that lies entirely at or before boundary, advancing
// windowLo to boundary. A candidate that starts at or straddles
// boundary is left pending for the next flush. Used when the queue
// reaches IoptCapacity mid-window (spec.md §4.K, "on IOPT capacity ...
// flush the eldest committed prefix"): Push already trims any future
// candidate whose TargetPos falls before the new windowLo, so advancing
// windowLo here is safe even against a match that later extends
// backward across this boundary.
func (o *IOPT) FlushBefore(boundary int) []Candidate {
	sort.Slice(o.pending, func(i, j int) bool {
		return o.pending[i].TargetPos < o.pending[j].TargetPos
	})

	var out []Candidate
	cursor := o.windowLo
	i := 0
	for ; i < len(o.pending); i++ {
		c := o.pending[i]
		if c.TargetPos >= boundary || c.End() > boundary {
			break
		}
		if c.TargetPos > cursor {
			out = append(out, Candidate{TargetPos: cursor, Type: Add, Len: c.TargetPos - cursor})
		}
		out = append(out, c)
		cursor = c.End()
	}
	if cursor < boundary {
		out = append(out, Candidate{TargetPos: cursor, Type: Add, Len: boundary - cursor})
	}

	o.pending = append([]Candidate{}, o.pending[i:]...)
	o.windowLo = boundary
	return out
}

// Len reports the number of pending (unflushed) entries, used by the
// encoder SM to decide when iopt_capacity forces an early flush.
func (o *IOPT) Len() int { return len(o.pending) }

// Full reports whether the queue has reached its configured capacity.
// capacity == 0 means unbounded.
func (o *IOPT) Full() bool {
	return o.capacity > 0 && len(o.pending) >= o.capacity
}

// Reset clears all pending state for a new window without touching
// windowLo bookkeeping across streams that never flushed a partial
// queue (used when a window is discarded outright).
func (o *IOPT) Reset(windowStart int) {
	o.pending = nil
	o.windowLo = windowStart
}
