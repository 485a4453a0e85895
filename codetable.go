package vcdiff

// CodeTable represents the VCDIFF instruction code table
type CodeTable struct {
	entries [256][2]Instruction

	// single maps an exact (type, size, mode) to the lowest code whose
	// first slot carries it alone (second slot NoOp). size 0 is the
	// "read size from instruction stream" sentinel; RUN (code 0, its
	// only code), ADD (code 1) and every COPY mode have a size-0 key,
	// which EncodeSingle falls back to when no code carries the exact
	// size.
	single map[instrKey]byte

	// double maps an exact pair of instructions to the code that packs
	// both into one opcode (RFC 3284 "double instructions").
	double map[pairKey]byte
}

type instrKey struct {
	typ  InstructionType
	size byte
	mode byte
}

type pairKey struct {
	a, b instrKey
}

// Get returns the instruction at the given code and slot
func (ct *CodeTable) Get(code byte, slot int) Instruction {
	return ct.entries[code][slot]
}

// BuildDefaultCodeTable creates the default code table specified in RFC 3284
func BuildDefaultCodeTable() *CodeTable {
	ct := &CodeTable{
		single: make(map[instrKey]byte),
		double: make(map[pairKey]byte),
	}

	// Initialize all entries to NoOp
	for i := 0; i < 256; i++ {
		ct.entries[i][0] = NewInstruction(NoOp, 0, 0)
		ct.entries[i][1] = NewInstruction(NoOp, 0, 0)
	}

	// Entry 0: RUN with size 0
	ct.entries[0][0] = NewInstruction(Run, 0, 0)

	// Entries 1-18: ADD with sizes 0-17
	for i := byte(0); i < 18; i++ {
		ct.entries[i+1][0] = NewInstruction(Add, i, 0)
	}

	index := 19

	// Entries 19-162: COPY instructions with different modes and sizes
	for mode := byte(0); mode < 9; mode++ {
		// COPY with size 0 (size will be read from stream)
		ct.entries[index][0] = NewInstruction(Copy, 0, mode)
		index++

		// COPY with sizes 4-18
		for size := byte(4); size < 19; size++ {
			ct.entries[index][0] = NewInstruction(Copy, size, mode)
			index++
		}
	}

	// Entries 163-234: Combined ADD+COPY instructions
	for mode := byte(0); mode < 6; mode++ {
		for addSize := byte(1); addSize < 5; addSize++ {
			for copySize := byte(4); copySize < 7; copySize++ {
				ct.entries[index][0] = NewInstruction(Add, addSize, 0)
				ct.entries[index][1] = NewInstruction(Copy, copySize, mode)
				index++
			}
		}
	}

	// Entries 235-246: More combined ADD+COPY instructions
	for mode := byte(6); mode < 9; mode++ {
		for addSize := byte(1); addSize < 5; addSize++ {
			ct.entries[index][0] = NewInstruction(Add, addSize, 0)
			ct.entries[index][1] = NewInstruction(Copy, 4, mode)
			index++
		}
	}

	// Entries 247-255: COPY+ADD combinations
	for mode := byte(0); mode < 9; mode++ {
		ct.entries[index][0] = NewInstruction(Copy, 4, mode)
		ct.entries[index][1] = NewInstruction(Add, 1, 0)
		index++
	}

	ct.buildReverseIndex()
	return ct
}

// buildReverseIndex populates single/double from entries, preferring
// the lowest code on a collision (there are none in the RFC table, but
// the rule keeps this deterministic for any future custom table).
func (ct *CodeTable) buildReverseIndex() {
	for code := 255; code >= 0; code-- {
		e0, e1 := ct.entries[code][0], ct.entries[code][1]
		k0 := instrKey{e0.Type, e0.Size, e0.Mode}

		if e1.Type == NoOp {
			if e0.Type != NoOp {
				ct.single[k0] = byte(code)
			}
			continue
		}
		k1 := instrKey{e1.Type, e1.Size, e1.Mode}
		ct.double[pairKey{k0, k1}] = byte(code)
	}
}

// EncodeSingle returns the code for a lone instruction (type, size,
// mode). If no exact-size code exists, it falls back to the size-0
// variant so the caller appends the size as a trailing varint
// (RFC 3284 §5.6, "size = 0" sentinel). ok is false only if even the
// size-0 fallback is absent from the table (impossible for the
// default table).
func (ct *CodeTable) EncodeSingle(t InstructionType, size int, mode byte) (code byte, sizeInCode bool, ok bool) {
	if size >= 1 && size <= 255 {
		if c, found := ct.single[instrKey{t, byte(size), mode}]; found {
			return c, true, true
		}
	}
	if c, found := ct.single[instrKey{t, 0, mode}]; found {
		return c, false, true
	}
	return 0, false, false
}

// EncodeDouble returns the packed code for two adjacent instructions,
// when the default table has a double opcode for that exact pair.
func (ct *CodeTable) EncodeDouble(t1 InstructionType, size1 int, mode1 byte, t2 InstructionType, size2 int, mode2 byte) (code byte, ok bool) {
	if size1 < 0 || size1 > 255 || size2 < 0 || size2 > 255 {
		return 0, false
	}
	k := pairKey{
		a: instrKey{t1, byte(size1), mode1},
		b: instrKey{t2, byte(size2), mode2},
	}
	c, found := ct.double[k]
	return c, found
}

// DefaultCodeTable is the default code table instance
var DefaultCodeTable = BuildDefaultCodeTable()
