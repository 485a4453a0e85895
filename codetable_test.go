package vcdiff

import "testing"

func TestBuildDefaultCodeTableEntry0IsRun(t *testing.T) {
	ct := BuildDefaultCodeTable()
	inst := ct.Get(0, 0)
	if inst.Type != Run || inst.Size != 0 {
		t.Errorf("entry 0 = %+v, want RUN size 0", inst)
	}
	if ct.Get(0, 1).Type != NoOp {
		t.Errorf("entry 0 slot 1 = %+v, want NOOP", ct.Get(0, 1))
	}
}

func TestBuildDefaultCodeTableAddEntries(t *testing.T) {
	ct := BuildDefaultCodeTable()
	for size := byte(0); size < 18; size++ {
		inst := ct.Get(size+1, 0)
		if inst.Type != Add || inst.Size != size {
			t.Errorf("entry %d = %+v, want ADD size %d", size+1, inst, size)
		}
	}
}

func TestBuildDefaultCodeTableCopyEntries(t *testing.T) {
	ct := BuildDefaultCodeTable()
	index := byte(19)
	for mode := byte(0); mode < 9; mode++ {
		inst := ct.Get(index, 0)
		if inst.Type != Copy || inst.Size != 0 || inst.Mode != mode {
			t.Errorf("entry %d = %+v, want COPY size 0 mode %d", index, inst, mode)
		}
		index++
		for size := byte(4); size < 19; size++ {
			inst := ct.Get(index, 0)
			if inst.Type != Copy || inst.Size != size || inst.Mode != mode {
				t.Errorf("entry %d = %+v, want COPY size %d mode %d", index, inst, size, mode)
			}
			index++
		}
	}
	if index != 163 {
		t.Fatalf("expected COPY entries to run through code 162, ended at %d", index-1)
	}
}

func TestBuildDefaultCodeTableDoubleEntries(t *testing.T) {
	ct := BuildDefaultCodeTable()
	// Code 163 is the first ADD+COPY double: ADD size 1, COPY size 4 mode 0.
	add := ct.Get(163, 0)
	copy_ := ct.Get(163, 1)
	if add.Type != Add || add.Size != 1 {
		t.Errorf("code 163 slot 0 = %+v, want ADD size 1", add)
	}
	if copy_.Type != Copy || copy_.Size != 4 || copy_.Mode != 0 {
		t.Errorf("code 163 slot 1 = %+v, want COPY size 4 mode 0", copy_)
	}

	// Code 247 is the first COPY+ADD double: COPY size 4 mode 0, ADD size 1.
	copyFirst := ct.Get(247, 0)
	addSecond := ct.Get(247, 1)
	if copyFirst.Type != Copy || copyFirst.Size != 4 || copyFirst.Mode != 0 {
		t.Errorf("code 247 slot 0 = %+v, want COPY size 4 mode 0", copyFirst)
	}
	if addSecond.Type != Add || addSecond.Size != 1 {
		t.Errorf("code 247 slot 1 = %+v, want ADD size 1", addSecond)
	}
}

func TestEncodeSingleExactSize(t *testing.T) {
	ct := BuildDefaultCodeTable()
	code, sizeInCode, ok := ct.EncodeSingle(Add, 5, 0)
	if !ok || !sizeInCode {
		t.Fatalf("EncodeSingle(Add, 5, 0) = code %d, sizeInCode %v, ok %v", code, sizeInCode, ok)
	}
	if got := ct.Get(code, 0); got.Type != Add || got.Size != 5 {
		t.Errorf("code %d resolves to %+v, want ADD size 5", code, got)
	}
}

func TestEncodeSingleFallsBackToSizeZero(t *testing.T) {
	ct := BuildDefaultCodeTable()
	// Size 200 has no dedicated ADD opcode; must fall back to the
	// size-0 ADD code with the size written as a trailing varint.
	code, sizeInCode, ok := ct.EncodeSingle(Add, 200, 0)
	if !ok {
		t.Fatal("expected a size-0 fallback to exist for ADD")
	}
	if sizeInCode {
		t.Error("expected sizeInCode=false for an out-of-range size")
	}
	if got := ct.Get(code, 0); got.Type != Add || got.Size != 0 {
		t.Errorf("fallback code %d resolves to %+v, want ADD size 0", code, got)
	}
}

func TestEncodeSingleRunAlwaysSizeZero(t *testing.T) {
	ct := BuildDefaultCodeTable()
	code, sizeInCode, ok := ct.EncodeSingle(Run, 500, 0)
	if !ok || sizeInCode {
		t.Fatalf("EncodeSingle(Run, 500, 0) = code %d, sizeInCode %v, ok %v; RUN only has a size-0 code", code, sizeInCode, ok)
	}
	if code != 0 {
		t.Errorf("expected RUN size-0 code to be 0, got %d", code)
	}
}

func TestEncodeDoubleMatchesDefaultTable(t *testing.T) {
	ct := BuildDefaultCodeTable()
	code, ok := ct.EncodeDouble(Add, 1, 0, Copy, 4, 0)
	if !ok || code != 163 {
		t.Fatalf("EncodeDouble(ADD 1, COPY 4 mode 0) = code %d, ok %v, want code 163", code, ok)
	}
}

func TestEncodeDoubleRejectsUnknownPair(t *testing.T) {
	ct := BuildDefaultCodeTable()
	// ADD size 17 + COPY size 18 is not one of the packed double
	// opcodes in the RFC 3284 default table.
	_, ok := ct.EncodeDouble(Add, 17, 0, Copy, 18, 0)
	if ok {
		t.Error("expected no double opcode for this pair")
	}
}

func TestDefaultCodeTableIsSharedSingleton(t *testing.T) {
	if DefaultCodeTable == nil {
		t.Fatal("DefaultCodeTable is nil")
	}
	if DefaultCodeTable.Get(0, 0).Type != Run {
		t.Error("DefaultCodeTable does not match BuildDefaultCodeTable output")
	}
}
