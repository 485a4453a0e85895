package vcdiff

// Matcher is the match-finding engine (spec.md §4.G, component G). It
// operates on a fully materialized source window and target window —
// both bounded by StreamConfig.SourceWindowSize/WindowSize, so holding
// them in memory for the duration of one window is the same tradeoff
// the teacher's decoder already makes with sourceSegment/target. The
// suspension protocol for fetching source bytes (component F) is
// exercised one level up, by the encoder state machine filling this
// window's source buffer from the SourceCache before Find runs.
type Matcher struct {
	profile MatcherProfile
	cfg     StreamConfig
	look    int
	step    int
}

// NewMatcher builds a matcher tuned by profile (see ProfileForLevel).
// The matcher itself holds no hash-table state; those are owned by the
// Encoder for the stream's lifetime (see NewMatchTables) and passed
// into Find for every window.
func NewMatcher(profile MatcherProfile, cfg StreamConfig) *Matcher {
	look, step := matcherLookStep(profile)
	return &Matcher{profile: profile, cfg: cfg, look: look, step: step}
}

// matcherLookStep resolves the effective large-hash window length and
// probe stride for a profile, with the same fallback Find and
// NewMatchTables both rely on for table sizing.
func matcherLookStep(profile MatcherProfile) (look, step int) {
	look = profile.LargeLook
	if look < 4 {
		look = 9
	}
	step = profile.LargeStep
	if step < 1 {
		step = 1
	}
	return look, step
}

// NewMatchTables allocates the persistent hash tables a stream's
// Matcher needs, sized once for the configured window bounds (spec.md
// §3's "constructed at stream creation"; §5's "no heap allocation
// beyond secondary-compressor scratch" in steady state; §9's rationale
// for generation tags in the first place). The caller owns these for
// the encoder's lifetime and passes them into every Find call — Find
// only resets their generation and repopulates large from the current
// source window, it never allocates a table itself.
func NewMatchTables(profile MatcherProfile, cfg StreamConfig) (large *LargeHashTable, small *SmallHashTable) {
	if profile.StoreOnly {
		return nil, nil
	}
	look, step := matcherLookStep(profile)

	srcCap := cfg.SourceWindowSize
	if srcCap <= 0 {
		srcCap = cfg.WindowSize
	}
	large = NewLargeHashTable(srcCap/step+1, 64)

	if cfg.DuplicateWindowSize > 0 && profile.SmallChain > 0 {
		windowCap := cfg.WindowSize
		small = NewSmallHashTable(windowCap, profile.SmallChain, windowCap)
	}
	return large, small
}

// Find returns candidate Copy/Run instructions covering target,
// addressed against the combined space [0, len(sourceWindow)) ++
// [len(sourceWindow), len(sourceWindow)+len(target)). Candidates may
// overlap; IOPT (component H) resolves that. large/small are the
// encoder's persistent hash tables (see NewMatchTables); Find resets
// their generation for this window instead of reallocating them.
func (m *Matcher) Find(sourceWindow []byte, target []byte, large *LargeHashTable, small *SmallHashTable) []Candidate {
	var out []Candidate
	if m.profile.StoreOnly || len(target) == 0 {
		return out
	}

	minMatch := m.cfg.MinMatch
	if minMatch < 2 {
		minMatch = 4
	}
	runThreshold := m.cfg.RunThreshold
	if runThreshold < 2 {
		runThreshold = 8
	}

	if large != nil {
		large.NextGeneration()
		fillLargeTable(large, sourceWindow, m.look, m.step)
		if len(sourceWindow) < m.look {
			large = nil
		}
	}
	if small != nil {
		small.NextGeneration()
		if len(target) < 4 {
			small = nil
		}
	}
	rh := &sourceRollingHash{look: m.look}

	srcBase := uint64(len(sourceWindow))
	pos := 0

	for pos < len(target) {
		runLen := runLengthAt(target, pos, len(target))

		copyLen, copyAddr, haveCopy := 0, uint64(0), false

		if small != nil && pos+4 <= len(target) {
			cs := SmallChecksum(target[pos], target[pos+1], target[pos+2], target[pos+3])
			for _, cand := range small.Chain(cs) {
				if cand >= pos {
					continue
				}
				l := extendForwardSame(target, cand, pos, len(target))
				if l >= minMatch && l > copyLen {
					copyLen, copyAddr, haveCopy = l, srcBase+uint64(cand), true
				}
			}
		}

		if large != nil && pos%m.step == 0 && pos+m.look <= len(target) {
			h := rh.hashAt(target, pos, m.look)
			if off, ok := large.Lookup(h); ok && int(off)+m.look <= len(sourceWindow) {
				fLen := extendForwardCross(sourceWindow, int(off), target, pos)
				bLen := extendBackwardCross(sourceWindow, int(off), target, pos)
				total := fLen + bLen
				if total >= minMatch && total > copyLen {
					copyLen = total
					copyAddr = uint64(int(off) - bLen)
					haveCopy = true
					pos -= bLen
				}
			}
		}

		if runLen >= runThreshold && runLen >= copyLen {
			out = append(out, Candidate{TargetPos: pos, Type: Run, Len: runLen, Byte: target[pos]})
			indexSmallRange(small, target, pos, runLen)
			pos += runLen
			continue
		}

		if haveCopy {
			out = append(out, Candidate{TargetPos: pos, Type: Copy, Len: copyLen, Addr: copyAddr})
			indexSmallRange(small, target, pos, copyLen)
			pos += copyLen
			continue
		}

		if small != nil && pos+4 <= len(target) {
			cs := SmallChecksum(target[pos], target[pos+1], target[pos+2], target[pos+3])
			small.Insert(cs, pos)
		}
		pos++
	}

	return out
}

// sourceRollingHash pairs a RollingHash with a helper to compute the
// hash at an arbitrary offset in a second buffer (the target window),
// needed because the large table is built over the source window but
// probed using target bytes.
type sourceRollingHash struct {
	look int
}

func (s *sourceRollingHash) hashAt(data []byte, pos, look int) uint64 {
	var h uint64
	for i := 0; i < look; i++ {
		h = h*largeHashMultiplier + uint64(data[pos+i])
	}
	return h
}

// fillLargeTable repopulates large with every look-byte rolling-hash
// window of sourceWindow, strided by step. Called after NextGeneration
// so stale entries from the previous window are already invisible;
// this only inserts, it never allocates.
func fillLargeTable(large *LargeHashTable, sourceWindow []byte, look, step int) {
	if len(sourceWindow) < look {
		return
	}
	rh := NewRollingHash(look)
	h := rh.Reset(sourceWindow[:look])
	large.Insert(h, 0)
	for i := 1; i+look <= len(sourceWindow); i++ {
		h = rh.Roll(sourceWindow[i-1], sourceWindow[i+look-1])
		if i%step == 0 {
			large.Insert(h, int64(i))
		}
	}
}

// runLengthAt returns how many bytes starting at pos equal target[pos].
func runLengthAt(target []byte, pos, limit int) int {
	if pos >= limit {
		return 0
	}
	b := target[pos]
	n := 1
	for pos+n < limit && target[pos+n] == b {
		n++
	}
	return n
}

// extendForwardSame extends a target-self match: target[cand:] vs
// target[pos:], both within the same buffer, cand < pos. Overlapping
// extension (cand+n crossing pos) is allowed — that is exactly the
// RLE self-overlap case in spec.md §8 scenario 4.
func extendForwardSame(target []byte, cand, pos, limit int) int {
	n := 0
	for pos+n < limit && target[cand+n] == target[pos+n] {
		n++
	}
	return n
}

// extendForwardCross extends a source-to-target match forward, bytes
// must agree and stay within both buffers.
func extendForwardCross(source []byte, srcPos int, target []byte, tgtPos int) int {
	n := 0
	for srcPos+n < len(source) && tgtPos+n < len(target) && source[srcPos+n] == target[tgtPos+n] {
		n++
	}
	return n
}

// extendBackwardCross extends a source-to-target match backward from
// srcPos-1/tgtPos-1, bounded by the start of both buffers (windows
// never extend matches across a window boundary).
func extendBackwardCross(source []byte, srcPos int, target []byte, tgtPos int) int {
	n := 0
	for srcPos-n-1 >= 0 && tgtPos-n-1 >= 0 && source[srcPos-n-1] == target[tgtPos-n-1] {
		n++
	}
	return n
}

func indexSmallRange(small *SmallHashTable, target []byte, start, length int) {
	if small == nil {
		return
	}
	end := start + length
	for i := start; i < end && i+4 <= len(target); i++ {
		cs := SmallChecksum(target[i], target[i+1], target[i+2], target[i+3])
		small.Insert(cs, i)
	}
}
